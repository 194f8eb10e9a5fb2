package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BetType identifies how a wager is matched against the official finishing order
type BetType string

const (
	BetTypeTrifecta BetType = "3TR" // first three boats in exact order
	BetTypeTrio     BetType = "3PL" // first three boats in any order
	BetTypeExacta   BetType = "2TR" // first two boats in exact order
	BetTypeQuinella BetType = "2PL" // first two boats in any order
	BetTypeWin      BetType = "WIN" // winning boat
)

// CombinationSeparator joins boat numbers in every combination id, ordered or not
const CombinationSeparator = "-"

const (
	MinBoatNumber = 1
	MaxBoatNumber = 6
)

// betTypeSpec describes the shape of a bet type
type betTypeSpec struct {
	Slots   int
	Ordered bool
	Label   string
}

// betTypeSpecs is the closed set of supported bet types
var betTypeSpecs = map[BetType]betTypeSpec{
	BetTypeTrifecta: {Slots: 3, Ordered: true, Label: "3連単"},
	BetTypeTrio:     {Slots: 3, Ordered: false, Label: "3連複"},
	BetTypeExacta:   {Slots: 2, Ordered: true, Label: "2連単"},
	BetTypeQuinella: {Slots: 2, Ordered: false, Label: "2連複"},
	BetTypeWin:      {Slots: 1, Ordered: true, Label: "単勝"},
}

// AllBetTypes returns every supported bet type in display order
func AllBetTypes() []BetType {
	return []BetType{BetTypeTrifecta, BetTypeTrio, BetTypeExacta, BetTypeQuinella, BetTypeWin}
}

// IsValid reports whether the bet type is supported
func (b BetType) IsValid() bool {
	_, ok := betTypeSpecs[b]
	return ok
}

// Slots returns how many selection slots the bet type uses
func (b BetType) Slots() int {
	return betTypeSpecs[b].Slots
}

// IsOrdered reports whether finishing order matters for the bet type
func (b BetType) IsOrdered() bool {
	return betTypeSpecs[b].Ordered
}

// Label returns the display name of the bet type
func (b BetType) Label() string {
	return betTypeSpecs[b].Label
}

// ParseBetType validates a raw bet type code
func ParseBetType(raw string) (BetType, error) {
	bt := BetType(strings.ToUpper(strings.TrimSpace(raw)))
	if !bt.IsValid() {
		return "", fmt.Errorf("%w %q", ErrInvalidBetType, raw)
	}
	return bt, nil
}

// CanonicalCombinationID builds the id used for both cart display and settlement matching.
// Numbers are sorted for unordered bet types so permutations share one id.
func CanonicalCombinationID(betType BetType, numbers []int) string {
	nums := append([]int(nil), numbers...)
	if !betType.IsOrdered() {
		sort.Ints(nums)
	}

	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, CombinationSeparator)
}

// NormalizeFeedCombination converts a payout-table combination string from the result feed
// ("1-2-3", "1=2=3", "1 2 3") into the canonical combination id for the bet type.
func NormalizeFeedCombination(betType BetType, raw string) (string, error) {
	if !betType.IsValid() {
		return "", fmt.Errorf("unknown bet type %q", betType)
	}

	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '-' || r == '=' || r == ' ' || r == '　'
	})
	if len(fields) != betType.Slots() {
		return "", fmt.Errorf("combination %q has %d numbers, %s needs %d", raw, len(fields), betType, betType.Slots())
	}

	numbers := make([]int, len(fields))
	seen := make(map[int]bool, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return "", fmt.Errorf("combination %q: invalid boat number %q", raw, f)
		}
		if n < MinBoatNumber || n > MaxBoatNumber {
			return "", fmt.Errorf("combination %q: boat number %d out of range", raw, n)
		}
		if seen[n] {
			return "", fmt.Errorf("combination %q: repeated boat number %d", raw, n)
		}
		seen[n] = true
		numbers[i] = n
	}

	return CanonicalCombinationID(betType, numbers), nil
}
