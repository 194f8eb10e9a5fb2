package models

import (
	"sort"
)

// BoatSelection holds the boats picked for each finishing position
type BoatSelection struct {
	First  []int `json:"first"`
	Second []int `json:"second"`
	Third  []int `json:"third"`
}

// Combination is a single wager line inside a formation
type Combination struct {
	ID      string `json:"id"`
	Numbers []int  `json:"numbers"`
	Stake   int64  `json:"stake"`
}

// Formation groups the combinations generated from one selection under one bet type
type Formation struct {
	ID                string        `json:"id"`
	BetType           BetType       `json:"betType"`
	Selections        BoatSelection `json:"selections"`
	Combinations      []Combination `json:"combinations"`
	IsIndividualStake bool          `json:"isIndividualStake"`
}

// MaxStake caps a single combination's stake so payouts stay within int64
const MaxStake int64 = 10_000_000

// ValidStake reports whether a stake is within 0..MaxStake
func ValidStake(stake int64) bool {
	return stake >= 0 && stake <= MaxStake
}

// TotalStake sums the stake of every combination in the formation
func (f *Formation) TotalStake() int64 {
	var total int64
	for _, c := range f.Combinations {
		total += c.Stake
	}
	return total
}

// FindCombination returns the index of the combination with the given id, or -1
func (f *Formation) FindCombination(combinationID string) int {
	for i, c := range f.Combinations {
		if c.ID == combinationID {
			return i
		}
	}
	return -1
}

// TotalStake sums stakes across formations
func TotalStake(formations []Formation) int64 {
	var total int64
	for i := range formations {
		total += formations[i].TotalStake()
	}
	return total
}

// Slot returns the cleaned boat numbers of a zero-based position.
// Out of range and repeated numbers are dropped and the result is sorted.
func (s BoatSelection) Slot(position int) []int {
	var raw []int
	switch position {
	case 0:
		raw = s.First
	case 1:
		raw = s.Second
	case 2:
		raw = s.Third
	default:
		return nil
	}

	seen := make(map[int]bool, len(raw))
	cleaned := make([]int, 0, len(raw))
	for _, n := range raw {
		if n < MinBoatNumber || n > MaxBoatNumber || seen[n] {
			continue
		}
		seen[n] = true
		cleaned = append(cleaned, n)
	}
	sort.Ints(cleaned)
	return cleaned
}

// Normalized returns a copy containing only the slots the bet type uses, cleaned
func (s BoatSelection) Normalized(betType BetType) BoatSelection {
	var out BoatSelection
	slots := betType.Slots()
	if slots > 0 {
		out.First = s.Slot(0)
	}
	if slots > 1 {
		out.Second = s.Slot(1)
	}
	if slots > 2 {
		out.Third = s.Slot(2)
	}
	return out
}

// GenerateCombinations expands a selection into the deduplicated combinations for the bet type.
// Tuples repeating a boat across positions are discarded. Stakes start at zero.
// An unknown bet type or an empty active slot yields an empty list.
func GenerateCombinations(betType BetType, selections BoatSelection) []Combination {
	result := []Combination{}
	spec, ok := betTypeSpecs[betType]
	if !ok {
		return result
	}

	slots := make([][]int, spec.Slots)
	for i := range slots {
		slots[i] = selections.Slot(i)
		if len(slots[i]) == 0 {
			return result
		}
	}

	seen := make(map[string]bool)
	picked := make([]int, 0, spec.Slots)

	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(slots) {
			id := CanonicalCombinationID(betType, picked)
			if seen[id] {
				return
			}
			seen[id] = true

			numbers := append([]int(nil), picked...)
			if !spec.Ordered {
				sort.Ints(numbers)
			}
			result = append(result, Combination{ID: id, Numbers: numbers})
			return
		}

		for _, n := range slots[depth] {
			if containsInt(picked, n) {
				continue
			}
			picked = append(picked, n)
			walk(depth + 1)
			picked = picked[:len(picked)-1]
		}
	}
	walk(0)

	return result
}

func containsInt(values []int, n int) bool {
	for _, v := range values {
		if v == n {
			return true
		}
	}
	return false
}
