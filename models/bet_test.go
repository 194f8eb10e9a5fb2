package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func combinationIDs(combinations []Combination) []string {
	ids := make([]string, len(combinations))
	for i, c := range combinations {
		ids[i] = c.ID
	}
	return ids
}

func TestGenerateCombinations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		betType    BetType
		selections BoatSelection
		want       []string
	}{
		{
			name:       "trifecta single line",
			betType:    BetTypeTrifecta,
			selections: BoatSelection{First: []int{1}, Second: []int{2}, Third: []int{3}},
			want:       []string{"1-2-3"},
		},
		{
			name:       "trifecta skips repeated boats",
			betType:    BetTypeTrifecta,
			selections: BoatSelection{First: []int{1, 2}, Second: []int{1, 2}, Third: []int{3}},
			want:       []string{"1-2-3", "2-1-3"},
		},
		{
			name:       "trifecta exhausted pool yields nothing",
			betType:    BetTypeTrifecta,
			selections: BoatSelection{First: []int{1, 2}, Second: []int{1, 2}, Third: []int{1, 2}},
			want:       []string{},
		},
		{
			name:       "trio collapses permutations",
			betType:    BetTypeTrio,
			selections: BoatSelection{First: []int{1, 2, 3}, Second: []int{1, 2, 3}, Third: []int{1, 2, 3}},
			want:       []string{"1-2-3"},
		},
		{
			name:       "trio box of four",
			betType:    BetTypeTrio,
			selections: BoatSelection{First: []int{1, 2, 3, 4}, Second: []int{1, 2, 3, 4}, Third: []int{1, 2, 3, 4}},
			want:       []string{"1-2-3", "1-2-4", "1-3-4", "2-3-4"},
		},
		{
			name:       "exacta discards same boat",
			betType:    BetTypeExacta,
			selections: BoatSelection{First: []int{1, 2}, Second: []int{1, 2}},
			want:       []string{"1-2", "2-1"},
		},
		{
			name:       "quinella dedups sorted pairs",
			betType:    BetTypeQuinella,
			selections: BoatSelection{First: []int{1, 2}, Second: []int{2, 3}},
			want:       []string{"1-2", "1-3", "2-3"},
		},
		{
			name:       "win uses first slot only",
			betType:    BetTypeWin,
			selections: BoatSelection{First: []int{4, 1}, Second: []int{2}},
			want:       []string{"1", "4"},
		},
		{
			name:       "empty slot yields nothing",
			betType:    BetTypeExacta,
			selections: BoatSelection{First: []int{1, 2}},
			want:       []string{},
		},
		{
			name:       "out of range and duplicate boats are ignored",
			betType:    BetTypeExacta,
			selections: BoatSelection{First: []int{0, 1, 1, 7}, Second: []int{2, 2}},
			want:       []string{"1-2"},
		},
		{
			name:       "unknown bet type yields nothing",
			betType:    BetType("4TR"),
			selections: BoatSelection{First: []int{1}, Second: []int{2}, Third: []int{3}},
			want:       []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := GenerateCombinations(tt.betType, tt.selections)
			assert.Equal(t, tt.want, combinationIDs(got))
			for _, c := range got {
				assert.Zero(t, c.Stake)
				assert.Equal(t, c.ID, CanonicalCombinationID(tt.betType, c.Numbers))
			}
		})
	}
}

func TestGenerateCombinations_IsRepeatable(t *testing.T) {
	t.Parallel()

	selections := BoatSelection{First: []int{3, 1, 2}, Second: []int{2, 3, 1}, Third: []int{1, 4}}
	first := GenerateCombinations(BetTypeTrifecta, selections)
	second := GenerateCombinations(BetTypeTrifecta, selections)

	assert.Equal(t, first, second)
}

func TestGenerateCombinations_UnorderedNumbersAreSorted(t *testing.T) {
	t.Parallel()

	got := GenerateCombinations(BetTypeTrio, BoatSelection{First: []int{5}, Second: []int{3}, Third: []int{1}})
	require.Len(t, got, 1)
	assert.Equal(t, []int{1, 3, 5}, got[0].Numbers)
	assert.Equal(t, "1-3-5", got[0].ID)
}

func TestNormalizeFeedCombination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		betType     BetType
		raw         string
		want        string
		errContains string
	}{
		{name: "trifecta keeps order", betType: BetTypeTrifecta, raw: "3-1-2", want: "3-1-2"},
		{name: "trio equals separator sorted", betType: BetTypeTrio, raw: "3=1=2", want: "1-2-3"},
		{name: "quinella equals separator", betType: BetTypeQuinella, raw: "4=2", want: "2-4"},
		{name: "exacta dash", betType: BetTypeExacta, raw: "4-2", want: "4-2"},
		{name: "win single number", betType: BetTypeWin, raw: "6", want: "6"},
		{name: "spaces are separators", betType: BetTypeTrio, raw: "2 3 1", want: "1-2-3"},
		{name: "wrong arity", betType: BetTypeTrifecta, raw: "1-2", errContains: "needs 3"},
		{name: "out of range", betType: BetTypeExacta, raw: "1-7", errContains: "out of range"},
		{name: "not a number", betType: BetTypeWin, raw: "x", errContains: "invalid boat number"},
		{name: "repeated boat", betType: BetTypeQuinella, raw: "2=2", errContains: "repeated"},
		{name: "unknown bet type", betType: BetType("ZZ"), raw: "1", errContains: "unknown bet type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeFeedCombination(tt.betType, tt.raw)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Every generated id must survive feed normalization unchanged, otherwise settlement
// could never match it.
func TestCombinationIDs_RoundTripThroughFeedNormalization(t *testing.T) {
	t.Parallel()

	all := []int{1, 2, 3, 4, 5, 6}
	selections := BoatSelection{First: all, Second: all, Third: all}

	for _, betType := range AllBetTypes() {
		combinations := GenerateCombinations(betType, selections)
		require.NotEmpty(t, combinations, betType)

		for _, c := range combinations {
			normalized, err := NormalizeFeedCombination(betType, c.ID)
			require.NoError(t, err)
			assert.Equal(t, c.ID, normalized)
		}
	}

	assert.Len(t, GenerateCombinations(BetTypeTrifecta, selections), 120)
	assert.Len(t, GenerateCombinations(BetTypeTrio, selections), 20)
	assert.Len(t, GenerateCombinations(BetTypeExacta, selections), 30)
	assert.Len(t, GenerateCombinations(BetTypeQuinella, selections), 15)
	assert.Len(t, GenerateCombinations(BetTypeWin, selections), 6)
}

func TestParseBetType(t *testing.T) {
	t.Parallel()

	bt, err := ParseBetType(" 3pl ")
	require.NoError(t, err)
	assert.Equal(t, BetTypeTrio, bt)
	assert.False(t, bt.IsOrdered())
	assert.Equal(t, 3, bt.Slots())

	_, err = ParseBetType("PLACE")
	assert.Error(t, err)
}
