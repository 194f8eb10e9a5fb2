package models

import (
	"time"
)

// Cart is a user's in-progress wager builder state. It lives in the session store
// until publication copies its formations into a Prediction.
type Cart struct {
	Formations []Formation `json:"formations"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// TotalStake returns the stake across the whole cart
func (c *Cart) TotalStake() int64 {
	return TotalStake(c.Formations)
}

// IsEmpty reports whether the cart has nothing to publish
func (c *Cart) IsEmpty() bool {
	return len(c.Formations) == 0
}

// AddFormation generates combinations for the selection and appends them as a new
// bulk-stake formation. Nothing is added when the selection produces no combinations.
func (c *Cart) AddFormation(id string, betType BetType, selections BoatSelection, stake int64) (*Formation, error) {
	if !betType.IsValid() {
		return nil, ErrInvalidBetType
	}
	if !ValidStake(stake) {
		return nil, ErrInvalidStake
	}

	combinations := GenerateCombinations(betType, selections)
	if len(combinations) == 0 {
		return nil, ErrEmptyFormation
	}
	for i := range combinations {
		combinations[i].Stake = stake
	}

	c.Formations = append(c.Formations, Formation{
		ID:           id,
		BetType:      betType,
		Selections:   selections.Normalized(betType),
		Combinations: combinations,
	})
	return &c.Formations[len(c.Formations)-1], nil
}

// SetStakeAll overwrites every combination's stake and marks the formation as bulk stake
func (c *Cart) SetStakeAll(formationID string, stake int64) error {
	if !ValidStake(stake) {
		return ErrInvalidStake
	}
	idx := c.findFormation(formationID)
	if idx < 0 {
		return ErrNotFound
	}

	f := &c.Formations[idx]
	for i := range f.Combinations {
		f.Combinations[i].Stake = stake
	}
	f.IsIndividualStake = false
	return nil
}

// SetStakeOne overwrites a single combination's stake and marks the formation as individual stake
func (c *Cart) SetStakeOne(formationID, combinationID string, stake int64) error {
	if !ValidStake(stake) {
		return ErrInvalidStake
	}
	idx := c.findFormation(formationID)
	if idx < 0 {
		return ErrNotFound
	}

	f := &c.Formations[idx]
	ci := f.FindCombination(combinationID)
	if ci < 0 {
		return ErrNotFound
	}
	f.Combinations[ci].Stake = stake
	f.IsIndividualStake = true
	return nil
}

// RemoveCombination drops one combination. The formation goes with its last combination.
func (c *Cart) RemoveCombination(formationID, combinationID string) error {
	idx := c.findFormation(formationID)
	if idx < 0 {
		return ErrNotFound
	}

	f := &c.Formations[idx]
	ci := f.FindCombination(combinationID)
	if ci < 0 {
		return ErrNotFound
	}
	f.Combinations = append(f.Combinations[:ci], f.Combinations[ci+1:]...)

	if len(f.Combinations) == 0 {
		c.Formations = append(c.Formations[:idx], c.Formations[idx+1:]...)
	}
	return nil
}

// RemoveFormation drops a formation with all of its combinations
func (c *Cart) RemoveFormation(formationID string) error {
	idx := c.findFormation(formationID)
	if idx < 0 {
		return ErrNotFound
	}
	c.Formations = append(c.Formations[:idx], c.Formations[idx+1:]...)
	return nil
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Formations = nil
}

// Snapshot returns a deep copy of the formations, safe to persist
func (c *Cart) Snapshot() []Formation {
	return CloneFormations(c.Formations)
}

func (c *Cart) findFormation(formationID string) int {
	for i := range c.Formations {
		if c.Formations[i].ID == formationID {
			return i
		}
	}
	return -1
}

// CloneFormations deep copies formations so later edits cannot reach the copy
func CloneFormations(formations []Formation) []Formation {
	out := make([]Formation, len(formations))
	for i, f := range formations {
		clone := f
		clone.Selections = BoatSelection{
			First:  append([]int(nil), f.Selections.First...),
			Second: append([]int(nil), f.Selections.Second...),
			Third:  append([]int(nil), f.Selections.Third...),
		}
		clone.Combinations = make([]Combination, len(f.Combinations))
		for j, comb := range f.Combinations {
			comb.Numbers = append([]int(nil), comb.Numbers...)
			clone.Combinations[j] = comb
		}
		out[i] = clone
	}
	return out
}
