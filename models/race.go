package models

import (
	"fmt"
	"time"
)

// RaceKey identifies a race by venue, race number and date
type RaceKey struct {
	PlaceName  string    `json:"placeName"`
	RaceNumber int       `json:"raceNumber"`
	RaceDate   time.Time `json:"raceDate"`
}

// NewRaceKey builds a key with the date truncated to midnight UTC
func NewRaceKey(placeName string, raceNumber int, raceDate time.Time) RaceKey {
	return RaceKey{
		PlaceName:  placeName,
		RaceNumber: raceNumber,
		RaceDate:   RaceDay(raceDate),
	}
}

// RaceDay truncates a timestamp to its calendar date at midnight UTC
func RaceDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (k RaceKey) String() string {
	return fmt.Sprintf("%s %dR %s", k.PlaceName, k.RaceNumber, k.RaceDate.Format("2006-01-02"))
}

// RefundEntry is one line of the official payout table. Amount is paid per 100 staked.
type RefundEntry struct {
	Type    BetType `json:"type"`
	Numbers string  `json:"numbers"`
	Amount  int64   `json:"amount"`
}

// RaceResult is the official finishing order and payout table of a race
type RaceResult struct {
	ID          int64         `db:"id" json:"id"`
	PlaceName   string        `db:"place_name" json:"placeName"`
	RaceNumber  int           `db:"race_number" json:"raceNumber"`
	RaceDate    time.Time     `db:"race_date" json:"raceDate"`
	FirstPlace  int           `db:"first_place" json:"firstPlace"`
	SecondPlace int           `db:"second_place" json:"secondPlace"`
	ThirdPlace  int           `db:"third_place" json:"thirdPlace"`
	Refunds     []RefundEntry `db:"refunds" json:"refunds"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// Key returns the race the result belongs to
func (r *RaceResult) Key() RaceKey {
	return NewRaceKey(r.PlaceName, r.RaceNumber, r.RaceDate)
}

// EvaluationResult is the settlement outcome for one prediction
type EvaluationResult struct {
	IsHit        bool  `json:"isHit"`
	RefundAmount int64 `json:"refundAmount"`
}

// Payout returns what a stake earns at the given amount per 100, rounded down
func Payout(amountPer100, stake int64) int64 {
	return amountPer100 * stake / 100
}

// Settle matches formations against the payout table. Every combination whose id equals a
// payout entry of the same bet type is a hit, and payouts are summed across all formations.
func (r *RaceResult) Settle(formations []Formation) EvaluationResult {
	// payout ids per bet type; several entries of one type happen on dead heats
	payouts := make(map[BetType]map[string]int64)
	for _, entry := range r.Refunds {
		id, err := NormalizeFeedCombination(entry.Type, entry.Numbers)
		if err != nil {
			continue
		}
		if payouts[entry.Type] == nil {
			payouts[entry.Type] = make(map[string]int64)
		}
		if _, dup := payouts[entry.Type][id]; !dup {
			payouts[entry.Type][id] = entry.Amount
		}
	}

	var result EvaluationResult
	for _, f := range formations {
		table, ok := payouts[f.BetType]
		if !ok {
			continue
		}
		for _, c := range f.Combinations {
			amount, ok := table[c.ID]
			if !ok {
				continue
			}
			result.IsHit = true
			result.RefundAmount += Payout(amount, c.Stake)
		}
	}
	return result
}

// RaceSchedule carries the betting deadline of a race
type RaceSchedule struct {
	ID         int64     `db:"id" json:"id"`
	PlaceName  string    `db:"place_name" json:"placeName"`
	RaceNumber int       `db:"race_number" json:"raceNumber"`
	RaceDate   time.Time `db:"race_date" json:"raceDate"`
	DeadlineAt time.Time `db:"deadline_at" json:"deadlineAt"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// Key returns the race the schedule belongs to
func (s *RaceSchedule) Key() RaceKey {
	return NewRaceKey(s.PlaceName, s.RaceNumber, s.RaceDate)
}

// BatchResult summarises one race's settlement run
type BatchResult struct {
	EvaluatedCount int `json:"evaluatedCount"`
	HitCount       int `json:"hitCount"`
	SkippedCount   int `json:"skippedCount"`
}

// SweepResult summarises a settlement pass over every pending race
type SweepResult struct {
	Considered int `json:"considered"`
	Evaluated  int `json:"evaluated"`
	Hits       int `json:"hits"`
	Races      int `json:"races"`
}
