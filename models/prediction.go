package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Prediction is a published, immutable set of formations offered to other users
type Prediction struct {
	ID               string          `db:"id" json:"id"`
	AuthorID         string          `db:"author_id" json:"authorId"`
	Title            string          `db:"title" json:"title"`
	Commentary       string          `db:"commentary" json:"commentary"`
	PlaceName        string          `db:"place_name" json:"placeName"`
	RaceNumber       int             `db:"race_number" json:"raceNumber"`
	RaceDate         time.Time       `db:"race_date" json:"raceDate"`
	DeadlineAt       time.Time       `db:"deadline_at" json:"deadlineAt"`
	Price            int64           `db:"price" json:"price"`
	IsPrivate        bool            `db:"is_private" json:"isPrivate"`
	PredictedNumbers json.RawMessage `db:"predicted_numbers" json:"-"`
	ResultChecked    bool            `db:"result_checked" json:"resultChecked"`
	IsHit            bool            `db:"is_hit" json:"isHit"`
	RefundAmount     int64           `db:"refund_amount" json:"refundAmount"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
}

// RaceKey returns the race the prediction is for
func (p *Prediction) RaceKey() RaceKey {
	return NewRaceKey(p.PlaceName, p.RaceNumber, p.RaceDate)
}

// IsFree reports whether the prediction can be read without paying
func (p *Prediction) IsFree() bool {
	return p.Price == 0
}

// IsAuthor reports whether the user wrote the prediction
func (p *Prediction) IsAuthor(userID string) bool {
	return p.AuthorID == userID
}

// IsPastDeadline reports whether betting on the race has closed
func (p *Prediction) IsPastDeadline(now time.Time) bool {
	return !now.Before(p.DeadlineAt)
}

// ParseFormations decodes the stored formation payload
func (p *Prediction) ParseFormations() ([]Formation, error) {
	if len(p.PredictedNumbers) == 0 {
		return nil, fmt.Errorf("prediction %s: %w: empty payload", p.ID, ErrParseFailure)
	}

	var formations []Formation
	if err := json.Unmarshal(p.PredictedNumbers, &formations); err != nil {
		return nil, fmt.Errorf("prediction %s: %w: %v", p.ID, ErrParseFailure, err)
	}
	return formations, nil
}

// SetFormations encodes formations into the stored payload
func (p *Prediction) SetFormations(formations []Formation) error {
	payload, err := json.Marshal(formations)
	if err != nil {
		return fmt.Errorf("failed to encode formations: %w", err)
	}
	p.PredictedNumbers = payload
	return nil
}

// PredictionView is what a viewer receives for a prediction. Formations are only
// present when the viewer may see them.
type PredictionView struct {
	*Prediction
	Formations []Formation `json:"formations,omitempty"`
	TotalStake int64       `json:"totalStake"`
	Unlocked   bool        `json:"unlocked"`
}

// PublishRequest carries what an author submits when publishing
type PublishRequest struct {
	Title      string      `json:"title"`
	Commentary string      `json:"commentary"`
	PlaceName  string      `json:"placeName"`
	RaceNumber int         `json:"raceNumber"`
	RaceDate   time.Time   `json:"raceDate"`
	Price      int64       `json:"price"`
	IsPrivate  bool        `json:"isPrivate"`
	Formations []Formation `json:"formations"`
}

// PublishResult is the outcome of a publish attempt
type PublishResult struct {
	Success    bool        `json:"success"`
	Error      string      `json:"error,omitempty"`
	Message    string      `json:"message,omitempty"`
	Prediction *Prediction `json:"prediction,omitempty"`
}
