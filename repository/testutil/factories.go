package testutil

import (
	"time"

	"boatbet/models"

	"github.com/google/uuid"
)

// RaceDate is the race day used by fixtures
var RaceDate = time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

// CreateTestUser creates a test user with default values
func CreateTestUser(id string, name string) *models.User {
	return &models.User{
		ID:     id,
		Name:   name,
		Points: 1000,
	}
}

// CreateTestUserWithPoints creates a test user with a specific balance
func CreateTestUserWithPoints(id string, name string, points int64) *models.User {
	user := CreateTestUser(id, name)
	user.Points = points
	return user
}

// CreateTestPrediction creates a trifecta prediction on 1-2-3 for 桐生 12R
func CreateTestPrediction(authorID string, price int64, deadline time.Time) *models.Prediction {
	p := &models.Prediction{
		ID:         uuid.NewString(),
		AuthorID:   authorID,
		Title:      "テスト予想",
		PlaceName:  "桐生",
		RaceNumber: 12,
		RaceDate:   RaceDate,
		DeadlineAt: deadline,
		Price:      price,
	}
	// Fixed literal input cannot fail to encode
	_ = p.SetFormations([]models.Formation{{
		ID:      uuid.NewString(),
		BetType: models.BetTypeTrifecta,
		Combinations: []models.Combination{
			{ID: "1-2-3", Numbers: []int{1, 2, 3}, Stake: 100},
		},
	}})
	return p
}

// CreateTestResult creates the 1-2-3 result for the fixture race
func CreateTestResult() *models.RaceResult {
	return &models.RaceResult{
		PlaceName:   "桐生",
		RaceNumber:  12,
		RaceDate:    RaceDate,
		FirstPlace:  1,
		SecondPlace: 2,
		ThirdPlace:  3,
		Refunds: []models.RefundEntry{
			{Type: models.BetTypeTrifecta, Numbers: "1-2-3", Amount: 1540},
			{Type: models.BetTypeWin, Numbers: "1", Amount: 150},
		},
	}
}
