package service

import (
	"testing"
	"time"

	"boatbet/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testAuthorID = "author-1"
	testBuyerID  = "buyer-1"
	testAdminID  = "admin-1"
	testVenue    = "桐生"
)

var (
	testRaceDate = time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	// 15:00 JST on race day
	testNow      = time.Date(2026, 2, 28, 6, 0, 0, 0, time.UTC)
	testDeadline = testNow.Add(time.Hour)
	testRace     = models.NewRaceKey(testVenue, 12, testRaceDate)
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// TestMocks holds a unit of work wired to mock repositories
type TestMocks struct {
	Factory          *MockUnitOfWorkFactory
	UoW              *MockUnitOfWork
	UserRepo         *MockUserRepository
	PredictionRepo   *MockPredictionRepository
	RaceRepo         *MockRaceRepository
	TransactionRepo  *MockTransactionRepository
	NotificationRepo *MockNotificationRepository
	FollowRepo       *MockFollowRepository
	EventPublisher   *MockEventPublisher
}

// NewTestMocks creates a new set of mocks. Every unit of work the factory hands out is the same mock.
func NewTestMocks() *TestMocks {
	m := &TestMocks{
		Factory:          new(MockUnitOfWorkFactory),
		UoW:              new(MockUnitOfWork),
		UserRepo:         new(MockUserRepository),
		PredictionRepo:   new(MockPredictionRepository),
		RaceRepo:         new(MockRaceRepository),
		TransactionRepo:  new(MockTransactionRepository),
		NotificationRepo: new(MockNotificationRepository),
		FollowRepo:       new(MockFollowRepository),
		EventPublisher:   new(MockEventPublisher),
	}
	m.UoW.SetRepositories(m.UserRepo, m.PredictionRepo, m.RaceRepo, m.TransactionRepo, m.NotificationRepo, m.FollowRepo, m.EventPublisher)
	m.Factory.On("Create").Return(m.UoW)
	return m
}

// ExpectReadOnly expects transactions that begin and roll back without committing
func (m *TestMocks) ExpectReadOnly() {
	m.UoW.On("Begin", mock.Anything).Return(nil)
	m.UoW.On("Rollback").Return(nil)
}

// ExpectCommit expects transactions that begin, commit and then run the deferred rollback
func (m *TestMocks) ExpectCommit() {
	m.ExpectReadOnly()
	m.UoW.On("Commit").Return(nil)
}

// AssertAllExpectations asserts all mock expectations
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.Factory.AssertExpectations(t)
	m.UoW.AssertExpectations(t)
	m.UserRepo.AssertExpectations(t)
	m.PredictionRepo.AssertExpectations(t)
	m.RaceRepo.AssertExpectations(t)
	m.TransactionRepo.AssertExpectations(t)
	m.NotificationRepo.AssertExpectations(t)
	m.FollowRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// newTestPrediction returns an open 3TR prediction on 1-2-3 and 1-2-4 staked 100 each
func newTestPrediction(t *testing.T, price int64) *models.Prediction {
	t.Helper()
	p := &models.Prediction{
		ID:         "prediction-1",
		AuthorID:   testAuthorID,
		Title:      "本命",
		PlaceName:  testRace.PlaceName,
		RaceNumber: testRace.RaceNumber,
		RaceDate:   testRace.RaceDate,
		DeadlineAt: testDeadline,
		Price:      price,
	}
	require.NoError(t, p.SetFormations([]models.Formation{{
		ID:      "formation-1",
		BetType: models.BetTypeTrifecta,
		Combinations: []models.Combination{
			{ID: "1-2-3", Numbers: []int{1, 2, 3}, Stake: 100},
			{ID: "1-2-4", Numbers: []int{1, 2, 4}, Stake: 100},
		},
	}}))
	return p
}

// newTestResult returns the official result 1-2-3 paying 1540 per 100 on the trifecta
func newTestResult() *models.RaceResult {
	return &models.RaceResult{
		PlaceName:   testRace.PlaceName,
		RaceNumber:  testRace.RaceNumber,
		RaceDate:    testRace.RaceDate,
		FirstPlace:  1,
		SecondPlace: 2,
		ThirdPlace:  3,
		Refunds: []models.RefundEntry{
			{Type: models.BetTypeTrifecta, Numbers: "1-2-3", Amount: 1540},
			{Type: models.BetTypeTrio, Numbers: "1-2-3", Amount: 320},
			{Type: models.BetTypeExacta, Numbers: "1-2", Amount: 480},
			{Type: models.BetTypeQuinella, Numbers: "1-2", Amount: 260},
			{Type: models.BetTypeWin, Numbers: "1", Amount: 150},
		},
	}
}
