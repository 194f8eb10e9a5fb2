package service

import (
	"context"
	"encoding/json"
	"testing"

	"boatbet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settledPrediction(t *testing.T, id string, isHit bool, refund int64) *models.Prediction {
	t.Helper()
	p := newTestPrediction(t, 0)
	p.ID = id
	p.ResultChecked = true
	p.IsHit = isHit
	p.RefundAmount = refund
	return p
}

func TestStatsService_ComputeStats(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	mocks.ExpectReadOnly()

	// Each test prediction stakes 200 across two combinations
	pending := newTestPrediction(t, 0)
	pending.ID = "pending"
	broken := newTestPrediction(t, 0)
	broken.ID = "broken"
	broken.PredictedNumbers = json.RawMessage(`[`)

	mocks.PredictionRepo.On("GetByAuthor", ctx, testAuthorID).Return([]*models.Prediction{
		settledPrediction(t, "hit", true, 1540),
		settledPrediction(t, "miss", false, 0),
		pending,
		broken,
	}, nil)

	svc := NewStatsService(mocks.Factory)
	stats, err := svc.ComputeStats(ctx, testAuthorID)

	require.NoError(t, err)
	assert.InDelta(t, 1540.0/600*100, stats.RecoveryRate, 1e-9)
	stats.RecoveryRate = 0
	assert.Equal(t, &models.UserStats{
		UserID:           testAuthorID,
		TotalInvestment:  600,
		TotalRefund:      1540,
		HitCount:         1,
		TotalPredictions: 4,
		CheckedCount:     2,
		HitRate:          50,
	}, stats)
	mocks.AssertAllExpectations(t)
}

func TestStatsService_ComputeStats_NoInvestment(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	mocks.ExpectReadOnly()

	mocks.PredictionRepo.On("GetByAuthor", ctx, testAuthorID).Return([]*models.Prediction{}, nil)

	svc := NewStatsService(mocks.Factory)
	stats, err := svc.ComputeStats(ctx, testAuthorID)

	require.NoError(t, err)
	assert.Zero(t, stats.TotalInvestment)
	assert.Zero(t, stats.RecoveryRate)
	assert.Zero(t, stats.HitRate)
	mocks.AssertAllExpectations(t)
}

func TestStatsService_Ranking(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	mocks.ExpectReadOnly()

	alice := &models.User{ID: "alice", Name: "alice"}
	bob := &models.User{ID: "bob", Name: "bob"}
	carol := &models.User{ID: "carol", Name: "carol"}

	mocks.PredictionRepo.On("GetAuthorIDs", ctx).Return([]string{"alice", "bob", "carol"}, nil)
	mocks.UserRepo.On("GetByIDs", ctx, []string{"alice", "bob", "carol"}).
		Return([]*models.User{alice, bob, carol}, nil)
	mocks.PredictionRepo.On("GetByAuthor", ctx, "alice").Return([]*models.Prediction{
		settledPrediction(t, "a1", false, 0),
	}, nil)
	mocks.PredictionRepo.On("GetByAuthor", ctx, "bob").Return([]*models.Prediction{
		settledPrediction(t, "b1", true, 1540),
	}, nil)
	// Same recovery rate as bob with more hits
	mocks.PredictionRepo.On("GetByAuthor", ctx, "carol").Return([]*models.Prediction{
		settledPrediction(t, "c1", true, 770),
		settledPrediction(t, "c2", true, 2310),
	}, nil)

	svc := NewStatsService(mocks.Factory)
	entries, err := svc.Ranking(ctx, 0)

	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "carol", entries[0].User.ID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "bob", entries[1].User.ID)
	assert.Equal(t, "alice", entries[2].User.ID)
	assert.Equal(t, 3, entries[2].Rank)
	mocks.AssertAllExpectations(t)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, percentage(10, 0))
	assert.InDelta(t, 100.0/3, percentage(1, 3), 1e-9)
	assert.InDelta(t, 200.0/3, percentage(2, 3), 1e-9)
	// Rates that differ only past the second decimal still order correctly
	assert.Greater(t, percentage(100001, 300000), percentage(100000, 300000))
	assert.Equal(t, 770.0, percentage(1540, 200))
}
