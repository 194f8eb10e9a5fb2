package service

import (
	"context"

	"boatbet/events"
	"boatbet/models"

	"github.com/stretchr/testify/mock"
)

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetOrCreate(ctx context.Context, id string, name string) (*models.User, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Get(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockCartService is a mock implementation of CartService
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) cart(args mock.Arguments) (*models.Cart, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *MockCartService) Get(ctx context.Context, sessionID string) (*models.Cart, error) {
	return m.cart(m.Called(ctx, sessionID))
}

func (m *MockCartService) AddFormation(ctx context.Context, sessionID string, betType models.BetType, selections models.BoatSelection, stake int64) (*models.Cart, error) {
	return m.cart(m.Called(ctx, sessionID, betType, selections, stake))
}

func (m *MockCartService) SetStakeAll(ctx context.Context, sessionID, formationID string, stake int64) (*models.Cart, error) {
	return m.cart(m.Called(ctx, sessionID, formationID, stake))
}

func (m *MockCartService) SetStakeOne(ctx context.Context, sessionID, formationID, combinationID string, stake int64) (*models.Cart, error) {
	return m.cart(m.Called(ctx, sessionID, formationID, combinationID, stake))
}

func (m *MockCartService) RemoveCombination(ctx context.Context, sessionID, formationID, combinationID string) (*models.Cart, error) {
	return m.cart(m.Called(ctx, sessionID, formationID, combinationID))
}

func (m *MockCartService) RemoveFormation(ctx context.Context, sessionID, formationID string) (*models.Cart, error) {
	return m.cart(m.Called(ctx, sessionID, formationID))
}

func (m *MockCartService) Clear(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockPredictionService is a mock implementation of PredictionService
type MockPredictionService struct {
	mock.Mock
}

func (m *MockPredictionService) Publish(ctx context.Context, authorID string, req *models.PublishRequest) (*models.PublishResult, error) {
	args := m.Called(ctx, authorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PublishResult), args.Error(1)
}

func (m *MockPredictionService) PublishCart(ctx context.Context, authorID string, req *models.PublishRequest) (*models.PublishResult, error) {
	args := m.Called(ctx, authorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PublishResult), args.Error(1)
}

func (m *MockPredictionService) Get(ctx context.Context, id string, viewerID string) (*models.PredictionView, error) {
	args := m.Called(ctx, id, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PredictionView), args.Error(1)
}

func (m *MockPredictionService) views(args mock.Arguments) ([]*models.PredictionView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PredictionView), args.Error(1)
}

func (m *MockPredictionService) List(ctx context.Context, viewerID string, limit int) ([]*models.PredictionView, error) {
	return m.views(m.Called(ctx, viewerID, limit))
}

func (m *MockPredictionService) Timeline(ctx context.Context, viewerID string, limit int) ([]*models.PredictionView, error) {
	return m.views(m.Called(ctx, viewerID, limit))
}

func (m *MockPredictionService) ListByAuthor(ctx context.Context, authorID, viewerID string) ([]*models.PredictionView, error) {
	return m.views(m.Called(ctx, authorID, viewerID))
}

func (m *MockPredictionService) ListPurchased(ctx context.Context, userID string) ([]*models.PredictionView, error) {
	return m.views(m.Called(ctx, userID))
}

// MockSocialService is a mock implementation of SocialService
type MockSocialService struct {
	mock.Mock
}

func (m *MockSocialService) Profile(ctx context.Context, userID, viewerID string) (*models.Profile, error) {
	args := m.Called(ctx, userID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockSocialService) Follow(ctx context.Context, followerID, targetID string) (*models.FollowResult, error) {
	args := m.Called(ctx, followerID, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FollowResult), args.Error(1)
}

func (m *MockSocialService) Unfollow(ctx context.Context, followerID, targetID string) (*models.FollowResult, error) {
	args := m.Called(ctx, followerID, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FollowResult), args.Error(1)
}

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Unlock(ctx context.Context, predictionID, buyerID string) (*models.UnlockResult, error) {
	args := m.Called(ctx, predictionID, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UnlockResult), args.Error(1)
}

func (m *MockLedgerService) History(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

// MockStatsService is a mock implementation of StatsService
type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) ComputeStats(ctx context.Context, userID string) (*models.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserStats), args.Error(1)
}

func (m *MockStatsService) Ranking(ctx context.Context, limit int) ([]*models.RankingEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RankingEntry), args.Error(1)
}

// MockRaceService is a mock implementation of RaceService
type MockRaceService struct {
	mock.Mock
}

func (m *MockRaceService) SyncSchedule(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRaceService) RefreshResults(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRaceService) SubmitResult(ctx context.Context, actorID string, result *models.RaceResult) (*models.BatchResult, error) {
	args := m.Called(ctx, actorID, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchResult), args.Error(1)
}

// MockNotificationService is a mock implementation of NotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) HandleSale(ctx context.Context, event events.Event) {
	m.Called(ctx, event)
}

func (m *MockNotificationService) HandleSettled(ctx context.Context, event events.Event) {
	m.Called(ctx, event)
}

func (m *MockNotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
