package service

import (
	"context"
	"time"

	"boatbet/events"
	"boatbet/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, id string, name string, initialPoints int64) (*models.User, error) {
	args := m.Called(ctx, id, name, initialPoints)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) LockForUpdate(ctx context.Context, ids []string) ([]*models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) AddPoints(ctx context.Context, id string, amount int64) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockUserRepository) DeductPoints(ctx context.Context, id string, amount int64) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockPredictionRepository is a mock implementation of PredictionRepository
type MockPredictionRepository struct {
	mock.Mock
}

func (m *MockPredictionRepository) Create(ctx context.Context, prediction *models.Prediction) error {
	args := m.Called(ctx, prediction)
	return args.Error(0)
}

func (m *MockPredictionRepository) GetByID(ctx context.Context, id string) (*models.Prediction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) GetUncheckedByRace(ctx context.Context, race models.RaceKey) ([]*models.Prediction, error) {
	args := m.Called(ctx, race)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) GetPendingPastDeadline(ctx context.Context, now time.Time) ([]*models.Prediction, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) GetByAuthor(ctx context.Context, authorID string) ([]*models.Prediction, error) {
	args := m.Called(ctx, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) ListPublic(ctx context.Context, limit int) ([]*models.Prediction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) ListPublicByAuthors(ctx context.Context, authorIDs []string, limit int) ([]*models.Prediction, error) {
	args := m.Called(ctx, authorIDs, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Prediction, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) GetAuthorIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPredictionRepository) MarkSettled(ctx context.Context, id string, outcome models.EvaluationResult) (bool, error) {
	args := m.Called(ctx, id, outcome)
	return args.Bool(0), args.Error(1)
}

// MockRaceRepository is a mock implementation of RaceRepository
type MockRaceRepository struct {
	mock.Mock
}

func (m *MockRaceRepository) GetResult(ctx context.Context, race models.RaceKey) (*models.RaceResult, error) {
	args := m.Called(ctx, race)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RaceResult), args.Error(1)
}

func (m *MockRaceRepository) UpsertResult(ctx context.Context, result *models.RaceResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockRaceRepository) GetSchedule(ctx context.Context, race models.RaceKey) (*models.RaceSchedule, error) {
	args := m.Called(ctx, race)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RaceSchedule), args.Error(1)
}

func (m *MockRaceRepository) UpsertSchedule(ctx context.Context, schedule *models.RaceSchedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) HasPurchase(ctx context.Context, userID, predictionID string) (bool, error) {
	args := m.Called(ctx, userID, predictionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) RecordPurchase(ctx context.Context, transaction *models.Transaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) Record(ctx context.Context, transaction *models.Transaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetPurchasedPredictionIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockFollowRepository is a mock implementation of FollowRepository
type MockFollowRepository struct {
	mock.Mock
}

func (m *MockFollowRepository) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	args := m.Called(ctx, followerID, followingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	args := m.Called(ctx, followerID, followingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	args := m.Called(ctx, followerID, followingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) GetFollowingIDs(ctx context.Context, followerID string) ([]string, error) {
	args := m.Called(ctx, followerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockFollowRepository) Counts(ctx context.Context, userID string) (int, int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Int(1), args.Error(2)
}

// MockCartStore is a mock implementation of CartStore
type MockCartStore struct {
	mock.Mock
}

func (m *MockCartStore) Load(ctx context.Context, sessionID string) (*models.Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *MockCartStore) Save(ctx context.Context, sessionID string, cart *models.Cart) error {
	args := m.Called(ctx, sessionID, cart)
	return args.Error(0)
}

func (m *MockCartStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockRaceFeed is a mock implementation of RaceFeed
type MockRaceFeed struct {
	mock.Mock
}

func (m *MockRaceFeed) FetchSchedules(ctx context.Context) ([]*models.RaceSchedule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RaceSchedule), args.Error(1)
}

func (m *MockRaceFeed) FetchResults(ctx context.Context) ([]*models.RaceResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RaceResult), args.Error(1)
}

// MockSettlementService is a mock implementation of SettlementService
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) EvaluatePrediction(ctx context.Context, predictionID string) (*models.EvaluationResult, error) {
	args := m.Called(ctx, predictionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EvaluationResult), args.Error(1)
}

func (m *MockSettlementService) EvaluateRace(ctx context.Context, race models.RaceKey) (*models.BatchResult, error) {
	args := m.Called(ctx, race)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchResult), args.Error(1)
}

func (m *MockSettlementService) EvaluatePending(ctx context.Context) (*models.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SweepResult), args.Error(1)
}

// MockAdminChecker is a mock implementation of AdminChecker
type MockAdminChecker struct {
	mock.Mock
}

func (m *MockAdminChecker) IsAdmin(userID string) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters return
// whatever SetRepositories was given and are not recorded as calls.
type MockUnitOfWork struct {
	mock.Mock

	userRepo         UserRepository
	predictionRepo   PredictionRepository
	raceRepo         RaceRepository
	transactionRepo  TransactionRepository
	notificationRepo NotificationRepository
	followRepo       FollowRepository
	eventBus         EventPublisher
}

// SetRepositories wires the repositories handed out by the unit of work. Nil entries stay nil.
func (m *MockUnitOfWork) SetRepositories(
	userRepo UserRepository,
	predictionRepo PredictionRepository,
	raceRepo RaceRepository,
	transactionRepo TransactionRepository,
	notificationRepo NotificationRepository,
	followRepo FollowRepository,
	eventBus EventPublisher,
) {
	m.userRepo = userRepo
	m.predictionRepo = predictionRepo
	m.raceRepo = raceRepo
	m.transactionRepo = transactionRepo
	m.notificationRepo = notificationRepo
	m.followRepo = followRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) PredictionRepository() PredictionRepository {
	return m.predictionRepo
}

func (m *MockUnitOfWork) RaceRepository() RaceRepository {
	return m.raceRepo
}

func (m *MockUnitOfWork) TransactionRepository() TransactionRepository {
	return m.transactionRepo
}

func (m *MockUnitOfWork) NotificationRepository() NotificationRepository {
	return m.notificationRepo
}

func (m *MockUnitOfWork) FollowRepository() FollowRepository {
	return m.followRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
