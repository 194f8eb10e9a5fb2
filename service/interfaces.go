package service

import (
	"context"
	"time"

	"boatbet/events"
	"boatbet/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by id
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByIDs retrieves several users, skipping unknown ids
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)

	// Create creates a new user with the initial points
	Create(ctx context.Context, id string, name string, initialPoints int64) (*models.User, error)

	// LockForUpdate row-locks the given users in id order for the rest of the transaction
	LockForUpdate(ctx context.Context, ids []string) ([]*models.User, error)

	// AddPoints adds to a user's points atomically
	AddPoints(ctx context.Context, id string, amount int64) error

	// DeductPoints deducts from a user's points atomically, failing if the balance is too low
	DeductPoints(ctx context.Context, id string, amount int64) error

	// UpdateProfile replaces the user's name and bio, returning nil for an unknown user
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error)
}

// PredictionRepository defines the interface for prediction data access
type PredictionRepository interface {
	// Create stores a newly published prediction
	Create(ctx context.Context, prediction *models.Prediction) error

	// GetByID retrieves a prediction by id
	GetByID(ctx context.Context, id string) (*models.Prediction, error)

	// GetUncheckedByRace returns predictions for the race that have not been settled
	GetUncheckedByRace(ctx context.Context, race models.RaceKey) ([]*models.Prediction, error)

	// GetPendingPastDeadline returns unsettled predictions whose deadline is at or before now
	GetPendingPastDeadline(ctx context.Context, now time.Time) ([]*models.Prediction, error)

	// GetByAuthor returns every prediction written by the user
	GetByAuthor(ctx context.Context, authorID string) ([]*models.Prediction, error)

	// ListPublic returns the newest non-private predictions
	ListPublic(ctx context.Context, limit int) ([]*models.Prediction, error)

	// ListPublicByAuthors returns the newest non-private predictions of the given authors
	ListPublicByAuthors(ctx context.Context, authorIDs []string, limit int) ([]*models.Prediction, error)

	// GetByIDs returns the predictions with the given ids, skipping unknown ones
	GetByIDs(ctx context.Context, ids []string) ([]*models.Prediction, error)

	// GetAuthorIDs returns the ids of every user that published at least one prediction
	GetAuthorIDs(ctx context.Context) ([]string, error)

	// MarkSettled writes the settlement outcome only if the prediction is still unchecked.
	// It reports whether this call performed the write.
	MarkSettled(ctx context.Context, id string, outcome models.EvaluationResult) (bool, error)
}

// RaceRepository defines the interface for race schedules and results
type RaceRepository interface {
	// GetResult returns the official result for the race
	GetResult(ctx context.Context, race models.RaceKey) (*models.RaceResult, error)

	// UpsertResult inserts or replaces the result for its race
	UpsertResult(ctx context.Context, result *models.RaceResult) error

	// GetSchedule returns the schedule for the race
	GetSchedule(ctx context.Context, race models.RaceKey) (*models.RaceSchedule, error)

	// UpsertSchedule inserts or replaces the schedule for its race
	UpsertSchedule(ctx context.Context, schedule *models.RaceSchedule) error
}

// TransactionRepository defines the interface for the points ledger
type TransactionRepository interface {
	// HasPurchase reports whether the user already bought the prediction
	HasPurchase(ctx context.Context, userID, predictionID string) (bool, error)

	// RecordPurchase appends the BUY row, returning models.ErrDuplicateCharge if one exists
	RecordPurchase(ctx context.Context, transaction *models.Transaction) error

	// Record appends a ledger row
	Record(ctx context.Context, transaction *models.Transaction) error

	// GetByUser returns the user's most recent ledger rows
	GetByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)

	// GetPurchasedPredictionIDs returns the ids of predictions the user bought
	GetPurchasedPredictionIDs(ctx context.Context, userID string) ([]string, error)
}

// NotificationRepository defines the interface for user notifications
type NotificationRepository interface {
	// Create stores a notification
	Create(ctx context.Context, notification *models.Notification) error

	// GetByUser returns the user's notifications, newest first
	GetByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error)

	// MarkAllRead marks every unread notification of the user as read
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// FollowRepository defines the interface for the follow graph
type FollowRepository interface {
	// Follow adds the edge, reporting whether it was new
	Follow(ctx context.Context, followerID, followingID string) (bool, error)

	// Unfollow removes the edge, reporting whether it existed
	Unfollow(ctx context.Context, followerID, followingID string) (bool, error)

	// IsFollowing reports whether followerID follows followingID
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)

	// GetFollowingIDs returns the users followerID follows
	GetFollowingIDs(ctx context.Context, followerID string) ([]string, error)

	// Counts returns the follower and following counts of the user
	Counts(ctx context.Context, userID string) (followers int, following int, err error)
}

// CartStore persists carts per session
type CartStore interface {
	// Load returns the session's cart, or an empty cart if there is none
	Load(ctx context.Context, sessionID string) (*models.Cart, error)

	// Save stores the cart and refreshes its expiry
	Save(ctx context.Context, sessionID string, cart *models.Cart) error

	// Delete removes the session's cart
	Delete(ctx context.Context, sessionID string) error
}

// RaceFeed fetches today's schedules and results from the external race data feed
type RaceFeed interface {
	// FetchSchedules returns today's race deadlines
	FetchSchedules(ctx context.Context) ([]*models.RaceSchedule, error)

	// FetchResults returns today's official results
	FetchResults(ctx context.Context) ([]*models.RaceResult, error)
}

// UserService defines the interface for user operations
type UserService interface {
	// GetOrCreate retrieves an existing user or creates one with the starting points
	GetOrCreate(ctx context.Context, id string, name string) (*models.User, error)

	// Get retrieves a user
	Get(ctx context.Context, id string) (*models.User, error)

	// UpdateProfile edits the user's own name and bio
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error)
}

// CartService defines the interface for the session-scoped wager builder
type CartService interface {
	// Get returns the session's cart
	Get(ctx context.Context, sessionID string) (*models.Cart, error)

	// AddFormation generates combinations for the selection and adds them as a formation
	AddFormation(ctx context.Context, sessionID string, betType models.BetType, selections models.BoatSelection, stake int64) (*models.Cart, error)

	// SetStakeAll sets the stake of every combination in a formation
	SetStakeAll(ctx context.Context, sessionID, formationID string, stake int64) (*models.Cart, error)

	// SetStakeOne sets the stake of a single combination
	SetStakeOne(ctx context.Context, sessionID, formationID, combinationID string, stake int64) (*models.Cart, error)

	// RemoveCombination removes a combination, dropping the formation when it empties
	RemoveCombination(ctx context.Context, sessionID, formationID, combinationID string) (*models.Cart, error)

	// RemoveFormation removes a formation
	RemoveFormation(ctx context.Context, sessionID, formationID string) (*models.Cart, error)

	// Clear empties the cart
	Clear(ctx context.Context, sessionID string) error
}

// PredictionService defines the interface for publishing and reading predictions
type PredictionService interface {
	// Publish snapshots the formations into a new prediction
	Publish(ctx context.Context, authorID string, req *models.PublishRequest) (*models.PublishResult, error)

	// PublishCart publishes the author's cart and clears it on success
	PublishCart(ctx context.Context, authorID string, req *models.PublishRequest) (*models.PublishResult, error)

	// Get returns the prediction as the viewer is allowed to see it
	Get(ctx context.Context, id string, viewerID string) (*models.PredictionView, error)

	// List returns the newest non-private predictions as the viewer may see them
	List(ctx context.Context, viewerID string, limit int) ([]*models.PredictionView, error)

	// Timeline returns the newest non-private predictions of the authors the viewer follows
	Timeline(ctx context.Context, viewerID string, limit int) ([]*models.PredictionView, error)

	// ListByAuthor returns the author's predictions, private ones only to the author
	ListByAuthor(ctx context.Context, authorID, viewerID string) ([]*models.PredictionView, error)

	// ListPurchased returns the predictions the user bought, most recent purchase first
	ListPurchased(ctx context.Context, userID string) ([]*models.PredictionView, error)
}

// SocialService defines the interface for public profiles and the follow graph
type SocialService interface {
	// Profile returns the user's public profile as the viewer sees it
	Profile(ctx context.Context, userID, viewerID string) (*models.Profile, error)

	// Follow makes followerID follow targetID
	Follow(ctx context.Context, followerID, targetID string) (*models.FollowResult, error)

	// Unfollow makes followerID stop following targetID
	Unfollow(ctx context.Context, followerID, targetID string) (*models.FollowResult, error)
}

// SettlementService defines the interface for settling predictions against official results
type SettlementService interface {
	// EvaluatePrediction settles one prediction. It returns nil when there is nothing to do:
	// already settled, result not available yet, or an unreadable payload.
	EvaluatePrediction(ctx context.Context, predictionID string) (*models.EvaluationResult, error)

	// EvaluateRace settles every unchecked prediction of a race
	EvaluateRace(ctx context.Context, race models.RaceKey) (*models.BatchResult, error)

	// EvaluatePending settles every past-deadline prediction whose race has a result
	EvaluatePending(ctx context.Context) (*models.SweepResult, error)
}

// LedgerService defines the interface for point transfers between users
type LedgerService interface {
	// Unlock purchases a prediction for the buyer
	Unlock(ctx context.Context, predictionID, buyerID string) (*models.UnlockResult, error)

	// History returns the user's ledger rows
	History(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)
}

// StatsService defines the interface for author statistics
type StatsService interface {
	// ComputeStats derives investment, refund, recovery rate and hit counts for a user
	ComputeStats(ctx context.Context, userID string) (*models.UserStats, error)

	// Ranking returns authors ordered by recovery rate
	Ranking(ctx context.Context, limit int) ([]*models.RankingEntry, error)
}

// RaceService defines the interface for race data ingestion
type RaceService interface {
	// SyncSchedule stores today's schedules from the feed
	SyncSchedule(ctx context.Context) (int, error)

	// RefreshResults stores feed results for races that are waiting on settlement
	RefreshResults(ctx context.Context) (int, error)

	// SubmitResult stores a result entered by an admin and settles the race
	SubmitResult(ctx context.Context, actorID string, result *models.RaceResult) (*models.BatchResult, error)
}

// NotificationService defines the interface for user notifications
type NotificationService interface {
	// HandleSale stores a sale notification for the author
	HandleSale(ctx context.Context, event events.Event)

	// HandleSettled stores a hit notification for the author of a winning prediction
	HandleSettled(ctx context.Context, event events.Event)

	// List returns the user's notifications
	List(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error)

	// MarkAllRead marks the user's notifications as read
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	PredictionRepository() PredictionRepository
	RaceRepository() RaceRepository
	TransactionRepository() TransactionRepository
	NotificationRepository() NotificationRepository
	FollowRepository() FollowRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
