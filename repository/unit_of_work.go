package repository

import (
	"context"
	"errors"
	"fmt"

	"boatbet/database"
	"boatbet/events"
	"boatbet/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	userRepo         service.UserRepository
	predictionRepo   service.PredictionRepository
	raceRepo         service.RaceRepository
	transactionRepo  service.TransactionRepository
	notificationRepo service.NotificationRepository
	followRepo       service.FollowRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.userRepo = newUserRepositoryWithTx(tx)
	u.predictionRepo = newPredictionRepositoryWithTx(tx)
	u.raceRepo = newRaceRepositoryWithTx(tx)
	u.transactionRepo = newTransactionRepositoryWithTx(tx)
	u.notificationRepo = newNotificationRepositoryWithTx(tx)
	u.followRepo = newFollowRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() service.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// PredictionRepository returns the prediction repository for this unit of work
func (u *unitOfWork) PredictionRepository() service.PredictionRepository {
	if u.predictionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.predictionRepo
}

// RaceRepository returns the race repository for this unit of work
func (u *unitOfWork) RaceRepository() service.RaceRepository {
	if u.raceRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.raceRepo
}

// TransactionRepository returns the ledger repository for this unit of work
func (u *unitOfWork) TransactionRepository() service.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

// NotificationRepository returns the notification repository for this unit of work
func (u *unitOfWork) NotificationRepository() service.NotificationRepository {
	if u.notificationRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.notificationRepo
}

// FollowRepository returns the follow repository for this unit of work
func (u *unitOfWork) FollowRepository() service.FollowRepository {
	if u.followRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.followRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
