package service

import (
	"context"
	"errors"
	"fmt"

	"boatbet/events"
	"boatbet/metrics"
	"boatbet/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type ledgerService struct {
	uowFactory UnitOfWorkFactory
	now        Clock
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return newLedgerService(uowFactory, systemClock)
}

func newLedgerService(uowFactory UnitOfWorkFactory, now Clock) *ledgerService {
	return &ledgerService{
		uowFactory: uowFactory,
		now:        now,
	}
}

// Unlock purchases a prediction. The deadline guard, idempotency check, balance moves,
// ledger rows and sale event all happen in one transaction.
func (s *ledgerService) Unlock(ctx context.Context, predictionID, buyerID string) (*models.UnlockResult, error) {
	result, err := s.unlock(ctx, predictionID, buyerID)
	if err != nil {
		metrics.UnlocksTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	label := "free"
	switch {
	case !result.Success:
		label = result.Error
	case result.Charged:
		label = "charged"
	}
	metrics.UnlocksTotal.WithLabelValues(label).Inc()

	return result, nil
}

func (s *ledgerService) unlock(ctx context.Context, predictionID, buyerID string) (*models.UnlockResult, error) {
	if buyerID == "" {
		return unlockFailure(CodeUnauthorized), nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	prediction, err := uow.PredictionRepository().GetByID(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	if prediction == nil {
		return unlockFailure(CodeNotFound), nil
	}

	if prediction.IsPastDeadline(s.now()) {
		return unlockFailure(CodeDeadlinePassed), nil
	}

	// Nothing to charge
	if prediction.IsFree() || prediction.IsAuthor(buyerID) {
		return &models.UnlockResult{Success: true}, nil
	}

	owned, err := uow.TransactionRepository().HasPurchase(ctx, buyerID, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing purchase: %w", err)
	}
	if owned {
		return &models.UnlockResult{Success: true}, nil
	}

	users, err := uow.UserRepository().LockForUpdate(ctx, []string{buyerID, prediction.AuthorID})
	if err != nil {
		return nil, fmt.Errorf("failed to lock users: %w", err)
	}
	var buyer, author *models.User
	for _, u := range users {
		switch u.ID {
		case buyerID:
			buyer = u
		case prediction.AuthorID:
			author = u
		}
	}
	if buyer == nil || author == nil {
		return unlockFailure(CodeNotFound), nil
	}

	price := prediction.Price
	if !buyer.CanAfford(price) {
		return unlockFailure(CodeInsufficientPoints), nil
	}

	// The BUY row is the idempotency claim; a concurrent unlock that got here first wins
	buy := &models.Transaction{
		ID:           uuid.NewString(),
		UserID:       buyerID,
		PredictionID: predictionID,
		Action:       models.TransactionActionBuy,
		Points:       -price,
	}
	if err := uow.TransactionRepository().RecordPurchase(ctx, buy); err != nil {
		if errors.Is(err, models.ErrDuplicateCharge) {
			log.WithFields(log.Fields{
				"predictionId": predictionID,
				"buyerId":      buyerID,
			}).Info("Concurrent unlock already recorded the purchase")
			return &models.UnlockResult{Success: true}, nil
		}
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	if err := uow.UserRepository().DeductPoints(ctx, buyerID, price); err != nil {
		if errors.Is(err, models.ErrInsufficientPoints) {
			return unlockFailure(CodeInsufficientPoints), nil
		}
		return nil, fmt.Errorf("failed to deduct points from buyer: %w", err)
	}
	if err := uow.UserRepository().AddPoints(ctx, prediction.AuthorID, price); err != nil {
		return nil, fmt.Errorf("failed to add points to author: %w", err)
	}

	sell := &models.Transaction{
		ID:           uuid.NewString(),
		UserID:       prediction.AuthorID,
		PredictionID: predictionID,
		Action:       models.TransactionActionSell,
		Points:       price,
	}
	if err := uow.TransactionRepository().Record(ctx, sell); err != nil {
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}

	bus := uow.EventBus()
	bus.Publish(events.PointsChangedEvent{
		UserID:       buyerID,
		PredictionID: predictionID,
		Action:       models.TransactionActionBuy,
		OldPoints:    buyer.Points,
		NewPoints:    buyer.Points - price,
		ChangeAmount: -price,
	})
	bus.Publish(events.PointsChangedEvent{
		UserID:       author.ID,
		PredictionID: predictionID,
		Action:       models.TransactionActionSell,
		OldPoints:    author.Points,
		NewPoints:    author.Points + price,
		ChangeAmount: price,
	})
	bus.Publish(events.PredictionPurchasedEvent{
		PredictionID: predictionID,
		Title:        prediction.Title,
		BuyerID:      buyerID,
		BuyerName:    buyer.Name,
		AuthorID:     author.ID,
		Price:        price,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.PointsTransferredTotal.Add(float64(price))
	log.WithFields(log.Fields{
		"predictionId": predictionID,
		"buyerId":      buyerID,
		"authorId":     author.ID,
		"price":        price,
	}).Info("Prediction unlocked")

	return &models.UnlockResult{
		Success:     true,
		Charged:     true,
		PointsAfter: buyer.Points - price,
	}, nil
}

// History returns the user's most recent ledger rows
func (s *ledgerService) History(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transactions, err := uow.TransactionRepository().GetByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for user %s: %w", userID, err)
	}
	return transactions, nil
}
