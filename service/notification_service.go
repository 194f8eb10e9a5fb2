package service

import (
	"context"
	"fmt"

	"boatbet/events"
	"boatbet/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const notificationListLimit = 50

type notificationService struct {
	uowFactory UnitOfWorkFactory
}

// NewNotificationService creates a new notification service
func NewNotificationService(uowFactory UnitOfWorkFactory) NotificationService {
	return &notificationService{
		uowFactory: uowFactory,
	}
}

// HandleSale is subscribed to PredictionPurchasedEvent. Failures are logged since the
// purchase has already been committed.
func (s *notificationService) HandleSale(ctx context.Context, event events.Event) {
	e, ok := event.(events.PredictionPurchasedEvent)
	if !ok {
		log.WithField("eventType", event.Type()).Error("Sale handler received unexpected event")
		return
	}

	buyer := e.BuyerName
	if buyer == "" {
		buyer = e.BuyerID
	}
	predictionID := e.PredictionID
	notification := &models.Notification{
		ID:           uuid.NewString(),
		UserID:       e.AuthorID,
		Type:         models.NotificationTypeSale,
		Message:      fmt.Sprintf("%sさんが「%s」を%dptで購入しました", buyer, e.Title, e.Price),
		PredictionID: &predictionID,
	}

	if err := s.store(ctx, notification); err != nil {
		log.WithFields(log.Fields{
			"predictionId": e.PredictionID,
			"authorId":     e.AuthorID,
			"error":        err,
		}).Error("Failed to store sale notification")
	}
}

// HandleSettled is subscribed to PredictionSettledEvent and only notifies on hits
func (s *notificationService) HandleSettled(ctx context.Context, event events.Event) {
	e, ok := event.(events.PredictionSettledEvent)
	if !ok {
		log.WithField("eventType", event.Type()).Error("Settlement handler received unexpected event")
		return
	}
	if !e.IsHit {
		return
	}

	predictionID := e.PredictionID
	notification := &models.Notification{
		ID:           uuid.NewString(),
		UserID:       e.AuthorID,
		Type:         models.NotificationTypeHit,
		Message:      fmt.Sprintf("%s の予想が的中しました（払戻 %d円）", e.Race, e.RefundAmount),
		PredictionID: &predictionID,
	}

	if err := s.store(ctx, notification); err != nil {
		log.WithFields(log.Fields{
			"predictionId": e.PredictionID,
			"authorId":     e.AuthorID,
			"error":        err,
		}).Error("Failed to store hit notification")
	}
}

func (s *notificationService) store(ctx context.Context, notification *models.Notification) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.NotificationRepository().Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return uow.Commit()
}

// List returns the user's newest notifications
func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	notifications, err := uow.NotificationRepository().GetByUser(ctx, userID, unreadOnly, notificationListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications for user %s: %w", userID, err)
	}
	return notifications, nil
}

// MarkAllRead marks the user's notifications as read and returns how many changed
func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	count, err := uow.NotificationRepository().MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return count, nil
}
