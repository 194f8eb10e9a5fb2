package repository

import (
	"context"
	"fmt"

	"boatbet/database"
	"boatbet/models"
)

// NotificationRepository implements the NotificationRepository interface
type NotificationRepository struct {
	q queryable
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{q: db.Pool}
}

// newNotificationRepositoryWithTx creates a new notification repository with a transaction
func newNotificationRepositoryWithTx(tx queryable) *NotificationRepository {
	return &NotificationRepository{q: tx}
}

// Create stores a notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, message, prediction_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING is_read, created_at
	`

	err := r.q.QueryRow(ctx, query, n.ID, n.UserID, string(n.Type), n.Message, n.PredictionID).
		Scan(&n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification for user %s: %w", n.UserID, err)
	}
	return nil
}

// GetByUser returns the user's notifications, newest first
func (r *NotificationRepository) GetByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, type, message, prediction_id::text, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		var n models.Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Message, &n.PredictionID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = models.NotificationType(kind)
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifications, nil
}

// MarkAllRead marks the user's unread notifications as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := r.q.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read for user %s: %w", userID, err)
	}
	return result.RowsAffected(), nil
}
