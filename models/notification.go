package models

import "time"

// NotificationType categorises a notification
type NotificationType string

const (
	NotificationTypeSale NotificationType = "SALE"
	NotificationTypeHit  NotificationType = "HIT"
)

// Notification is a message shown to a user
type Notification struct {
	ID           string           `db:"id" json:"id"`
	UserID       string           `db:"user_id" json:"userId"`
	Type         NotificationType `db:"type" json:"type"`
	Message      string           `db:"message" json:"message"`
	PredictionID *string          `db:"prediction_id" json:"predictionId,omitempty"`
	IsRead       bool             `db:"is_read" json:"isRead"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
}
