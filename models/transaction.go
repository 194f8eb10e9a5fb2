package models

import "time"

// TransactionAction is the direction of a ledger row
type TransactionAction string

const (
	TransactionActionBuy  TransactionAction = "BUY"
	TransactionActionSell TransactionAction = "SELL"
)

// Transaction is an append-only ledger row. Points are negative for BUY and positive for SELL.
type Transaction struct {
	ID           string            `db:"id" json:"id"`
	UserID       string            `db:"user_id" json:"userId"`
	PredictionID string            `db:"prediction_id" json:"predictionId"`
	Action       TransactionAction `db:"action" json:"action"`
	Points       int64             `db:"points" json:"points"`
	CreatedAt    time.Time         `db:"created_at" json:"createdAt"`
}

// UnlockResult is the outcome of a purchase attempt. Business failures set Error
// to a stable code instead of returning a Go error.
type UnlockResult struct {
	Success     bool   `json:"success"`
	Charged     bool   `json:"charged"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message,omitempty"`
	PointsAfter int64  `json:"pointsAfter"`
}
