package repository

import (
	"context"
	"errors"
	"fmt"

	"boatbet/database"
	"boatbet/models"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// HasPurchase reports whether the user already has a BUY row for the prediction
func (r *TransactionRepository) HasPurchase(ctx context.Context, userID, predictionID string) (bool, error) {
	if !isUUID(predictionID) {
		return false, nil
	}
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND prediction_id = $2 AND action = 'BUY'
		)
	`

	var exists bool
	if err := r.q.QueryRow(ctx, query, userID, predictionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check purchase of %s by %s: %w", predictionID, userID, err)
	}
	return exists, nil
}

// RecordPurchase inserts the BUY row. The partial unique index on (user_id, prediction_id)
// turns a second purchase into models.ErrDuplicateCharge instead of a second charge.
func (r *TransactionRepository) RecordPurchase(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, prediction_id, action, points)
		VALUES ($1, $2, $3, 'BUY', $4)
		ON CONFLICT (user_id, prediction_id) WHERE action = 'BUY' DO NOTHING
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query, tx.ID, tx.UserID, tx.PredictionID, tx.Points).Scan(&tx.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("purchase of %s by %s: %w", tx.PredictionID, tx.UserID, models.ErrDuplicateCharge)
	}
	if err != nil {
		return fmt.Errorf("failed to record purchase: %w", err)
	}
	tx.Action = models.TransactionActionBuy
	return nil
}

// Record appends a ledger row
func (r *TransactionRepository) Record(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, prediction_id, action, points)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query, tx.ID, tx.UserID, tx.PredictionID, string(tx.Action), tx.Points).Scan(&tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record %s transaction: %w", tx.Action, err)
	}
	return nil
}

// GetByUser returns the user's most recent ledger rows
func (r *TransactionRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, prediction_id, action, points, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := []*models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		var action string
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.PredictionID, &action, &tx.Points, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Action = models.TransactionAction(action)
		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// GetPurchasedPredictionIDs returns the predictions the user bought
func (r *TransactionRepository) GetPurchasedPredictionIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT prediction_id::text
		FROM transactions
		WHERE user_id = $1 AND action = 'BUY'
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect purchases: %w", err)
	}
	return ids, nil
}
