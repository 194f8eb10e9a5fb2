package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boatbet/database"
	"boatbet/models"

	"github.com/jackc/pgx/v5"
)

// PredictionRepository implements the PredictionRepository interface
type PredictionRepository struct {
	q queryable
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *database.DB) *PredictionRepository {
	return &PredictionRepository{q: db.Pool}
}

// newPredictionRepositoryWithTx creates a new prediction repository with a transaction
func newPredictionRepositoryWithTx(tx queryable) *PredictionRepository {
	return &PredictionRepository{q: tx}
}

const predictionColumns = `
	id, author_id, title, commentary, place_name, race_number, race_date, deadline_at,
	price, is_private, predicted_numbers, result_checked, is_hit, refund_amount, created_at`

func scanPrediction(row pgx.Row) (*models.Prediction, error) {
	var p models.Prediction
	var payload []byte
	err := row.Scan(
		&p.ID,
		&p.AuthorID,
		&p.Title,
		&p.Commentary,
		&p.PlaceName,
		&p.RaceNumber,
		&p.RaceDate,
		&p.DeadlineAt,
		&p.Price,
		&p.IsPrivate,
		&payload,
		&p.ResultChecked,
		&p.IsHit,
		&p.RefundAmount,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.PredictedNumbers = payload
	return &p, nil
}

func (r *PredictionRepository) queryPredictions(ctx context.Context, query string, args ...any) ([]*models.Prediction, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	predictions := []*models.Prediction{}
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}
	return predictions, nil
}

// Create stores a newly published prediction
func (r *PredictionRepository) Create(ctx context.Context, p *models.Prediction) error {
	query := `
		INSERT INTO predictions (
			id, author_id, title, commentary, place_name, race_number, race_date,
			deadline_at, price, is_private, predicted_numbers
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		p.ID,
		p.AuthorID,
		p.Title,
		p.Commentary,
		p.PlaceName,
		p.RaceNumber,
		p.RaceDate,
		p.DeadlineAt,
		p.Price,
		p.IsPrivate,
		string(p.PredictedNumbers),
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prediction: %w", err)
	}
	return nil
}

// GetByID retrieves a prediction by id
func (r *PredictionRepository) GetByID(ctx context.Context, id string) (*models.Prediction, error) {
	if !isUUID(id) {
		return nil, nil
	}
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`

	p, err := scanPrediction(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction %s: %w", id, err)
	}
	return p, nil
}

// GetUncheckedByRace returns the race's predictions that have not been settled
func (r *PredictionRepository) GetUncheckedByRace(ctx context.Context, race models.RaceKey) ([]*models.Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE place_name = $1 AND race_number = $2 AND race_date = $3
		  AND result_checked = FALSE
		ORDER BY created_at
	`
	return r.queryPredictions(ctx, query, race.PlaceName, race.RaceNumber, race.RaceDate)
}

// GetPendingPastDeadline returns unsettled predictions whose deadline is at or before now
func (r *PredictionRepository) GetPendingPastDeadline(ctx context.Context, now time.Time) ([]*models.Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE result_checked = FALSE AND deadline_at <= $1
		ORDER BY deadline_at
	`
	return r.queryPredictions(ctx, query, now)
}

// GetByAuthor returns every prediction the user wrote, newest first
func (r *PredictionRepository) GetByAuthor(ctx context.Context, authorID string) ([]*models.Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE author_id = $1
		ORDER BY created_at DESC
	`
	return r.queryPredictions(ctx, query, authorID)
}

// ListPublic returns the newest predictions that are not private
func (r *PredictionRepository) ListPublic(ctx context.Context, limit int) ([]*models.Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE is_private = FALSE
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.queryPredictions(ctx, query, limit)
}

// ListPublicByAuthors returns the newest non-private predictions written by any of the authors
func (r *PredictionRepository) ListPublicByAuthors(ctx context.Context, authorIDs []string, limit int) ([]*models.Prediction, error) {
	if len(authorIDs) == 0 {
		return []*models.Prediction{}, nil
	}

	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE author_id = ANY($1) AND is_private = FALSE
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.queryPredictions(ctx, query, authorIDs, limit)
}

// GetByIDs returns the predictions with the given ids. Unknown or malformed ids are skipped
// and the order is unspecified.
func (r *PredictionRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Prediction, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []*models.Prediction{}, nil
	}

	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = ANY($1::uuid[])`
	return r.queryPredictions(ctx, query, valid)
}

// GetAuthorIDs returns the distinct authors of all predictions
func (r *PredictionRepository) GetAuthorIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT author_id FROM predictions ORDER BY author_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query authors: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect authors: %w", err)
	}
	return ids, nil
}

// MarkSettled writes the outcome only while result_checked is still false, so a
// prediction is settled at most once no matter how many sweeps race for it
func (r *PredictionRepository) MarkSettled(ctx context.Context, id string, outcome models.EvaluationResult) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	query := `
		UPDATE predictions
		SET result_checked = TRUE, is_hit = $2, refund_amount = $3
		WHERE id = $1 AND result_checked = FALSE
	`

	result, err := r.q.Exec(ctx, query, id, outcome.IsHit, outcome.RefundAmount)
	if err != nil {
		return false, fmt.Errorf("failed to settle prediction %s: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}
