package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"boatbet/database"
	"boatbet/models"

	"github.com/jackc/pgx/v5"
)

// RaceRepository implements the RaceRepository interface
type RaceRepository struct {
	q queryable
}

// NewRaceRepository creates a new race repository
func NewRaceRepository(db *database.DB) *RaceRepository {
	return &RaceRepository{q: db.Pool}
}

// newRaceRepositoryWithTx creates a new race repository with a transaction
func newRaceRepositoryWithTx(tx queryable) *RaceRepository {
	return &RaceRepository{q: tx}
}

// GetResult returns the race's official result. A payout table that cannot be
// decoded is reported as models.ErrParseFailure.
func (r *RaceRepository) GetResult(ctx context.Context, race models.RaceKey) (*models.RaceResult, error) {
	query := `
		SELECT id, place_name, race_number, race_date, first_place, second_place, third_place,
		       refunds, created_at, updated_at
		FROM race_results
		WHERE place_name = $1 AND race_number = $2 AND race_date = $3
	`

	var result models.RaceResult
	var refunds []byte
	err := r.q.QueryRow(ctx, query, race.PlaceName, race.RaceNumber, race.RaceDate).Scan(
		&result.ID,
		&result.PlaceName,
		&result.RaceNumber,
		&result.RaceDate,
		&result.FirstPlace,
		&result.SecondPlace,
		&result.ThirdPlace,
		&refunds,
		&result.CreatedAt,
		&result.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result for %s: %w", race, err)
	}

	if err := json.Unmarshal(refunds, &result.Refunds); err != nil {
		return nil, fmt.Errorf("result for %s: %w: %v", race, models.ErrParseFailure, err)
	}
	return &result, nil
}

// UpsertResult inserts the result or replaces the stored one for the same race
func (r *RaceRepository) UpsertResult(ctx context.Context, result *models.RaceResult) error {
	refunds := result.Refunds
	if refunds == nil {
		refunds = []models.RefundEntry{}
	}
	payload, err := json.Marshal(refunds)
	if err != nil {
		return fmt.Errorf("failed to encode refunds: %w", err)
	}

	query := `
		INSERT INTO race_results (
			place_name, race_number, race_date, first_place, second_place, third_place, refunds
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (place_name, race_number, race_date) DO UPDATE SET
			first_place = EXCLUDED.first_place,
			second_place = EXCLUDED.second_place,
			third_place = EXCLUDED.third_place,
			refunds = EXCLUDED.refunds,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = r.q.QueryRow(ctx, query,
		result.PlaceName,
		result.RaceNumber,
		result.RaceDate,
		result.FirstPlace,
		result.SecondPlace,
		result.ThirdPlace,
		string(payload),
	).Scan(&result.ID, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert result for %s: %w", result.Key(), err)
	}
	return nil
}

// GetSchedule returns the race's schedule
func (r *RaceRepository) GetSchedule(ctx context.Context, race models.RaceKey) (*models.RaceSchedule, error) {
	query := `
		SELECT id, place_name, race_number, race_date, deadline_at, created_at, updated_at
		FROM race_schedules
		WHERE place_name = $1 AND race_number = $2 AND race_date = $3
	`

	var schedule models.RaceSchedule
	err := r.q.QueryRow(ctx, query, race.PlaceName, race.RaceNumber, race.RaceDate).Scan(
		&schedule.ID,
		&schedule.PlaceName,
		&schedule.RaceNumber,
		&schedule.RaceDate,
		&schedule.DeadlineAt,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule for %s: %w", race, err)
	}
	return &schedule, nil
}

// UpsertSchedule inserts the schedule or moves the deadline of the stored one
func (r *RaceRepository) UpsertSchedule(ctx context.Context, schedule *models.RaceSchedule) error {
	query := `
		INSERT INTO race_schedules (place_name, race_number, race_date, deadline_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (place_name, race_number, race_date) DO UPDATE SET
			deadline_at = EXCLUDED.deadline_at,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		schedule.PlaceName,
		schedule.RaceNumber,
		schedule.RaceDate,
		schedule.DeadlineAt,
	).Scan(&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert schedule for %s: %w", schedule.Key(), err)
	}
	return nil
}
