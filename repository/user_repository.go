package repository

import (
	"context"
	"errors"
	"fmt"

	"boatbet/database"
	"boatbet/models"

	"github.com/jackc/pgx/v5"
)

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

const userColumns = `id, name, bio, points, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Bio,
		&user.Points,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func collectUsers(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

// GetByIDs retrieves the users with the given ids, ordered by id
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id`

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return collectUsers(rows)
}

// Create creates a new user with the initial points
func (r *UserRepository) Create(ctx context.Context, id string, name string, initialPoints int64) (*models.User, error) {
	query := `
		INSERT INTO users (id, name, points)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, id, name, initialPoints))
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", id, err)
	}
	return user, nil
}

// UpdateProfile replaces the user's name and bio. It returns nil when the user does not exist.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	query := `
		UPDATE users
		SET name = $2, bio = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, id, update.Name, update.Bio))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile of %s: %w", id, err)
	}
	return user, nil
}

// LockForUpdate takes row locks on the users in id order. Locking in a fixed order
// keeps two opposite transfers between the same pair from deadlocking.
func (r *UserRepository) LockForUpdate(ctx context.Context, ids []string) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock users: %w", err)
	}
	return collectUsers(rows)
}

// AddPoints adds to a user's points atomically
func (r *UserRepository) AddPoints(ctx context.Context, id string, amount int64) error {
	query := `
		UPDATE users
		SET points = points + $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to add points for user %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// DeductPoints deducts from a user's points atomically, refusing to go below zero
func (r *UserRepository) DeductPoints(ctx context.Context, id string, amount int64) error {
	query := `
		UPDATE users
		SET points = points - $1, updated_at = NOW()
		WHERE id = $2 AND points >= $1
	`

	result, err := r.q.Exec(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to deduct points for user %s: %w", id, err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	// Tell a missing user apart from a short balance
	var points int64
	err = r.q.QueryRow(ctx, `SELECT points FROM users WHERE id = $1`, id).Scan(&points)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check points for user %s: %w", id, err)
	}
	return fmt.Errorf("user %s has %d points, needs %d: %w", id, points, amount, models.ErrInsufficientPoints)
}
