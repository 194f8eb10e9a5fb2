package repository

import (
	"context"
	"fmt"

	"boatbet/database"

	"github.com/jackc/pgx/v5"
)

// FollowRepository implements the FollowRepository interface
type FollowRepository struct {
	q queryable
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *database.DB) *FollowRepository {
	return &FollowRepository{q: db.Pool}
}

// newFollowRepositoryWithTx creates a new follow repository with a transaction
func newFollowRepositoryWithTx(tx queryable) *FollowRepository {
	return &FollowRepository{q: tx}
}

// Follow records the edge and reports whether it was new
func (r *FollowRepository) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, following_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, following_id) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to follow %s by %s: %w", followingID, followerID, err)
	}
	return result.RowsAffected() == 1, nil
}

// Unfollow removes the edge and reports whether one existed
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to unfollow %s by %s: %w", followingID, followerID, err)
	}
	return result.RowsAffected() == 1, nil
}

// IsFollowing reports whether followerID follows followingID
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, followerID, followingID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check follow of %s by %s: %w", followingID, followerID, err)
	}
	return exists, nil
}

// GetFollowingIDs returns the users followerID follows
func (r *FollowRepository) GetFollowingIDs(ctx context.Context, followerID string) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT following_id FROM follows WHERE follower_id = $1 ORDER BY following_id`, followerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query follows: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect follows: %w", err)
	}
	return ids, nil
}

// Counts returns how many users follow userID and how many userID follows
func (r *FollowRepository) Counts(ctx context.Context, userID string) (followers int, following int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE following_id = $1),
			COUNT(*) FILTER (WHERE follower_id = $1)
		FROM follows
		WHERE following_id = $1 OR follower_id = $1
	`

	if err := r.q.QueryRow(ctx, query, userID).Scan(&followers, &following); err != nil {
		return 0, 0, fmt.Errorf("failed to count follows of %s: %w", userID, err)
	}
	return followers, following, nil
}
