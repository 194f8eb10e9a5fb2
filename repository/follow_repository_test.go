package repository

import (
	"context"
	"testing"

	"boatbet/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	users := NewUserRepository(testDB.DB)
	repo := NewFollowRepository(testDB.DB)

	for _, id := range []string{"fan", "author", "rival"} {
		_, err := users.Create(ctx, id, id, 0)
		require.NoError(t, err)
	}

	t.Run("follow once", func(t *testing.T) {
		created, err := repo.Follow(ctx, "fan", "author")
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.Follow(ctx, "fan", "author")
		require.NoError(t, err)
		assert.False(t, created)

		_, err = repo.Follow(ctx, "fan", "rival")
		require.NoError(t, err)

		following, err := repo.IsFollowing(ctx, "fan", "author")
		require.NoError(t, err)
		assert.True(t, following)

		following, err = repo.IsFollowing(ctx, "author", "fan")
		require.NoError(t, err)
		assert.False(t, following)
	})

	t.Run("counts", func(t *testing.T) {
		followers, following, err := repo.Counts(ctx, "fan")
		require.NoError(t, err)
		assert.Equal(t, 0, followers)
		assert.Equal(t, 2, following)

		followers, following, err = repo.Counts(ctx, "author")
		require.NoError(t, err)
		assert.Equal(t, 1, followers)
		assert.Equal(t, 0, following)

		ids, err := repo.GetFollowingIDs(ctx, "fan")
		require.NoError(t, err)
		assert.Equal(t, []string{"author", "rival"}, ids)
	})

	t.Run("self follow rejected by the schema", func(t *testing.T) {
		_, err := repo.Follow(ctx, "fan", "fan")
		assert.Error(t, err)
	})

	t.Run("unfollow", func(t *testing.T) {
		removed, err := repo.Unfollow(ctx, "fan", "rival")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = repo.Unfollow(ctx, "fan", "rival")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}
