package service

import (
	"context"
	"errors"
	"testing"

	"boatbet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSessionID = "session-1"

func TestCartService_AddFormation(t *testing.T) {
	ctx := context.Background()
	store := new(MockCartStore)
	store.On("Load", ctx, testSessionID).Return(&models.Cart{}, nil)
	store.On("Save", ctx, testSessionID, mock.MatchedBy(func(c *models.Cart) bool {
		return len(c.Formations) == 1 && !c.UpdatedAt.IsZero()
	})).Return(nil)

	svc := NewCartService(store)
	cart, err := svc.AddFormation(ctx, testSessionID, models.BetTypeTrifecta, models.BoatSelection{
		First:  []int{1},
		Second: []int{2, 3},
		Third:  []int{2, 3, 4},
	}, 100)

	require.NoError(t, err)
	require.Len(t, cart.Formations, 1)
	formation := cart.Formations[0]
	assert.NotEmpty(t, formation.ID)
	assert.Len(t, formation.Combinations, 4)
	assert.Equal(t, int64(400), cart.TotalStake())
	store.AssertExpectations(t)
}

func TestCartService_InvalidInputIsNotSaved(t *testing.T) {
	tests := []struct {
		name    string
		betType models.BetType
		sel     models.BoatSelection
		stake   int64
		wantErr error
	}{
		{name: "negative stake", betType: models.BetTypeWin, sel: models.BoatSelection{First: []int{1}}, stake: -100, wantErr: models.ErrInvalidStake},
		{name: "unknown bet type", betType: "4TR", sel: models.BoatSelection{First: []int{1}}, stake: 100, wantErr: models.ErrInvalidBetType},
		{name: "no combinations", betType: models.BetTypeExacta, sel: models.BoatSelection{First: []int{1}, Second: []int{1}}, stake: 100, wantErr: models.ErrEmptyFormation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := new(MockCartStore)
			store.On("Load", ctx, testSessionID).Return(&models.Cart{}, nil)

			svc := NewCartService(store)
			_, err := svc.AddFormation(ctx, testSessionID, tt.betType, tt.sel, tt.stake)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, CodeInvalidRequest, ErrorCode(err))
			store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCartService_EditStakes(t *testing.T) {
	ctx := context.Background()
	cart := &models.Cart{}
	_, err := cart.AddFormation("f1", models.BetTypeQuinella, models.BoatSelection{First: []int{1, 2, 3}, Second: []int{1, 2, 3}}, 100)
	require.NoError(t, err)

	store := new(MockCartStore)
	store.On("Load", ctx, testSessionID).Return(cart, nil)
	store.On("Save", ctx, testSessionID, cart).Return(nil)

	svc := NewCartService(store)

	got, err := svc.SetStakeOne(ctx, testSessionID, "f1", "1-2", 500)
	require.NoError(t, err)
	assert.True(t, got.Formations[0].IsIndividualStake)
	assert.Equal(t, int64(700), got.TotalStake())

	got, err = svc.SetStakeAll(ctx, testSessionID, "f1", 200)
	require.NoError(t, err)
	assert.False(t, got.Formations[0].IsIndividualStake)
	assert.Equal(t, int64(600), got.TotalStake())

	_, err = svc.SetStakeOne(ctx, testSessionID, "f1", "4-5", 100)
	assert.ErrorIs(t, err, models.ErrNotFound)

	store.AssertExpectations(t)
}

func TestCartService_RemoveLastCombinationDropsFormation(t *testing.T) {
	ctx := context.Background()
	cart := &models.Cart{}
	_, err := cart.AddFormation("f1", models.BetTypeWin, models.BoatSelection{First: []int{4}}, 100)
	require.NoError(t, err)

	store := new(MockCartStore)
	store.On("Load", ctx, testSessionID).Return(cart, nil)
	store.On("Save", ctx, testSessionID, cart).Return(nil)

	svc := NewCartService(store)
	got, err := svc.RemoveCombination(ctx, testSessionID, "f1", "4")

	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	store.AssertExpectations(t)
}

func TestCartService_Clear(t *testing.T) {
	ctx := context.Background()
	store := new(MockCartStore)
	store.On("Delete", ctx, testSessionID).Return(nil).Once()
	store.On("Delete", ctx, "broken").Return(errors.New("redis down")).Once()

	svc := NewCartService(store)

	assert.NoError(t, svc.Clear(ctx, testSessionID))
	assert.Error(t, svc.Clear(ctx, "broken"))
	store.AssertExpectations(t)
}
