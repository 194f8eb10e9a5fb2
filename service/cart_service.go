package service

import (
	"context"
	"fmt"
	"time"

	"boatbet/metrics"
	"boatbet/models"

	"github.com/google/uuid"
)

type cartService struct {
	store CartStore
	now   Clock
}

// NewCartService creates a cart service backed by the given store
func NewCartService(store CartStore) CartService {
	return &cartService{store: store, now: systemClock}
}

func (s *cartService) Get(ctx context.Context, sessionID string) (*models.Cart, error) {
	cart, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return cart, nil
}

func (s *cartService) AddFormation(ctx context.Context, sessionID string, betType models.BetType, selections models.BoatSelection, stake int64) (*models.Cart, error) {
	return s.mutate(ctx, sessionID, "add_formation", func(cart *models.Cart) error {
		_, err := cart.AddFormation(uuid.NewString(), betType, selections, stake)
		return err
	})
}

func (s *cartService) SetStakeAll(ctx context.Context, sessionID, formationID string, stake int64) (*models.Cart, error) {
	return s.mutate(ctx, sessionID, "set_stake_all", func(cart *models.Cart) error {
		return cart.SetStakeAll(formationID, stake)
	})
}

func (s *cartService) SetStakeOne(ctx context.Context, sessionID, formationID, combinationID string, stake int64) (*models.Cart, error) {
	return s.mutate(ctx, sessionID, "set_stake_one", func(cart *models.Cart) error {
		return cart.SetStakeOne(formationID, combinationID, stake)
	})
}

func (s *cartService) RemoveCombination(ctx context.Context, sessionID, formationID, combinationID string) (*models.Cart, error) {
	return s.mutate(ctx, sessionID, "remove_combination", func(cart *models.Cart) error {
		return cart.RemoveCombination(formationID, combinationID)
	})
}

func (s *cartService) RemoveFormation(ctx context.Context, sessionID, formationID string) (*models.Cart, error) {
	return s.mutate(ctx, sessionID, "remove_formation", func(cart *models.Cart) error {
		return cart.RemoveFormation(formationID)
	})
}

func (s *cartService) Clear(ctx context.Context, sessionID string) error {
	metrics.CartOperationsTotal.WithLabelValues("clear").Inc()
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// mutate loads the session's cart, applies fn and saves the result if fn succeeded
func (s *cartService) mutate(ctx context.Context, sessionID, op string, fn func(cart *models.Cart) error) (*models.Cart, error) {
	cart, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	if err := fn(cart); err != nil {
		return nil, err
	}
	cart.UpdatedAt = s.now().Truncate(time.Millisecond)

	if err := s.store.Save(ctx, sessionID, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	metrics.CartOperationsTotal.WithLabelValues(op).Inc()
	return cart, nil
}
