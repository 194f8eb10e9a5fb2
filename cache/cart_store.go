package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"boatbet/models"

	"github.com/redis/go-redis/v9"
)

const cartKeyPrefix = "cart:"

// ConnectRedis creates a client and pings it
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

// CartStore keeps each session's cart as a JSON value that expires after ttl of inactivity
type CartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCartStore creates a cart store on the given client
func NewCartStore(rdb *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{rdb: rdb, ttl: ttl}
}

func cartKey(sessionID string) string {
	return cartKeyPrefix + sessionID
}

// Load returns the session's cart or an empty one
func (s *CartStore) Load(ctx context.Context, sessionID string) (*models.Cart, error) {
	raw, err := s.rdb.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &models.Cart{Formations: []models.Formation{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get cart: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("cart for session %s: %w: %v", sessionID, models.ErrParseFailure, err)
	}
	if cart.Formations == nil {
		cart.Formations = []models.Formation{}
	}
	return &cart, nil
}

// Save stores the cart and restarts its expiry
func (s *CartStore) Save(ctx context.Context, sessionID string, cart *models.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.rdb.Set(ctx, cartKey(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set cart: %w", err)
	}
	return nil
}

// Delete removes the session's cart
func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis: delete cart: %w", err)
	}
	return nil
}
