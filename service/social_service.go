package service

import (
	"context"
	"fmt"

	"boatbet/models"

	log "github.com/sirupsen/logrus"
)

type socialService struct {
	uowFactory UnitOfWorkFactory
}

// NewSocialService creates a new social service
func NewSocialService(uowFactory UnitOfWorkFactory) SocialService {
	return &socialService{uowFactory: uowFactory}
}

// Profile returns the public part of the user. Balances are never included.
func (s *socialService) Profile(ctx context.Context, userID, viewerID string) (*models.Profile, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}

	followers, following, err := uow.FollowRepository().Counts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count follows: %w", err)
	}

	profile := &models.Profile{
		ID:             user.ID,
		Name:           user.Name,
		Bio:            user.Bio,
		FollowerCount:  followers,
		FollowingCount: following,
	}
	if viewerID != "" && viewerID != userID {
		profile.IsFollowing, err = uow.FollowRepository().IsFollowing(ctx, viewerID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check follow: %w", err)
		}
	}
	return profile, nil
}

// Follow is idempotent: following someone twice leaves a single edge
func (s *socialService) Follow(ctx context.Context, followerID, targetID string) (*models.FollowResult, error) {
	if err := checkFollowPair(followerID, targetID); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	target, err := uow.UserRepository().GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if target == nil {
		return nil, fmt.Errorf("user %s: %w", targetID, models.ErrNotFound)
	}

	created, err := uow.FollowRepository().Follow(ctx, followerID, targetID)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if created {
		log.WithFields(log.Fields{
			"followerId":  followerID,
			"followingId": targetID,
		}).Info("User followed")
	}
	return &models.FollowResult{Success: true, IsFollowing: true}, nil
}

// Unfollow is idempotent: unfollowing someone not followed succeeds
func (s *socialService) Unfollow(ctx context.Context, followerID, targetID string) (*models.FollowResult, error) {
	if err := checkFollowPair(followerID, targetID); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	removed, err := uow.FollowRepository().Unfollow(ctx, followerID, targetID)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if removed {
		log.WithFields(log.Fields{
			"followerId":  followerID,
			"followingId": targetID,
		}).Info("User unfollowed")
	}
	return &models.FollowResult{Success: true, IsFollowing: false}, nil
}

func checkFollowPair(followerID, targetID string) error {
	switch {
	case followerID == "":
		return fmt.Errorf("follow: %w", models.ErrUnauthorized)
	case followerID == targetID:
		return fmt.Errorf("%w: cannot follow yourself", ErrInvalidRequest)
	}
	return nil
}
