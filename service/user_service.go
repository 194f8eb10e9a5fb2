package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"boatbet/models"

	log "github.com/sirupsen/logrus"
)

const (
	maxNameLength = 50
	maxBioLength  = 500
)

// userService implements the UserService interface
type userService struct {
	uowFactory     UnitOfWorkFactory
	startingPoints int64
}

// NewUserService creates a new user service. New users start with startingPoints.
func NewUserService(uowFactory UnitOfWorkFactory, startingPoints int64) UserService {
	return &userService{
		uowFactory:     uowFactory,
		startingPoints: startingPoints,
	}
}

// GetOrCreate retrieves an existing user or creates a new one with the starting points
func (s *userService) GetOrCreate(ctx context.Context, id string, name string) (*models.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	// Primary key on id prevents duplicate users
	user, err = uow.UserRepository().Create(ctx, id, name, s.startingPoints)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userId": id,
		"points": user.Points,
	}).Info("User created")

	return user, nil
}

// Get retrieves a user
func (s *userService) Get(ctx context.Context, id string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return user, nil
}

// UpdateProfile edits the caller's own name and bio
func (s *userService) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	update.Name = strings.TrimSpace(update.Name)
	update.Bio = strings.TrimSpace(update.Bio)
	switch {
	case update.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case utf8.RuneCountInString(update.Name) > maxNameLength:
		return nil, fmt.Errorf("%w: name longer than %d characters", ErrInvalidRequest, maxNameLength)
	case utf8.RuneCountInString(update.Bio) > maxBioLength:
		return nil, fmt.Errorf("%w: bio longer than %d characters", ErrInvalidRequest, maxBioLength)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().UpdateProfile(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("userId", id).Info("Profile updated")
	return user, nil
}
