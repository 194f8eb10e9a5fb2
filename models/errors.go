package models

import "errors"

// Business errors shared by the cart model and the services
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrDeadlinePassed     = errors.New("deadline passed")
	ErrParseFailure       = errors.New("malformed formation payload")
	ErrDuplicateCharge    = errors.New("purchase already recorded")
	ErrEmptyFormation     = errors.New("selection produces no combinations")
	ErrInvalidStake       = errors.New("stake out of range")
	ErrInvalidBetType     = errors.New("unknown bet type")
)
