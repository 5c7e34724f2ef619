package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidName    = errors.New("player name must not be empty")

	// Match errors
	ErrMatchNotFound  = errors.New("match not found")
	ErrMissingPlayer  = errors.New("both players are required")
	ErrSelfMatch      = errors.New("a player cannot play against themselves")
	ErrInvalidOutcome = errors.New("invalid match outcome")

	// Query errors
	ErrInvalidPeriod = errors.New("invalid scoreboard period")
)
