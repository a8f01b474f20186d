package domain

import "errors"

var (
	// ErrUnknownMode is returned when a mode id is not in the catalog.
	ErrUnknownMode = errors.New("unknown game mode")
	// ErrInvalidResult is returned for a result number outside 0-9.
	ErrInvalidResult = errors.New("invalid result")

	// ErrRoundNotFound is returned when no round exists for mode+period.
	ErrRoundNotFound = errors.New("round not found")
	// ErrRoundNotOpen is returned when betting on a round that is not OPEN.
	ErrRoundNotOpen = errors.New("round not open")
	// ErrRoundStillOpen is returned when reading the bet set of an OPEN round.
	ErrRoundStillOpen = errors.New("round still open")
	// ErrRoundNotLocked is returned when a manual result targets a round that is not LOCKED.
	ErrRoundNotLocked = errors.New("round not locked")
	// ErrResultAlreadySet is returned when a round already has a result.
	ErrResultAlreadySet = errors.New("result already set")
)
