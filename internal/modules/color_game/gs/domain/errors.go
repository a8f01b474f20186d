package domain

import (
	"errors"

	gmsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/lock"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/service"
)

var (
	ErrInvalidBetValue     = errors.New("invalid bet value")
	ErrInvalidAmount       = errors.New("invalid bet amount")
	ErrInsufficientBalance = service.ErrInsufficientBalance
)

// IsValidationError reports errors caused by a bad request.
func IsValidationError(err error) bool {
	return errors.Is(err, gmsdomain.ErrUnknownMode) ||
		errors.Is(err, gmsdomain.ErrInvalidResult) ||
		errors.Is(err, ErrInvalidBetValue) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance)
}

// IsStateConflict reports errors caused by calling outside the allowed round window.
func IsStateConflict(err error) bool {
	return errors.Is(err, gmsdomain.ErrRoundNotOpen) ||
		errors.Is(err, gmsdomain.ErrRoundStillOpen) ||
		errors.Is(err, gmsdomain.ErrRoundNotLocked) ||
		errors.Is(err, gmsdomain.ErrResultAlreadySet) ||
		errors.Is(err, lock.ErrLockTimeout)
}
