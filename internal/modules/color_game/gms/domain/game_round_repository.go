package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CloseParams carries everything written when a round closes.
type CloseParams struct {
	ModeID         string
	PeriodNumber   int64
	Result         Result
	EndTime        time.Time
	TotalBets      int
	TotalPlayers   int
	TotalBetAmount decimal.Decimal
	TotalPayout    decimal.Decimal
}

// GameRoundRepository defines the interface for game round persistence
type GameRoundRepository interface {
	// WithTx returns a repository bound to tx.
	WithTx(tx *gorm.DB) GameRoundRepository

	Create(ctx context.Context, round *Round) error
	// Get returns ErrRoundNotFound when the period does not exist.
	Get(ctx context.Context, modeID string, periodNumber int64) (*Round, error)
	// Latest returns the highest period of the mode, or nil when there is none.
	Latest(ctx context.Context, modeID string) (*Round, error)
	// List returns rounds newest first; beforePeriod <= 0 means no upper bound.
	List(ctx context.Context, modeID string, beforePeriod int64, limit int) ([]*Round, error)

	// MarkLocked moves OPEN -> LOCKED. It reports false when the round was not OPEN.
	MarkLocked(ctx context.Context, modeID string, periodNumber int64, at time.Time) (bool, error)
	// MarkClosed moves LOCKED -> CLOSED with the result. It reports false when the round was not LOCKED.
	MarkClosed(ctx context.Context, params CloseParams) (bool, error)
}

// RoundResultRepository stores the one result allowed per period.
type RoundResultRepository interface {
	WithTx(tx *gorm.DB) RoundResultRepository

	// Get returns nil when no result has been recorded.
	Get(ctx context.Context, modeID string, periodNumber int64) (*RoundResult, error)
	// Insert reports false when a result for the period already exists.
	Insert(ctx context.Context, result *RoundResult) (bool, error)
}
