package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Settlement is the outcome written onto one bet.
type Settlement struct {
	BetID     string
	Status    BetStatus
	Profit    decimal.Decimal
	IsWinner  bool
	ActualWin decimal.Decimal
	SettledAt time.Time
}

// BetRepository defines the interface for bet storage
type BetRepository interface {
	// WithTx returns a repository bound to tx.
	WithTx(tx *gorm.DB) BetRepository

	Create(ctx context.Context, bet *Bet) error

	// ListByRound returns every bet of a period in placement order.
	ListByRound(ctx context.Context, modeID string, periodNumber int64) ([]*Bet, error)

	// ListByUserRound returns a user's bets of a period.
	ListByUserRound(ctx context.Context, modeID string, periodNumber int64, userID int64) ([]*Bet, error)

	// Settle writes the outcome onto a PENDING bet. It reports false when the bet was already settled.
	Settle(ctx context.Context, s Settlement) (bool, error)
}
