package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Tally is a bet count and the amount staked.
type Tally struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// LiveGameStats is the running tally of the open round of one mode.
type LiveGameStats struct {
	ModeID         string           `json:"mode_id"`
	ActiveGame     int64            `json:"active_game"`
	TotalBets      int              `json:"total_bets"`
	TotalBetAmount decimal.Decimal  `json:"total_bet_amount"`
	ColorBets      map[string]Tally `json:"color_bets"`
	NumberBets     map[string]Tally `json:"number_bets"`
	ActivePlayers  int              `json:"active_players"`
}

// StatsRepository mirrors live stats to a store readable by other processes.
type StatsRepository interface {
	Save(ctx context.Context, stats *LiveGameStats) error
	Get(ctx context.Context, modeID string) (*LiveGameStats, error)
	Delete(ctx context.Context, modeID string) error
}
