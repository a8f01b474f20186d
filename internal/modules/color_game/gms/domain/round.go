package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundStatus defines the status of a game round
type RoundStatus string

const (
	RoundStatusOpen   RoundStatus = "OPEN"
	RoundStatusLocked RoundStatus = "LOCKED"
	RoundStatusClosed RoundStatus = "CLOSED"
)

// Round is one betting period of a mode. Result fields are set exactly when
// Status is CLOSED.
type Round struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement" json:"-"`
	ModeID         string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_rounds_mode_period,priority:1" json:"mode_id"`
	PeriodNumber   int64           `gorm:"not null;uniqueIndex:idx_rounds_mode_period,priority:2" json:"period_number"`
	Status         RoundStatus     `gorm:"type:varchar(16);not null;index" json:"status"`
	StartTime      time.Time       `gorm:"not null" json:"start_time"`
	LockAt         time.Time       `gorm:"not null" json:"lock_at"`
	EndsAt         time.Time       `gorm:"not null" json:"ends_at"`
	LockedAt       *time.Time      `json:"locked_at,omitempty"`
	EndTime        *time.Time      `json:"end_time,omitempty"`
	ResultNumber   *int            `json:"result_number,omitempty"`
	ResultColor    *Color          `gorm:"type:varchar(16)" json:"result_color,omitempty"`
	WasManual      bool            `gorm:"not null;default:false" json:"was_manual"`
	TotalBets      int             `gorm:"not null;default:0" json:"total_bets"`
	TotalPlayers   int             `gorm:"not null;default:0" json:"total_players"`
	TotalBetAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_bet_amount"`
	TotalPayout    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_payout"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (Round) TableName() string {
	return "game_rounds"
}

// NewRound schedules an OPEN round starting at start.
func NewRound(mode GameMode, periodNumber int64, start time.Time, lockBuffer time.Duration) *Round {
	ends := start.Add(mode.Duration())
	return &Round{
		ModeID:         mode.ID,
		PeriodNumber:   periodNumber,
		Status:         RoundStatusOpen,
		StartTime:      start,
		LockAt:         ends.Add(-lockBuffer),
		EndsAt:         ends,
		TotalBetAmount: decimal.Zero,
		TotalPayout:    decimal.Zero,
	}
}

// AcceptsBetsAt reports whether a bet arriving at now may be placed.
func (r *Round) AcceptsBetsAt(now time.Time) bool {
	return r.Status == RoundStatusOpen && now.Before(r.LockAt)
}

// Result returns the committed result, if any.
func (r *Round) Result() (Result, bool) {
	if r.ResultNumber == nil || r.ResultColor == nil {
		return Result{}, false
	}
	return Result{Number: *r.ResultNumber, Color: *r.ResultColor, WasManual: r.WasManual}, true
}
