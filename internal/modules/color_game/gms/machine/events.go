package machine

import (
	"time"

	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
)

// EventType names a round lifecycle event
type EventType string

const (
	EventRoundOpened      EventType = "ROUND_OPENED"
	EventRoundLocked      EventType = "ROUND_LOCKED"
	EventRoundClosed      EventType = "ROUND_CLOSED"
	EventSettlementFailed EventType = "SETTLEMENT_FAILED"
	EventRoundStuck       EventType = "ROUND_STUCK"
	EventMachineStopped   EventType = "MACHINE_STOPPED"
)

// GameEvent represents a game event
type GameEvent struct {
	Type  EventType `json:"type"`
	Round RoundView `json:"round"`
	Error string    `json:"error,omitempty"`
}

// EventHandler handles game events. Handlers run on the clock goroutine and must not block.
type EventHandler func(event GameEvent)

// RoundView is a read-only snapshot of a round
type RoundView struct {
	ModeID       string             `json:"mode_id"`
	PeriodNumber int64              `json:"period_number"`
	Status       domain.RoundStatus `json:"status"`
	StartTime    time.Time          `json:"start_time"`
	LockAt       time.Time          `json:"lock_at"`
	EndsAt       time.Time          `json:"ends_at"`
	LeftTime     int64              `json:"left_time"` // seconds until lock, 0 once locked
	Result       *domain.Result     `json:"result,omitempty"`
}

func newRoundView(r *domain.Round, now time.Time) RoundView {
	v := RoundView{
		ModeID:       r.ModeID,
		PeriodNumber: r.PeriodNumber,
		Status:       r.Status,
		StartTime:    r.StartTime,
		LockAt:       r.LockAt,
		EndsAt:       r.EndsAt,
	}
	if r.Status == domain.RoundStatusOpen {
		if left := int64(r.LockAt.Sub(now).Seconds()); left > 0 {
			v.LeftTime = left
		}
	}
	if res, ok := r.Result(); ok {
		v.Result = &res
	}
	return v
}
