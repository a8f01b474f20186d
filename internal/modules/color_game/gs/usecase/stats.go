package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	gmsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/machine"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
)

// modeStats is the tally of one mode. Writers serialize on mu and publish an
// immutable snapshot; readers only load the pointer.
type modeStats struct {
	mu      sync.Mutex
	working *domain.LiveGameStats
	players map[int64]struct{}

	snapshot atomic.Pointer[domain.LiveGameStats]
}

func emptyStats(modeID string, periodNumber int64) *domain.LiveGameStats {
	s := &domain.LiveGameStats{
		ModeID:         modeID,
		ActiveGame:     periodNumber,
		TotalBetAmount: decimal.Zero,
		ColorBets:      make(map[string]domain.Tally, len(gmsdomain.Colors)),
		NumberBets:     make(map[string]domain.Tally, 10),
	}
	for _, c := range gmsdomain.Colors {
		s.ColorBets[c.String()] = domain.Tally{Amount: decimal.Zero}
	}
	for n := 0; n <= 9; n++ {
		s.NumberBets[strconv.Itoa(n)] = domain.Tally{Amount: decimal.Zero}
	}
	return s
}

func cloneStats(s *domain.LiveGameStats) *domain.LiveGameStats {
	c := *s
	c.ColorBets = make(map[string]domain.Tally, len(s.ColorBets))
	for k, v := range s.ColorBets {
		c.ColorBets[k] = v
	}
	c.NumberBets = make(map[string]domain.Tally, len(s.NumberBets))
	for k, v := range s.NumberBets {
		c.NumberBets[k] = v
	}
	return &c
}

// reset must be called with mu held.
func (m *modeStats) reset(modeID string, periodNumber int64) {
	m.working = emptyStats(modeID, periodNumber)
	m.players = make(map[int64]struct{})
	m.snapshot.Store(cloneStats(m.working))
}

// LiveStatsAggregator keeps the running tally of each mode's open round.
// Stats are advisory; they never take part in settlement.
type LiveStatsAggregator struct {
	modes  map[string]*modeStats
	mirror domain.StatsRepository
	dirty  chan struct{}
}

// NewLiveStatsAggregator creates a tally per mode. mirror may be nil.
func NewLiveStatsAggregator(modeIDs []string, mirror domain.StatsRepository) *LiveStatsAggregator {
	a := &LiveStatsAggregator{
		modes:  make(map[string]*modeStats, len(modeIDs)),
		mirror: mirror,
		dirty:  make(chan struct{}, 1),
	}
	for _, id := range modeIDs {
		m := &modeStats{}
		m.reset(id, 0)
		a.modes[id] = m
	}
	return a
}

// Record adds an accepted bet to its mode's tally.
func (a *LiveStatsAggregator) Record(bet *domain.Bet) {
	m, ok := a.modes[bet.ModeID]
	if !ok {
		return
	}

	m.mu.Lock()
	if m.working.ActiveGame != bet.PeriodNumber {
		// First bet after a restart recovered an OPEN round without an opened event.
		if bet.PeriodNumber < m.working.ActiveGame {
			m.mu.Unlock()
			return
		}
		m.reset(bet.ModeID, bet.PeriodNumber)
	}

	w := m.working
	w.TotalBets++
	w.TotalBetAmount = w.TotalBetAmount.Add(bet.Amount)
	tallies := w.NumberBets
	if bet.BetType == domain.BetTypeColor {
		tallies = w.ColorBets
	}
	t := tallies[bet.BetValue]
	t.Count++
	t.Amount = t.Amount.Add(bet.Amount)
	tallies[bet.BetValue] = t

	if _, seen := m.players[bet.UserID]; !seen {
		m.players[bet.UserID] = struct{}{}
		w.ActivePlayers = len(m.players)
	}
	m.snapshot.Store(cloneStats(w))
	m.mu.Unlock()

	a.markDirty()
}

// HandleRoundEvent resets a mode's tally when a round opens and discards it
// once the round leaves OPEN.
func (a *LiveStatsAggregator) HandleRoundEvent(event machine.GameEvent) {
	m, ok := a.modes[event.Round.ModeID]
	if !ok {
		return
	}

	switch event.Type {
	case machine.EventRoundOpened:
		m.mu.Lock()
		m.reset(event.Round.ModeID, event.Round.PeriodNumber)
		m.mu.Unlock()
	case machine.EventRoundLocked:
		m.mu.Lock()
		if m.working.ActiveGame <= event.Round.PeriodNumber {
			m.reset(event.Round.ModeID, 0)
		}
		m.mu.Unlock()
	default:
		return
	}
	a.markDirty()
}

// Get returns the current snapshot of a mode. Callers must not modify it.
func (a *LiveStatsAggregator) Get(modeID string) (*domain.LiveGameStats, error) {
	m, ok := a.modes[modeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gmsdomain.ErrUnknownMode, modeID)
	}
	return m.snapshot.Load(), nil
}

func (a *LiveStatsAggregator) markDirty() {
	if a.mirror == nil {
		return
	}
	select {
	case a.dirty <- struct{}{}:
	default:
	}
}

// RunMirror copies snapshots to the mirror whenever they change, until ctx is done.
func (a *LiveStatsAggregator) RunMirror(ctx context.Context) {
	if a.mirror == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.dirty:
			a.flush(ctx)
		}
	}
}

func (a *LiveStatsAggregator) flush(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	for modeID, m := range a.modes {
		snap := m.snapshot.Load()
		var err error
		if snap.ActiveGame == 0 {
			err = a.mirror.Delete(flushCtx, modeID)
		} else {
			err = a.mirror.Save(flushCtx, snap)
		}
		if err != nil {
			logger.Warn(ctx).Err(err).Str("mode_id", modeID).Msg("live stats mirror write failed")
		}
	}
}
