package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/machine"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
)

func roundEvent(eventType machine.EventType, period int64) machine.GameEvent {
	return machine.GameEvent{Type: eventType, Round: machine.RoundView{ModeID: blitz.ID, PeriodNumber: period}}
}

func statsBet(userID, period int64, betType domain.BetType, value, amount string) *domain.Bet {
	return &domain.Bet{
		UserID:       userID,
		ModeID:       blitz.ID,
		PeriodNumber: period,
		BetType:      betType,
		BetValue:     value,
		Amount:       decimalOf(amount),
	}
}

// memoryMirror records what the aggregator mirrors.
type memoryMirror struct {
	mu    sync.Mutex
	saved map[string]*domain.LiveGameStats
}

func (m *memoryMirror) Save(_ context.Context, s *domain.LiveGameStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[s.ModeID] = s
	return nil
}

func (m *memoryMirror) Get(_ context.Context, modeID string) (*domain.LiveGameStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[modeID], nil
}

func (m *memoryMirror) Delete(_ context.Context, modeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, modeID)
	return nil
}

func TestStatsStartEmpty(t *testing.T) {
	a := NewLiveStatsAggregator([]string{blitz.ID}, nil)

	s, err := a.Get(blitz.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.ActiveGame)
	assert.Len(t, s.ColorBets, 3)
	assert.Len(t, s.NumberBets, 10)
	assertDecimal(t, "0", s.TotalBetAmount)

	_, err = a.Get("turbo")
	assert.True(t, errors.Is(err, gmsdomain.ErrUnknownMode))
}

func TestStatsFollowRoundLifecycle(t *testing.T) {
	a := NewLiveStatsAggregator([]string{blitz.ID}, nil)

	a.HandleRoundEvent(roundEvent(machine.EventRoundOpened, 5))
	a.Record(statsBet(1, 5, domain.BetTypeColor, "GREEN", "10"))
	a.Record(statsBet(1, 5, domain.BetTypeNumber, "9", "1"))

	s, _ := a.Get(blitz.ID)
	assert.Equal(t, int64(5), s.ActiveGame)
	assert.Equal(t, 2, s.TotalBets)
	assert.Equal(t, 1, s.ActivePlayers)

	// A bet for an older period never lands in the current tally.
	a.Record(statsBet(2, 4, domain.BetTypeColor, "RED", "10"))
	s, _ = a.Get(blitz.ID)
	assert.Equal(t, 2, s.TotalBets)

	a.HandleRoundEvent(roundEvent(machine.EventRoundLocked, 5))
	s, _ = a.Get(blitz.ID)
	assert.Equal(t, int64(0), s.ActiveGame)
	assert.Equal(t, 0, s.TotalBets)

	// Closing events leave the tally alone.
	a.HandleRoundEvent(roundEvent(machine.EventRoundClosed, 5))
	a.HandleRoundEvent(roundEvent(machine.EventRoundOpened, 6))
	s, _ = a.Get(blitz.ID)
	assert.Equal(t, int64(6), s.ActiveGame)
	assert.Equal(t, 0, s.TotalBets)
}

func TestStatsAdoptNewerPeriod(t *testing.T) {
	a := NewLiveStatsAggregator([]string{blitz.ID}, nil)

	a.Record(statsBet(1, 12, domain.BetTypeColor, "VIOLET", "3"))
	s, _ := a.Get(blitz.ID)
	assert.Equal(t, int64(12), s.ActiveGame)
	assert.Equal(t, 1, s.ColorBets["VIOLET"].Count)
}

func TestStatsSnapshotsAreImmutable(t *testing.T) {
	a := NewLiveStatsAggregator([]string{blitz.ID}, nil)
	a.HandleRoundEvent(roundEvent(machine.EventRoundOpened, 1))
	a.Record(statsBet(1, 1, domain.BetTypeColor, "RED", "10"))

	before, _ := a.Get(blitz.ID)
	a.Record(statsBet(2, 1, domain.BetTypeColor, "RED", "5"))
	after, _ := a.Get(blitz.ID)

	assert.Equal(t, 1, before.ColorBets["RED"].Count)
	assert.Equal(t, 1, before.TotalBets)
	assert.Equal(t, 2, after.ColorBets["RED"].Count)
	assertDecimal(t, "15", after.ColorBets["RED"].Amount)
}

func TestStatsConcurrentRecord(t *testing.T) {
	a := NewLiveStatsAggregator([]string{blitz.ID}, nil)
	a.HandleRoundEvent(roundEvent(machine.EventRoundOpened, 1))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			a.Record(statsBet(user%10, 1, domain.BetTypeNumber, "3", "2"))
			_, _ = a.Get(blitz.ID)
		}(int64(i))
	}
	wg.Wait()

	s, _ := a.Get(blitz.ID)
	assert.Equal(t, 50, s.TotalBets)
	assert.Equal(t, 10, s.ActivePlayers)
	assert.Equal(t, 50, s.NumberBets["3"].Count)
	assertDecimal(t, "100", s.TotalBetAmount)
}

func TestStatsMirror(t *testing.T) {
	mirror := &memoryMirror{saved: make(map[string]*domain.LiveGameStats)}
	a := NewLiveStatsAggregator([]string{blitz.ID}, mirror)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.RunMirror(ctx)

	a.HandleRoundEvent(roundEvent(machine.EventRoundOpened, 3))
	a.Record(statsBet(1, 3, domain.BetTypeColor, "GREEN", "4"))

	assert.Eventually(t, func() bool {
		s, _ := mirror.Get(ctx, blitz.ID)
		return s != nil && s.TotalBets == 1
	}, time.Second, 10*time.Millisecond)

	a.HandleRoundEvent(roundEvent(machine.EventRoundLocked, 3))
	assert.Eventually(t, func() bool {
		s, _ := mirror.Get(ctx, blitz.ID)
		return s == nil
	}, time.Second, 10*time.Millisecond)
}
