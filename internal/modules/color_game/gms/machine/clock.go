package machine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
)

// Settler closes a LOCKED round. It must be safe to call repeatedly.
type Settler interface {
	Settle(ctx context.Context, modeID string, periodNumber int64) error
}

// Options tunes a RoundClock.
type Options struct {
	LockBuffer    time.Duration
	SettleTimeout time.Duration
	RetryInitial  time.Duration
	RetryMax      time.Duration
	StuckCeiling  time.Duration
	FirstPeriod   int64
	Now           func() time.Time
}

func (o *Options) setDefaults() {
	if o.SettleTimeout <= 0 {
		o.SettleTimeout = 10 * time.Second
	}
	if o.RetryInitial <= 0 {
		o.RetryInitial = 500 * time.Millisecond
	}
	if o.RetryMax < o.RetryInitial {
		o.RetryMax = 30 * time.Second
	}
	if o.StuckCeiling <= 0 {
		o.StuckCeiling = 2 * time.Minute
	}
	if o.FirstPeriod < 1 {
		o.FirstPeriod = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// RoundClock drives the OPEN -> LOCKED -> CLOSED cycle of one mode and owns
// the authoritative current-period pointer. Bet placement runs under the read
// lock, the lock transition under the write lock, so no bet lands after LOCKED.
type RoundClock struct {
	mu      sync.RWMutex
	current *domain.Round

	mode    domain.GameMode
	repo    domain.GameRoundRepository
	settler Settler
	opts    Options

	handlersMu    sync.RWMutex
	eventHandlers []EventHandler

	attempts    int
	stuckAlerts int

	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRoundClock creates a clock for one mode
func NewRoundClock(mode domain.GameMode, repo domain.GameRoundRepository, settler Settler, opts Options) *RoundClock {
	opts.setDefaults()
	return &RoundClock{
		mode:    mode,
		repo:    repo,
		settler: settler,
		opts:    opts,
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

// RegisterEventHandler registers an event handler
func (c *RoundClock) RegisterEventHandler(handler EventHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.eventHandlers = append(c.eventHandlers, handler)
}

func (c *RoundClock) emitEvent(event GameEvent) {
	c.handlersMu.RLock()
	handlers := make([]EventHandler, len(c.eventHandlers))
	copy(handlers, c.eventHandlers)
	c.handlersMu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// Mode returns the mode this clock drives.
func (c *RoundClock) Mode() domain.GameMode {
	return c.mode
}

// Recover rebuilds the current pointer from persisted rounds. An OPEN round
// past its lock time is locked on the next Step; a LOCKED round is settled.
func (c *RoundClock) Recover(ctx context.Context) error {
	latest, err := c.repo.Latest(ctx, c.mode.ID)
	if err != nil {
		return fmt.Errorf("recover %s: %w", c.mode.ID, err)
	}

	if latest == nil {
		logger.Info(ctx).Str("mode_id", c.mode.ID).Msg("[GMS] no persisted rounds, cold start")
		return c.openPeriod(ctx, c.opts.FirstPeriod)
	}

	logger.Info(ctx).
		Str("mode_id", c.mode.ID).
		Int64("period_number", latest.PeriodNumber).
		Str("status", string(latest.Status)).
		Msg("[GMS] recovered round state")

	c.mu.Lock()
	c.current = latest
	c.mu.Unlock()

	if latest.Status == domain.RoundStatusClosed {
		return c.openPeriod(ctx, latest.PeriodNumber+1)
	}
	return nil
}

// Current returns a snapshot of the current round (thread-safe)
func (c *RoundClock) Current() (RoundView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return RoundView{}, false
	}
	return newRoundView(c.current, c.opts.Now()), true
}

// WithOpenRound runs fn while periodNumber is guaranteed to stay OPEN.
func (c *RoundClock) WithOpenRound(periodNumber int64, fn func() error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil || c.current.PeriodNumber != periodNumber || !c.current.AcceptsBetsAt(c.opts.Now()) {
		return fmt.Errorf("%w: %s #%d", domain.ErrRoundNotOpen, c.mode.ID, periodNumber)
	}
	return fn()
}

// RetryNow wakes the loop so a LOCKED round is settled without waiting for the backoff.
func (c *RoundClock) RetryNow() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Stop signals the loop to exit after the transition in progress
func (c *RoundClock) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Run drives the clock until ctx is done or Stop is called. Recover must have succeeded first.
func (c *RoundClock) Run(ctx context.Context) {
	logger.Info(ctx).Str("mode_id", c.mode.ID).Msg("🚀 [GMS] Round clock started")

	for {
		wait := c.Step(ctx)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.stopped(ctx)
			return
		case <-c.stopCh:
			timer.Stop()
			c.stopped(ctx)
			return
		case <-c.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (c *RoundClock) stopped(ctx context.Context) {
	logger.Info(ctx).Str("mode_id", c.mode.ID).Msg("🛑 [GMS] Round clock stopped")
	view, _ := c.Current()
	c.emitEvent(GameEvent{Type: EventMachineStopped, Round: view})
}

// Step performs whatever transition is due and returns how long to wait
// before the next one.
func (c *RoundClock) Step(ctx context.Context) time.Duration {
	c.mu.RLock()
	cur := c.current
	c.mu.RUnlock()

	if cur == nil {
		if err := c.Recover(ctx); err != nil {
			logger.Error(ctx).Err(err).Str("mode_id", c.mode.ID).Msg("[GMS] recover failed")
			return c.backoff()
		}
		return 0
	}

	now := c.opts.Now()
	switch cur.Status {
	case domain.RoundStatusOpen:
		if now.Before(cur.LockAt) {
			return cur.LockAt.Sub(now)
		}
		if err := c.lock(ctx, cur.PeriodNumber); err != nil {
			logger.Error(ctx).Err(err).
				Str("mode_id", c.mode.ID).
				Int64("period_number", cur.PeriodNumber).
				Msg("[GMS] lock transition failed")
			return c.backoff()
		}
		return 0

	case domain.RoundStatusLocked:
		if err := c.settle(ctx, cur); err != nil {
			return c.settleFailed(ctx, cur, err)
		}
		c.attempts = 0
		c.stuckAlerts = 0
		return 0

	default:
		if err := c.openPeriod(ctx, cur.PeriodNumber+1); err != nil {
			logger.Error(ctx).Err(err).Str("mode_id", c.mode.ID).Msg("[GMS] open next period failed")
			return c.backoff()
		}
		c.attempts = 0
		return 0
	}
}

func (c *RoundClock) openPeriod(ctx context.Context, periodNumber int64) error {
	round := domain.NewRound(c.mode, periodNumber, c.opts.Now(), c.opts.LockBuffer)
	if err := c.repo.Create(ctx, round); err != nil {
		return fmt.Errorf("create round %s #%d: %w", c.mode.ID, periodNumber, err)
	}

	c.mu.Lock()
	c.current = round
	c.mu.Unlock()

	logger.Info(ctx).
		Str("mode_id", c.mode.ID).
		Int64("period_number", periodNumber).
		Time("lock_at", round.LockAt).
		Msg("🟢 [GMS] 回合開始 (Round Opened)")

	c.emitEvent(GameEvent{Type: EventRoundOpened, Round: newRoundView(round, c.opts.Now())})
	return nil
}

func (c *RoundClock) lock(ctx context.Context, periodNumber int64) error {
	c.mu.Lock()
	now := c.opts.Now()
	ok, err := c.repo.MarkLocked(ctx, c.mode.ID, periodNumber, now)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	if ok {
		locked := *c.current
		locked.Status = domain.RoundStatusLocked
		locked.LockedAt = &now
		c.current = &locked
	} else {
		// Already moved on (another writer or a replayed transition); trust the store.
		persisted, err := c.repo.Get(ctx, c.mode.ID, periodNumber)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.current = persisted
	}
	view := newRoundView(c.current, now)
	c.mu.Unlock()

	logger.Info(ctx).
		Str("mode_id", c.mode.ID).
		Int64("period_number", periodNumber).
		Msg("🔒 [GMS] 停止下注 (Round Locked)")

	c.emitEvent(GameEvent{Type: EventRoundLocked, Round: view})
	return nil
}

func (c *RoundClock) settle(ctx context.Context, cur *domain.Round) error {
	settleCtx, cancel := context.WithTimeout(ctx, c.opts.SettleTimeout)
	defer cancel()

	if err := c.settler.Settle(settleCtx, cur.ModeID, cur.PeriodNumber); err != nil {
		return err
	}

	closed, err := c.repo.Get(ctx, cur.ModeID, cur.PeriodNumber)
	if err != nil {
		return err
	}
	if closed.Status != domain.RoundStatusClosed {
		return fmt.Errorf("round %s #%d still %s after settlement", cur.ModeID, cur.PeriodNumber, closed.Status)
	}

	c.mu.Lock()
	c.current = closed
	c.mu.Unlock()

	logger.Info(ctx).
		Str("mode_id", cur.ModeID).
		Int64("period_number", cur.PeriodNumber).
		Int("result_number", *closed.ResultNumber).
		Str("result_color", string(*closed.ResultColor)).
		Bool("was_manual", closed.WasManual).
		Msg("🏁 [GMS] 回合結束 (Round Closed)")

	c.emitEvent(GameEvent{Type: EventRoundClosed, Round: newRoundView(closed, c.opts.Now())})
	return nil
}

func (c *RoundClock) settleFailed(ctx context.Context, cur *domain.Round, err error) time.Duration {
	wait := c.backoff()
	view := newRoundView(cur, c.opts.Now())

	logger.Warn(ctx).Err(err).
		Str("mode_id", cur.ModeID).
		Int64("period_number", cur.PeriodNumber).
		Int("attempt", c.attempts).
		Dur("retry_in", wait).
		Msg("[GMS] settlement failed, round stays LOCKED")
	c.emitEvent(GameEvent{Type: EventSettlementFailed, Round: view, Error: err.Error()})

	lockedSince := cur.LockAt
	if cur.LockedAt != nil {
		lockedSince = *cur.LockedAt
	}
	if stuckFor := c.opts.Now().Sub(lockedSince); stuckFor > c.opts.StuckCeiling {
		c.stuckAlerts++
		logger.Error(ctx).Err(err).
			Str("mode_id", cur.ModeID).
			Int64("period_number", cur.PeriodNumber).
			Dur("locked_for", stuckFor).
			Int("alerts", c.stuckAlerts).
			Msg("🚨 [GMS] round stuck LOCKED beyond ceiling")
		c.emitEvent(GameEvent{Type: EventRoundStuck, Round: view, Error: err.Error()})
	}
	return wait
}

func (c *RoundClock) backoff() time.Duration {
	wait := c.opts.RetryInitial
	for i := 0; i < c.attempts && wait < c.opts.RetryMax; i++ {
		wait *= 2
	}
	if wait > c.opts.RetryMax {
		wait = c.opts.RetryMax
	}
	c.attempts++
	return wait
}
