// Package usecase implements the business logic for the color game GMS module.
package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/machine"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
)

// GMSUseCase owns one RoundClock per mode and exposes round state to the
// rest of the engine.
type GMSUseCase struct {
	registry    *domain.ModeRegistry
	clocks      map[string]*machine.RoundClock
	roundRepo   domain.GameRoundRepository
	resolver    *ResultResolver
	broadcaster domain.Broadcaster

	wg sync.WaitGroup
}

// NewGMSUseCase creates a clock for every registered mode
func NewGMSUseCase(
	registry *domain.ModeRegistry,
	roundRepo domain.GameRoundRepository,
	resolver *ResultResolver,
	settler machine.Settler,
	broadcaster domain.Broadcaster,
	opts machine.Options,
) *GMSUseCase {
	uc := &GMSUseCase{
		registry:    registry,
		clocks:      make(map[string]*machine.RoundClock),
		roundRepo:   roundRepo,
		resolver:    resolver,
		broadcaster: broadcaster,
	}

	for _, mode := range registry.All() {
		clock := machine.NewRoundClock(mode, roundRepo, settler, opts)
		clock.RegisterEventHandler(uc.handleGameEvent)
		uc.clocks[mode.ID] = clock
	}
	return uc
}

// handleGameEvent forwards lifecycle events to connected clients
func (uc *GMSUseCase) handleGameEvent(event machine.GameEvent) {
	if uc.broadcaster == nil {
		return
	}
	uc.broadcaster.Broadcast(event)
}

// RegisterEventHandler registers an additional event handler on every clock
func (uc *GMSUseCase) RegisterEventHandler(handler machine.EventHandler) {
	for _, clock := range uc.clocks {
		clock.RegisterEventHandler(handler)
	}
}

// Start recovers every clock from persisted rounds and runs them in the background.
func (uc *GMSUseCase) Start(ctx context.Context) error {
	for _, mode := range uc.registry.All() {
		if err := uc.clocks[mode.ID].Recover(ctx); err != nil {
			return err
		}
	}

	for _, mode := range uc.registry.All() {
		clock := uc.clocks[mode.ID]
		uc.wg.Add(1)
		go func() {
			defer uc.wg.Done()
			clock.Run(ctx)
		}()
	}
	return nil
}

// Stop stops every clock and waits for the loops to exit.
func (uc *GMSUseCase) Stop() {
	for _, clock := range uc.clocks {
		clock.Stop()
	}
	uc.wg.Wait()
}

func (uc *GMSUseCase) clock(modeID string) (*machine.RoundClock, error) {
	if _, err := uc.registry.Get(modeID); err != nil {
		return nil, err
	}
	return uc.clocks[modeID], nil
}

// Modes returns the catalog.
func (uc *GMSUseCase) Modes() []domain.GameMode {
	return uc.registry.All()
}

// WithOpenRound runs fn while the period is guaranteed to accept bets.
func (uc *GMSUseCase) WithOpenRound(ctx context.Context, modeID string, periodNumber int64, fn func() error) error {
	clock, err := uc.clock(modeID)
	if err != nil {
		return err
	}
	return clock.WithOpenRound(periodNumber, fn)
}

// GetCurrentRound returns the in-flight round of a mode
func (uc *GMSUseCase) GetCurrentRound(ctx context.Context, modeID string) (machine.RoundView, error) {
	clock, err := uc.clock(modeID)
	if err != nil {
		return machine.RoundView{}, err
	}
	view, ok := clock.Current()
	if !ok {
		return machine.RoundView{}, fmt.Errorf("%w: no active round for %s", domain.ErrRoundNotFound, modeID)
	}
	return view, nil
}

// GetRound returns one persisted round.
func (uc *GMSUseCase) GetRound(ctx context.Context, modeID string, periodNumber int64) (*domain.Round, error) {
	if _, err := uc.registry.Get(modeID); err != nil {
		return nil, err
	}
	return uc.roundRepo.Get(ctx, modeID, periodNumber)
}

// ListRounds returns round history, newest first.
func (uc *GMSUseCase) ListRounds(ctx context.Context, modeID string, beforePeriod int64, limit int) ([]*domain.Round, error) {
	if _, err := uc.registry.Get(modeID); err != nil {
		return nil, err
	}
	return uc.roundRepo.List(ctx, modeID, beforePeriod, limit)
}

// SubmitManualResult records an admin override for a LOCKED round.
func (uc *GMSUseCase) SubmitManualResult(ctx context.Context, modeID string, periodNumber int64, number int) (domain.Result, error) {
	if _, err := uc.registry.Get(modeID); err != nil {
		return domain.Result{}, err
	}
	ctx = logger.WithRound(ctx, modeID, periodNumber)
	return uc.resolver.SubmitManualResult(ctx, modeID, periodNumber, number)
}

// RetrySettlement asks the mode's clock to settle a LOCKED round now.
func (uc *GMSUseCase) RetrySettlement(ctx context.Context, modeID string, periodNumber int64) error {
	clock, err := uc.clock(modeID)
	if err != nil {
		return err
	}
	round, err := uc.roundRepo.Get(ctx, modeID, periodNumber)
	if err != nil {
		return err
	}
	if round.Status != domain.RoundStatusLocked {
		return fmt.Errorf("%w: %s #%d is %s", domain.ErrRoundNotLocked, modeID, periodNumber, round.Status)
	}

	logger.Info(ctx).Str("mode_id", modeID).Int64("period_number", periodNumber).Msg("[GMS] settlement retry requested")
	clock.RetryNow()
	return nil
}
