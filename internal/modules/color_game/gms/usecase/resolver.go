package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// RandomSource draws uniformly from [0, n).
type RandomSource interface {
	Intn(n int) int
}

// ResultResolver produces the single result of a period: an accepted manual
// override if one exists, otherwise a uniform draw over 0-9. The first
// recorded result is final and returned on every later call.
type ResultResolver struct {
	rounds  domain.GameRoundRepository
	results domain.RoundResultRepository

	rndMu sync.Mutex
	rnd   RandomSource

	group singleflight.Group
	now   func() time.Time
}

// NewResultResolver creates a resolver. A nil rnd uses a time-seeded math/rand source.
func NewResultResolver(rounds domain.GameRoundRepository, results domain.RoundResultRepository, rnd RandomSource) *ResultResolver {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ResultResolver{
		rounds:  rounds,
		results: results,
		rnd:     rnd,
		now:     time.Now,
	}
}

// Resolve returns the result for a LOCKED or CLOSED period, drawing it on first use.
func (r *ResultResolver) Resolve(ctx context.Context, modeID string, periodNumber int64) (domain.Result, error) {
	key := fmt.Sprintf("%s:%d", modeID, periodNumber)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.resolve(ctx, modeID, periodNumber)
	})
	if err != nil {
		return domain.Result{}, err
	}
	return v.(domain.Result), nil
}

func (r *ResultResolver) resolve(ctx context.Context, modeID string, periodNumber int64) (domain.Result, error) {
	existing, err := r.results.Get(ctx, modeID, periodNumber)
	if err != nil {
		return domain.Result{}, fmt.Errorf("load result: %w", err)
	}
	if existing != nil {
		return existing.Result(), nil
	}

	round, err := r.rounds.Get(ctx, modeID, periodNumber)
	if err != nil {
		return domain.Result{}, err
	}
	if round.Status == domain.RoundStatusOpen {
		return domain.Result{}, fmt.Errorf("%w: %s #%d", domain.ErrRoundStillOpen, modeID, periodNumber)
	}
	if res, ok := round.Result(); ok {
		return res, nil
	}

	result, err := domain.NewResult(r.draw(), false)
	if err != nil {
		return domain.Result{}, err
	}

	inserted, err := r.results.Insert(ctx, r.record(modeID, periodNumber, result))
	if err != nil {
		return domain.Result{}, fmt.Errorf("store drawn result: %w", err)
	}
	if !inserted {
		// A manual result or a concurrent draw got there first.
		winner, err := r.results.Get(ctx, modeID, periodNumber)
		if err != nil {
			return domain.Result{}, fmt.Errorf("reload result after conflict: %w", err)
		}
		if winner == nil {
			return domain.Result{}, fmt.Errorf("reload result after conflict: no result stored for %s #%d", modeID, periodNumber)
		}
		return winner.Result(), nil
	}

	logger.Info(ctx).
		Str("mode_id", modeID).
		Int64("period_number", periodNumber).
		Int("result_number", result.Number).
		Str("result_color", string(result.Color)).
		Msg("🎲 [GMS] result drawn")
	return result, nil
}

// SubmitManualResult records an admin override. It is accepted only while the
// round is LOCKED and only once per period.
func (r *ResultResolver) SubmitManualResult(ctx context.Context, modeID string, periodNumber int64, number int) (domain.Result, error) {
	result, err := domain.NewResult(number, true)
	if err != nil {
		return domain.Result{}, err
	}

	round, err := r.rounds.Get(ctx, modeID, periodNumber)
	if err != nil {
		return domain.Result{}, err
	}
	switch round.Status {
	case domain.RoundStatusOpen:
		return domain.Result{}, fmt.Errorf("%w: %s #%d", domain.ErrRoundNotLocked, modeID, periodNumber)
	case domain.RoundStatusClosed:
		return domain.Result{}, fmt.Errorf("%w: %s #%d is closed", domain.ErrResultAlreadySet, modeID, periodNumber)
	}

	inserted, err := r.results.Insert(ctx, r.record(modeID, periodNumber, result))
	if err != nil {
		return domain.Result{}, fmt.Errorf("store manual result: %w", err)
	}
	if !inserted {
		return domain.Result{}, fmt.Errorf("%w: %s #%d", domain.ErrResultAlreadySet, modeID, periodNumber)
	}

	logger.Warn(ctx).
		Str("mode_id", modeID).
		Int64("period_number", periodNumber).
		Int("result_number", result.Number).
		Str("result_color", string(result.Color)).
		Msg("[GMS] manual result accepted")
	return result, nil
}

func (r *ResultResolver) draw() int {
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.rnd.Intn(10)
}

func (r *ResultResolver) record(modeID string, periodNumber int64, result domain.Result) *domain.RoundResult {
	return &domain.RoundResult{
		ModeID:       modeID,
		PeriodNumber: periodNumber,
		Number:       result.Number,
		Color:        result.Color,
		WasManual:    result.WasManual,
		CreatedAt:    r.now(),
	}
}
