// Package usecase implements the business logic for the color game GS module.
package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	gmsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/lock"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/service"
	"gorm.io/gorm"
)

// RoundGate is the view of the round clocks the ledger needs.
type RoundGate interface {
	// WithOpenRound runs fn while the period cannot leave OPEN.
	WithOpenRound(ctx context.Context, modeID string, periodNumber int64, fn func() error) error
	GetRound(ctx context.Context, modeID string, periodNumber int64) (*gmsdomain.Round, error)
}

// PlaceBetRequest is a player's bet.
type PlaceBetRequest struct {
	ModeID       string
	PeriodNumber int64
	UserID       int64
	BetType      domain.BetType
	BetValue     string
	Amount       decimal.Decimal
}

// PlaceBetResult is the stored bet and the balance after the stake was debited.
type PlaceBetResult struct {
	Bet     *domain.Bet     `json:"bet"`
	Balance decimal.Decimal `json:"balance"`
}

// BetLedger accepts bets for open rounds. The stake debit and the bet row
// commit in one transaction.
type BetLedger struct {
	db     *gorm.DB
	gate   RoundGate
	bets   domain.BetRepository
	wallet service.BalanceStore
	locks  *lock.UserLock
	now    func() time.Time

	hooksMu sync.RWMutex
	hooks   []func(bet *domain.Bet)
}

// NewBetLedger creates a new bet ledger
func NewBetLedger(db *gorm.DB, gate RoundGate, bets domain.BetRepository, wallet service.BalanceStore, locks *lock.UserLock) *BetLedger {
	return &BetLedger{
		db:     db,
		gate:   gate,
		bets:   bets,
		wallet: wallet,
		locks:  locks,
		now:    time.Now,
	}
}

// OnBetPlaced registers a callback run for every accepted bet, before the
// round can lock.
func (l *BetLedger) OnBetPlaced(fn func(bet *domain.Bet)) {
	l.hooksMu.Lock()
	defer l.hooksMu.Unlock()
	l.hooks = append(l.hooks, fn)
}

func stakeKey(bet *domain.Bet) string {
	return fmt.Sprintf("stake:%s:%d:%d:%s", bet.ModeID, bet.PeriodNumber, bet.UserID, bet.ID)
}

// PlaceBet debits the stake and records a PENDING bet.
func (l *BetLedger) PlaceBet(ctx context.Context, req PlaceBetRequest) (*PlaceBetResult, error) {
	ctx = logger.WithRound(ctx, req.ModeID, req.PeriodNumber)
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"user_id": req.UserID,
	})

	logger.Info(ctx).
		Str("bet_type", string(req.BetType)).
		Str("bet_value", req.BetValue).
		Str("amount", req.Amount.String()).
		Msg("下注请求开始")

	var result *PlaceBetResult
	err := l.locks.WithLock(ctx, req.UserID, func() error {
		return l.gate.WithOpenRound(ctx, req.ModeID, req.PeriodNumber, func() error {
			bet, err := domain.NewBet(req.ModeID, req.PeriodNumber, req.UserID, req.BetType, req.BetValue, req.Amount, l.now())
			if err != nil {
				return err
			}

			var balance decimal.Decimal
			err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				b, err := l.wallet.WithTx(tx).ApplyDelta(ctx, bet.UserID, bet.Amount.Neg(), stakeKey(bet))
				if err != nil {
					return err
				}
				balance = b
				return l.bets.WithTx(tx).Create(ctx, bet)
			})
			if err != nil {
				return err
			}

			l.hooksMu.RLock()
			for _, hook := range l.hooks {
				hook(bet)
			}
			l.hooksMu.RUnlock()

			result = &PlaceBetResult{Bet: bet, Balance: balance}
			return nil
		})
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("下注被拒绝 (bet rejected)")
		return nil, err
	}

	logger.Info(ctx).
		Str("bet_id", result.Bet.ID).
		Str("balance", result.Balance.String()).
		Msg("下注成功")
	return result, nil
}

// GetBetsForRound returns the frozen bet set of a LOCKED or CLOSED period.
func (l *BetLedger) GetBetsForRound(ctx context.Context, modeID string, periodNumber int64) ([]*domain.Bet, error) {
	round, err := l.gate.GetRound(ctx, modeID, periodNumber)
	if err != nil {
		return nil, err
	}
	if round.Status == gmsdomain.RoundStatusOpen {
		return nil, fmt.Errorf("%w: %s #%d", gmsdomain.ErrRoundStillOpen, modeID, periodNumber)
	}
	return l.bets.ListByRound(ctx, modeID, periodNumber)
}

// GetUserBets returns one player's bets of a period in any state.
func (l *BetLedger) GetUserBets(ctx context.Context, modeID string, periodNumber int64, userID int64) ([]*domain.Bet, error) {
	if _, err := l.gate.GetRound(ctx, modeID, periodNumber); err != nil {
		return nil, err
	}
	return l.bets.ListByUserRound(ctx, modeID, periodNumber, userID)
}
