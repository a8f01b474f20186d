package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	gmsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/lock"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/service"
	"gorm.io/gorm"
)

// Resolver yields the final result of a period.
type Resolver interface {
	Resolve(ctx context.Context, modeID string, periodNumber int64) (gmsdomain.Result, error)
}

var errAlreadyClosed = errors.New("round closed by another settlement")

// SettlementEngine closes LOCKED rounds. Bet updates, win credits and the
// CLOSED transition commit in one transaction, so a failed attempt leaves the
// round LOCKED with nothing applied and a retry starts clean.
type SettlementEngine struct {
	db          *gorm.DB
	rounds      gmsdomain.GameRoundRepository
	bets        domain.BetRepository
	wallet      service.BalanceStore
	resolver    Resolver
	payout      PayoutPolicy
	locks       *lock.UserLock
	broadcaster domain.Broadcaster
	now         func() time.Time
}

// NewSettlementEngine creates a new settlement engine
func NewSettlementEngine(
	db *gorm.DB,
	rounds gmsdomain.GameRoundRepository,
	bets domain.BetRepository,
	wallet service.BalanceStore,
	resolver Resolver,
	payout PayoutPolicy,
	locks *lock.UserLock,
	broadcaster domain.Broadcaster,
) *SettlementEngine {
	return &SettlementEngine{
		db:          db,
		rounds:      rounds,
		bets:        bets,
		wallet:      wallet,
		resolver:    resolver,
		payout:      payout,
		locks:       locks,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

func winKey(modeID string, periodNumber int64, userID int64) string {
	return fmt.Sprintf("win:%s:%d:%d", modeID, periodNumber, userID)
}

type userOutcome struct {
	bets []*domain.Bet
	win  decimal.Decimal
}

// Settle settles every bet of a LOCKED period and closes it. Settling a
// CLOSED period is a no-op.
func (e *SettlementEngine) Settle(ctx context.Context, modeID string, periodNumber int64) error {
	startTime := time.Now()
	ctx = logger.WithRound(ctx, modeID, periodNumber)

	round, err := e.rounds.Get(ctx, modeID, periodNumber)
	if err != nil {
		return err
	}
	switch round.Status {
	case gmsdomain.RoundStatusClosed:
		logger.Debug(ctx).Msg("round already settled")
		return nil
	case gmsdomain.RoundStatusOpen:
		return fmt.Errorf("%w: %s #%d", gmsdomain.ErrRoundStillOpen, modeID, periodNumber)
	}

	// Resolved outside the transaction so a retry reuses the same result.
	result, err := e.resolver.Resolve(ctx, modeID, periodNumber)
	if err != nil {
		return fmt.Errorf("resolve result: %w", err)
	}

	logger.Info(ctx).
		Int("result_number", result.Number).
		Str("result_color", result.Color.String()).
		Bool("was_manual", result.WasManual).
		Msg("Starting settlement")

	bets, err := e.bets.ListByRound(ctx, modeID, periodNumber)
	if err != nil {
		return fmt.Errorf("failed to get bets for settlement: %w", err)
	}
	userIDs := make([]int64, 0, len(bets))
	for _, bet := range bets {
		userIDs = append(userIDs, bet.UserID)
	}

	var (
		outcomes    map[int64]*userOutcome
		totalAmount = decimal.Zero
		totalPayout = decimal.Zero
		winCount    int
	)
	err = e.locks.WithLocks(ctx, userIDs, func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// The set is frozen once LOCKED; re-read it on the transaction for a consistent view.
			bets, err := e.bets.WithTx(tx).ListByRound(ctx, modeID, periodNumber)
			if err != nil {
				return err
			}

			outcomes = make(map[int64]*userOutcome)
			totalAmount, totalPayout, winCount = decimal.Zero, decimal.Zero, 0
			settledAt := e.now()

			for _, bet := range bets {
				o := outcomes[bet.UserID]
				if o == nil {
					o = &userOutcome{win: decimal.Zero}
					outcomes[bet.UserID] = o
				}
				o.bets = append(o.bets, bet)
				totalAmount = totalAmount.Add(bet.Amount)

				status, win, profit := e.payout.Outcome(bet, result)
				if bet.Status == domain.BetStatusPending {
					ok, err := e.bets.WithTx(tx).Settle(ctx, domain.Settlement{
						BetID:     bet.ID,
						Status:    status,
						Profit:    profit,
						IsWinner:  status == domain.BetStatusWon,
						ActualWin: win,
						SettledAt: settledAt,
					})
					if err != nil {
						return fmt.Errorf("settle bet %s: %w", bet.ID, err)
					}
					if ok {
						isWinner := status == domain.BetStatusWon
						bet.Status, bet.Profit, bet.IsWinner, bet.ActualWin, bet.SettledAt = status, profit, &isWinner, &win, &settledAt
					}
				}

				if win.IsPositive() {
					o.win = o.win.Add(win)
					totalPayout = totalPayout.Add(win)
					winCount++
				}
			}

			wallet := e.wallet.WithTx(tx)
			for _, userID := range sortedUsers(outcomes) {
				o := outcomes[userID]
				if !o.win.IsPositive() {
					continue
				}
				if _, err := wallet.ApplyDelta(ctx, userID, o.win, winKey(modeID, periodNumber, userID)); err != nil {
					return fmt.Errorf("credit user %d: %w", userID, err)
				}
			}

			ok, err := e.rounds.WithTx(tx).MarkClosed(ctx, gmsdomain.CloseParams{
				ModeID:         modeID,
				PeriodNumber:   periodNumber,
				Result:         result,
				EndTime:        settledAt,
				TotalBets:      len(bets),
				TotalPlayers:   len(outcomes),
				TotalBetAmount: totalAmount,
				TotalPayout:    totalPayout,
			})
			if err != nil {
				return fmt.Errorf("close round: %w", err)
			}
			if !ok {
				return errAlreadyClosed
			}
			return nil
		})
	})
	if errors.Is(err, errAlreadyClosed) {
		logger.Info(ctx).Msg("round closed concurrently, settlement discarded")
		return nil
	}
	if err != nil {
		logger.Error(ctx).Err(err).Dur("duration_ms", time.Since(startTime)).Msg("settlement failed, rolled back")
		return err
	}

	logger.Info(ctx).
		Int("total_bets", len(bets)).
		Int("total_players", len(outcomes)).
		Int("win_count", winCount).
		Str("total_bet_amount", totalAmount.String()).
		Str("total_payout", totalPayout.String()).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Settlement completed successfully")

	e.notify(ctx, modeID, periodNumber, result, outcomes)
	return nil
}

// notify sends each bettor their settled bets after the commit.
func (e *SettlementEngine) notify(ctx context.Context, modeID string, periodNumber int64, result gmsdomain.Result, outcomes map[int64]*userOutcome) {
	if e.broadcaster == nil {
		return
	}
	for _, userID := range sortedUsers(outcomes) {
		o := outcomes[userID]
		balance, err := e.wallet.GetBalance(ctx, userID)
		if err != nil {
			logger.Warn(ctx).Err(err).Int64("user_id", userID).Msg("balance lookup for settlement notice failed")
		}
		e.broadcaster.SendToUser(userID, &domain.SettlementNotice{
			Type:         "SETTLEMENT",
			ModeID:       modeID,
			PeriodNumber: periodNumber,
			ResultNumber: result.Number,
			ResultColor:  result.Color.String(),
			Bets:         o.bets,
			TotalWin:     o.win.String(),
			Balance:      balance.String(),
		})
	}
}

func sortedUsers(outcomes map[int64]*userOutcome) []int64 {
	ids := make([]int64, 0, len(outcomes))
	for id := range outcomes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
