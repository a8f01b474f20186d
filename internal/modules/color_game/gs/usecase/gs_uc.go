package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	gmsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/machine"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/service"
)

// GameManager is the round management surface GS builds on.
type GameManager interface {
	RoundGate
	Modes() []gmsdomain.GameMode
	GetCurrentRound(ctx context.Context, modeID string) (machine.RoundView, error)
	ListRounds(ctx context.Context, modeID string, beforePeriod int64, limit int) ([]*gmsdomain.Round, error)
	SubmitManualResult(ctx context.Context, modeID string, periodNumber int64, number int) (gmsdomain.Result, error)
	RetrySettlement(ctx context.Context, modeID string, periodNumber int64) error
}

// RoundState is a player's view of the current round of a mode.
type RoundState struct {
	Round   machine.RoundView `json:"round"`
	Bets    []*domain.Bet     `json:"player_bets"`
	Balance decimal.Decimal   `json:"balance"`
}

// GSUseCase is the player and admin facing facade of the color game.
type GSUseCase struct {
	gms    GameManager
	ledger *BetLedger
	stats  *LiveStatsAggregator
	wallet service.BalanceStore
}

// NewGSUseCase creates a new GS use case
func NewGSUseCase(gms GameManager, ledger *BetLedger, stats *LiveStatsAggregator, wallet service.BalanceStore) *GSUseCase {
	return &GSUseCase{
		gms:    gms,
		ledger: ledger,
		stats:  stats,
		wallet: wallet,
	}
}

// Modes returns the mode catalog.
func (uc *GSUseCase) Modes() []gmsdomain.GameMode {
	return uc.gms.Modes()
}

// PlaceBet handles a player placing a bet
func (uc *GSUseCase) PlaceBet(ctx context.Context, req PlaceBetRequest) (*PlaceBetResult, error) {
	return uc.ledger.PlaceBet(ctx, req)
}

// GetState returns the current round of a mode with the player's bets on it.
func (uc *GSUseCase) GetState(ctx context.Context, modeID string, userID int64) (*RoundState, error) {
	view, err := uc.gms.GetCurrentRound(ctx, modeID)
	if err != nil {
		return nil, err
	}

	bets, err := uc.ledger.GetUserBets(ctx, modeID, view.PeriodNumber, userID)
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("mode_id", modeID).
			Int64("period_number", view.PeriodNumber).
			Int64("user_id", userID).
			Msg("Failed to get user bets")
		// Don't fail the request, just return empty bets
		bets = []*domain.Bet{}
	}

	balance, err := uc.wallet.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &RoundState{Round: view, Bets: bets, Balance: balance}, nil
}

// GetRound returns a persisted round.
func (uc *GSUseCase) GetRound(ctx context.Context, modeID string, periodNumber int64) (*gmsdomain.Round, error) {
	return uc.gms.GetRound(ctx, modeID, periodNumber)
}

// ListRounds returns round history, newest first.
func (uc *GSUseCase) ListRounds(ctx context.Context, modeID string, beforePeriod int64, limit int) ([]*gmsdomain.Round, error) {
	return uc.gms.ListRounds(ctx, modeID, beforePeriod, limit)
}

// GetBetsForRound returns every bet of a LOCKED or CLOSED period.
func (uc *GSUseCase) GetBetsForRound(ctx context.Context, modeID string, periodNumber int64) ([]*domain.Bet, error) {
	return uc.ledger.GetBetsForRound(ctx, modeID, periodNumber)
}

// GetUserBets returns a player's bets of a period.
func (uc *GSUseCase) GetUserBets(ctx context.Context, modeID string, periodNumber int64, userID int64) ([]*domain.Bet, error) {
	return uc.ledger.GetUserBets(ctx, modeID, periodNumber, userID)
}

// GetLiveStats returns the running tally of a mode's open round.
func (uc *GSUseCase) GetLiveStats(ctx context.Context, modeID string) (*domain.LiveGameStats, error) {
	return uc.stats.Get(modeID)
}

// GetBalance returns a player's balance.
func (uc *GSUseCase) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return uc.wallet.GetBalance(ctx, userID)
}

// AdjustBalance applies an admin credit or debit. reference makes the call
// idempotent: repeating it returns the balance without applying it again.
func (uc *GSUseCase) AdjustBalance(ctx context.Context, userID int64, amount decimal.Decimal, reference string) (decimal.Decimal, error) {
	if amount.IsZero() || !amount.Round(2).Equal(amount) {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount)
	}
	if strings.TrimSpace(reference) == "" {
		return decimal.Zero, fmt.Errorf("%w: empty adjustment reference", domain.ErrInvalidAmount)
	}

	balance, err := uc.wallet.ApplyDelta(ctx, userID, amount, "admin:"+reference)
	if err != nil {
		return decimal.Zero, err
	}
	logger.Warn(ctx).
		Int64("user_id", userID).
		Str("amount", amount.String()).
		Str("reference", reference).
		Str("balance", balance.String()).
		Msg("admin balance adjustment")
	return balance, nil
}

// SubmitManualResult records an admin result for a LOCKED round.
func (uc *GSUseCase) SubmitManualResult(ctx context.Context, modeID string, periodNumber int64, number int) (gmsdomain.Result, error) {
	return uc.gms.SubmitManualResult(ctx, modeID, periodNumber, number)
}

// RetrySettlement forces a settlement attempt of a LOCKED round.
func (uc *GSUseCase) RetrySettlement(ctx context.Context, modeID string, periodNumber int64) error {
	return uc.gms.RetrySettlement(ctx, modeID, periodNumber)
}
