package color_game

import (
	"context"

	"github.com/shopspring/decimal"
	gmsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/usecase"
)

// ColorGameService defines the color game operations exposed to players and admins
type ColorGameService interface {
	Modes() []gmsdomain.GameMode

	// PlaceBet handles placing a bet
	PlaceBet(ctx context.Context, req usecase.PlaceBetRequest) (*usecase.PlaceBetResult, error)

	// GetState returns the current round of a mode with the player's bets
	GetState(ctx context.Context, modeID string, userID int64) (*usecase.RoundState, error)

	GetRound(ctx context.Context, modeID string, periodNumber int64) (*gmsdomain.Round, error)
	ListRounds(ctx context.Context, modeID string, beforePeriod int64, limit int) ([]*gmsdomain.Round, error)
	GetBetsForRound(ctx context.Context, modeID string, periodNumber int64) ([]*domain.Bet, error)
	GetUserBets(ctx context.Context, modeID string, periodNumber int64, userID int64) ([]*domain.Bet, error)
	GetLiveStats(ctx context.Context, modeID string) (*domain.LiveGameStats, error)
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)

	// SubmitManualResult, RetrySettlement and AdjustBalance are admin operations
	SubmitManualResult(ctx context.Context, modeID string, periodNumber int64, number int) (gmsdomain.Result, error)
	RetrySettlement(ctx context.Context, modeID string, periodNumber int64) error
	AdjustBalance(ctx context.Context, userID int64, amount decimal.Decimal, reference string) (decimal.Decimal, error)
}

var _ ColorGameService = (*usecase.GSUseCase)(nil)
