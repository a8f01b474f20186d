package usecase

import (
	"github.com/shopspring/decimal"
	gmsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
)

// PayoutPolicy holds the gross multipliers applied to winning stakes.
type PayoutPolicy struct {
	Number   decimal.Decimal
	RedGreen decimal.Decimal
	Violet   decimal.Decimal
}

// DefaultPayoutPolicy pays 9x on numbers, 2x on red/green and 4.5x on violet.
func DefaultPayoutPolicy() PayoutPolicy {
	return PayoutPolicy{
		Number:   decimal.NewFromInt(9),
		RedGreen: decimal.NewFromInt(2),
		Violet:   decimal.RequireFromString("4.5"),
	}
}

// Multiplier returns the multiplier for a winning bet.
func (p PayoutPolicy) Multiplier(bet *domain.Bet) decimal.Decimal {
	if bet.BetType == domain.BetTypeNumber {
		return p.Number
	}
	if bet.BetValue == gmsdomain.ColorViolet.String() {
		return p.Violet
	}
	return p.RedGreen
}

// WinAmount is the gross amount credited for bet under result, zero for a loss.
func (p PayoutPolicy) WinAmount(bet *domain.Bet, result gmsdomain.Result) decimal.Decimal {
	if !bet.Wins(result) {
		return decimal.Zero
	}
	return bet.Amount.Mul(p.Multiplier(bet)).Round(2)
}

// Outcome computes the settlement fields for bet. profit = actual_win - amount.
func (p PayoutPolicy) Outcome(bet *domain.Bet, result gmsdomain.Result) (status domain.BetStatus, win, profit decimal.Decimal) {
	win = p.WinAmount(bet, result)
	if win.IsPositive() {
		return domain.BetStatusWon, win, win.Sub(bet.Amount)
	}
	return domain.BetStatusLost, decimal.Zero, bet.Amount.Neg()
}
