package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInsufficientBalance is returned when a debit would take a balance below zero.
var ErrInsufficientBalance = errors.New("insufficient balance")

// BalanceStore is the balance contract the engine consumes. ApplyDelta is
// idempotent per key: a repeated key is a no-op that reports the current balance.
type BalanceStore interface {
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	ApplyDelta(ctx context.Context, userID int64, amount decimal.Decimal, idempotencyKey string) (decimal.Decimal, error)
	// WithTx returns a store whose writes join tx.
	WithTx(tx *gorm.DB) BalanceStore
}
