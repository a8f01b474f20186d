// Package wallet provides the gorm-backed balance store.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/service"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Wallet is a user's available balance.
type Wallet struct {
	UserID    int64           `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Balance   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (Wallet) TableName() string {
	return "wallets"
}

// Entry records one applied delta. The unique key makes replays no-ops.
type Entry struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	UserID         int64           `gorm:"not null;index"`
	IdempotencyKey string          `gorm:"type:varchar(128);not null;uniqueIndex"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	BalanceAfter   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName overrides the table name
func (Entry) TableName() string {
	return "wallet_entries"
}

// Store implements service.BalanceStore on gorm.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new balance store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates the wallet tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Wallet{}, &Entry{})
}

// WithTx binds the store to an open transaction.
func (s *Store) WithTx(tx *gorm.DB) service.BalanceStore {
	return &Store{db: tx}
}

// GetBalance returns the user's balance; users without a wallet have zero.
func (s *Store) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var w Wallet
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

// ApplyDelta adds amount (negative for a debit) to the balance exactly once per key.
func (s *Store) ApplyDelta(ctx context.Context, userID int64, amount decimal.Decimal, idempotencyKey string) (decimal.Decimal, error) {
	if idempotencyKey == "" {
		return decimal.Zero, fmt.Errorf("idempotency key is required")
	}

	var balance decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		entry := &Entry{
			UserID:         userID,
			IdempotencyKey: idempotencyKey,
			Amount:         amount,
			BalanceAfter:   decimal.Zero,
			CreatedAt:      now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			logger.Debug(ctx).
				Int64("user_id", userID).
				Str("idempotency_key", idempotencyKey).
				Msg("wallet delta already applied")
			b, err := (&Store{db: tx}).GetBalance(ctx, userID)
			balance = b
			return err
		}

		if amount.IsPositive() {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&Wallet{UserID: userID, Balance: decimal.Zero, UpdatedAt: now}).Error; err != nil {
				return err
			}
		}

		upd := tx.Model(&Wallet{}).
			Where("user_id = ? AND balance + ? >= 0", userID, amount).
			Updates(map[string]interface{}{
				"balance":    gorm.Expr("balance + ?", amount),
				"updated_at": now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return fmt.Errorf("%w: user %d cannot cover %s", service.ErrInsufficientBalance, userID, amount.Neg())
		}

		b, err := (&Store{db: tx}).GetBalance(ctx, userID)
		if err != nil {
			return err
		}
		balance = b
		return tx.Model(entry).Update("balance_after", b).Error
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// FindEntry returns the entry recorded under key, or nil.
func (s *Store) FindEntry(ctx context.Context, idempotencyKey string) (*Entry, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("idempotency_key = ?", idempotencyKey).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
