package db

import (
	"context"

	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
	"gorm.io/gorm"
)

type BetRepository struct {
	db *gorm.DB
}

func NewBetRepository(db *gorm.DB) *BetRepository {
	return &BetRepository{db: db}
}

func (r *BetRepository) WithTx(tx *gorm.DB) domain.BetRepository {
	return &BetRepository{db: tx}
}

func (r *BetRepository) Create(ctx context.Context, bet *domain.Bet) error {
	return r.db.WithContext(ctx).Create(bet).Error
}

func (r *BetRepository) ListByRound(ctx context.Context, modeID string, periodNumber int64) ([]*domain.Bet, error) {
	var bets []*domain.Bet
	err := r.db.WithContext(ctx).
		Where("mode_id = ? AND period_number = ?", modeID, periodNumber).
		Order("created_at ASC, id ASC").
		Find(&bets).Error
	return bets, err
}

func (r *BetRepository) ListByUserRound(ctx context.Context, modeID string, periodNumber int64, userID int64) ([]*domain.Bet, error) {
	var bets []*domain.Bet
	err := r.db.WithContext(ctx).
		Where("mode_id = ? AND period_number = ? AND user_id = ?", modeID, periodNumber, userID).
		Order("created_at ASC, id ASC").
		Find(&bets).Error
	return bets, err
}

// Settle only touches PENDING rows so a replayed settlement cannot rewrite an outcome.
func (r *BetRepository) Settle(ctx context.Context, s domain.Settlement) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Bet{}).
		Where("id = ? AND status = ?", s.BetID, domain.BetStatusPending).
		Updates(map[string]interface{}{
			"status":     s.Status,
			"profit":     s.Profit,
			"is_winner":  s.IsWinner,
			"actual_win": s.ActualWin,
			"settled_at": s.SettledAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AutoMigrate creates the bet table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Bet{})
}
