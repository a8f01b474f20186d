package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"gorm.io/gorm"
)

type GameRoundRepository struct {
	db *gorm.DB
}

func NewGameRoundRepository(db *gorm.DB) *GameRoundRepository {
	return &GameRoundRepository{db: db}
}

func (r *GameRoundRepository) WithTx(tx *gorm.DB) domain.GameRoundRepository {
	return &GameRoundRepository{db: tx}
}

func (r *GameRoundRepository) Create(ctx context.Context, round *domain.Round) error {
	now := time.Now()
	round.CreatedAt = now
	round.UpdatedAt = now
	return r.db.WithContext(ctx).Create(round).Error
}

func (r *GameRoundRepository) Get(ctx context.Context, modeID string, periodNumber int64) (*domain.Round, error) {
	var round domain.Round
	err := r.db.WithContext(ctx).
		Where("mode_id = ? AND period_number = ?", modeID, periodNumber).
		Take(&round).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s #%d", domain.ErrRoundNotFound, modeID, periodNumber)
	}
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *GameRoundRepository) Latest(ctx context.Context, modeID string) (*domain.Round, error) {
	var round domain.Round
	err := r.db.WithContext(ctx).
		Where("mode_id = ?", modeID).
		Order("period_number DESC").
		Take(&round).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *GameRoundRepository) List(ctx context.Context, modeID string, beforePeriod int64, limit int) ([]*domain.Round, error) {
	q := r.db.WithContext(ctx).Where("mode_id = ?", modeID)
	if beforePeriod > 0 {
		q = q.Where("period_number < ?", beforePeriod)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rounds []*domain.Round
	err := q.Order("period_number DESC").Limit(limit).Find(&rounds).Error
	return rounds, err
}

func (r *GameRoundRepository) MarkLocked(ctx context.Context, modeID string, periodNumber int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Round{}).
		Where("mode_id = ? AND period_number = ? AND status = ?", modeID, periodNumber, domain.RoundStatusOpen).
		Updates(map[string]interface{}{
			"status":     domain.RoundStatusLocked,
			"locked_at":  at,
			"updated_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *GameRoundRepository) MarkClosed(ctx context.Context, p domain.CloseParams) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Round{}).
		Where("mode_id = ? AND period_number = ? AND status = ?", p.ModeID, p.PeriodNumber, domain.RoundStatusLocked).
		Updates(map[string]interface{}{
			"status":           domain.RoundStatusClosed,
			"result_number":    p.Result.Number,
			"result_color":     p.Result.Color,
			"was_manual":       p.Result.WasManual,
			"end_time":         p.EndTime,
			"total_bets":       p.TotalBets,
			"total_players":    p.TotalPlayers,
			"total_bet_amount": p.TotalBetAmount,
			"total_payout":     p.TotalPayout,
			"updated_at":       p.EndTime,
		})
	return res.RowsAffected == 1, res.Error
}

// AutoMigrate creates the round tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Round{}, &domain.RoundResult{})
}
