package db

import (
	"context"
	"errors"

	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoundResultRepository struct {
	db *gorm.DB
}

func NewRoundResultRepository(db *gorm.DB) *RoundResultRepository {
	return &RoundResultRepository{db: db}
}

func (r *RoundResultRepository) WithTx(tx *gorm.DB) domain.RoundResultRepository {
	return &RoundResultRepository{db: tx}
}

func (r *RoundResultRepository) Get(ctx context.Context, modeID string, periodNumber int64) (*domain.RoundResult, error) {
	var res domain.RoundResult
	err := r.db.WithContext(ctx).
		Where("mode_id = ? AND period_number = ?", modeID, periodNumber).
		Take(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *RoundResultRepository) Insert(ctx context.Context, result *domain.RoundResult) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(result)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
