package domain

import "time"

// Result is the outcome of a round.
type Result struct {
	Number    int   `json:"number"`
	Color     Color `json:"color"`
	WasManual bool  `json:"was_manual"`
}

// NewResult derives the color from the number.
func NewResult(number int, manual bool) (Result, error) {
	color, err := ColorForNumber(number)
	if err != nil {
		return Result{}, err
	}
	return Result{Number: number, Color: color, WasManual: manual}, nil
}

// RoundResult persists the single resolved outcome of a period, whether it
// was submitted by an admin or drawn by the resolver. The unique index makes
// the first writer win.
type RoundResult struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	ModeID       string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_round_results_mode_period,priority:1"`
	PeriodNumber int64     `gorm:"not null;uniqueIndex:idx_round_results_mode_period,priority:2"`
	Number       int       `gorm:"not null"`
	Color        Color     `gorm:"type:varchar(16);not null"`
	WasManual    bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName overrides the table name
func (RoundResult) TableName() string {
	return "round_results"
}

// Result converts the record to a Result.
func (r *RoundResult) Result() Result {
	return Result{Number: r.Number, Color: r.Color, WasManual: r.WasManual}
}
