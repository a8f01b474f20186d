package domain

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	gmsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
)

// BetType is what a bet is placed on.
type BetType string

const (
	BetTypeColor  BetType = "color"
	BetTypeNumber BetType = "number"
)

// BetStatus defines the status of a bet
type BetStatus string

const (
	BetStatusPending BetStatus = "PENDING" // 待結算
	BetStatusWon     BetStatus = "WON"
	BetStatusLost    BetStatus = "LOST"
)

// Bet represents a player's bet. Only the settlement fields change after
// creation, and only once.
type Bet struct {
	ID           string           `gorm:"primaryKey;type:varchar(32)" json:"id"`
	UserID       int64            `gorm:"not null;index:idx_bets_user_round,priority:1" json:"user_id"`
	ModeID       string           `gorm:"type:varchar(32);not null;index:idx_bets_round,priority:1;index:idx_bets_user_round,priority:2" json:"mode_id"`
	PeriodNumber int64            `gorm:"not null;index:idx_bets_round,priority:2;index:idx_bets_user_round,priority:3" json:"period_number"`
	BetType      BetType          `gorm:"type:varchar(16);not null" json:"bet_type"`
	BetValue     string           `gorm:"type:varchar(16);not null" json:"bet_value"`
	Amount       decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status       BetStatus        `gorm:"type:varchar(16);not null;index" json:"status"`
	Profit       decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0" json:"profit"`
	IsWinner     *bool            `json:"is_winner,omitempty"`
	ActualWin    *decimal.Decimal `gorm:"type:decimal(18,2)" json:"actual_win,omitempty"`
	CreatedAt    time.Time        `gorm:"not null" json:"created_at"`
	SettledAt    *time.Time       `json:"settled_at,omitempty"`
}

// TableName overrides the table name
func (Bet) TableName() string {
	return "bets"
}

var (
	nodeMu sync.Mutex
	node   *snowflake.Node
	nodeID int64 = 1
)

// SetNodeID sets the snowflake node used for bet ids. Each running instance
// sharing a database needs its own id.
func SetNodeID(id int64) error {
	n, err := snowflake.NewNode(id)
	if err != nil {
		return fmt.Errorf("snowflake node %d: %w", id, err)
	}
	nodeMu.Lock()
	node, nodeID = n, id
	nodeMu.Unlock()
	return nil
}

func generateBetID() string {
	nodeMu.Lock()
	defer nodeMu.Unlock()
	if node == nil {
		n, err := snowflake.NewNode(nodeID)
		if err != nil {
			panic(err)
		}
		node = n
	}
	return node.Generate().String()
}

// NewBet creates a PENDING bet after validating value and amount.
func NewBet(modeID string, periodNumber int64, userID int64, betType BetType, betValue string, amount decimal.Decimal, now time.Time) (*Bet, error) {
	value, err := NormalizeBetValue(betType, betValue)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() || !amount.Round(2).Equal(amount) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	return &Bet{
		ID:           generateBetID(),
		UserID:       userID,
		ModeID:       modeID,
		PeriodNumber: periodNumber,
		BetType:      betType,
		BetValue:     value,
		Amount:       amount,
		Status:       BetStatusPending,
		Profit:       decimal.Zero,
		CreatedAt:    now,
	}, nil
}

// NormalizeBetValue checks value against the bet type and returns its canonical form:
// an upper-case color name or a single digit.
func NormalizeBetValue(betType BetType, value string) (string, error) {
	switch betType {
	case BetTypeColor:
		c, ok := gmsdomain.ParseColor(value)
		if !ok {
			return "", fmt.Errorf("%w: color %q", ErrInvalidBetValue, value)
		}
		return c.String(), nil
	case BetTypeNumber:
		v := strings.TrimSpace(value)
		n, err := strconv.Atoi(v)
		if err != nil || len(v) != 1 || n < 0 || n > 9 {
			return "", fmt.Errorf("%w: number %q", ErrInvalidBetValue, value)
		}
		return v, nil
	default:
		return "", fmt.Errorf("%w: bet type %q", ErrInvalidBetValue, betType)
	}
}

// ParseBetType accepts a bet type in any case.
func ParseBetType(s string) (BetType, bool) {
	t := BetType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case BetTypeColor, BetTypeNumber:
		return t, true
	}
	return "", false
}

// Wins reports whether the bet matches result.
func (b *Bet) Wins(result gmsdomain.Result) bool {
	switch b.BetType {
	case BetTypeNumber:
		return b.BetValue == strconv.Itoa(result.Number)
	case BetTypeColor:
		return b.BetValue == result.Color.String()
	}
	return false
}
