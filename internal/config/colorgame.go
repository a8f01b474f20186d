package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ColorGameConfig holds configuration for the wagering engine
type ColorGameConfig struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Engine      EngineConfig
	Modes       []ModeConfig
	StatsMirror bool // mirror live stats to redis for dashboards in other processes
	NodeID      int64
}

// EngineConfig tunes round timing and settlement retries.
type EngineConfig struct {
	LockBuffer         time.Duration
	SettleTimeout      time.Duration
	SettleRetryInitial time.Duration
	SettleRetryMax     time.Duration
	StuckRoundCeiling  time.Duration
	FirstPeriod        int64
	Payout             PayoutConfig
}

// PayoutConfig is the multiplier table applied to winning stakes.
type PayoutConfig struct {
	Number   decimal.Decimal
	RedGreen decimal.Decimal
	Violet   decimal.Decimal
}

// DefaultPayout is 9x for an exact number, 2x for red/green and 4.5x for violet.
func DefaultPayout() PayoutConfig {
	return PayoutConfig{
		Number:   decimal.NewFromInt(9),
		RedGreen: decimal.NewFromInt(2),
		Violet:   decimal.RequireFromString("4.5"),
	}
}

// Validate rejects multipliers that cannot pay back at least the stake.
func (p PayoutConfig) Validate() error {
	one := decimal.NewFromInt(1)
	for name, m := range map[string]decimal.Decimal{"number": p.Number, "red_green": p.RedGreen, "violet": p.Violet} {
		if m.LessThan(one) {
			return fmt.Errorf("payout multiplier %s must be >= 1, got %s", name, m)
		}
	}
	return nil
}

// LoadColorGameConfig loads configuration for the color game service
func LoadColorGameConfig() (*ColorGameConfig, error) {
	defaults := DefaultPayout()
	engine := EngineConfig{
		LockBuffer:         getEnvDuration("COLORGAME_LOCK_BUFFER", 5*time.Second),
		SettleTimeout:      getEnvDuration("COLORGAME_SETTLE_TIMEOUT", 10*time.Second),
		SettleRetryInitial: getEnvDuration("COLORGAME_SETTLE_RETRY_INITIAL", 500*time.Millisecond),
		SettleRetryMax:     getEnvDuration("COLORGAME_SETTLE_RETRY_MAX", 30*time.Second),
		StuckRoundCeiling:  getEnvDuration("COLORGAME_STUCK_ROUND_CEILING", 2*time.Minute),
		FirstPeriod:        getEnvInt64("COLORGAME_FIRST_PERIOD", 1),
		Payout: PayoutConfig{
			Number:   getEnvDecimal("PAYOUT_NUMBER", defaults.Number),
			RedGreen: getEnvDecimal("PAYOUT_RED_GREEN", defaults.RedGreen),
			Violet:   getEnvDecimal("PAYOUT_VIOLET", defaults.Violet),
		},
	}
	if err := engine.Payout.Validate(); err != nil {
		return nil, err
	}
	if engine.FirstPeriod < 1 {
		return nil, fmt.Errorf("COLORGAME_FIRST_PERIOD must be positive, got %d", engine.FirstPeriod)
	}

	modes, err := LoadModes(getEnv("COLORGAME_MODES_FILE", ""), engine.LockBuffer)
	if err != nil {
		return nil, err
	}

	return &ColorGameConfig{
		Server: ServerConfig{
			Port: getEnv("ADMIN_SERVER_PORT", "8082"),
			Name: "color-game-admin",
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "casino_user"),
			Password: getEnv("DB_PASSWORD", "casino_pass"),
			Name:     getEnv("DB_NAME", "casino_db"),
		},
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", "localhost"),
			Port: getEnv("REDIS_PORT", "6379"),
		},
		Log: LogConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Format:  getEnv("LOG_FORMAT", "json"),
			File:    getEnv("LOG_FILE", "logs/color_game/monolith.log"),
			Console: getEnvBool("LOG_CONSOLE", true),
		},
		Engine:      engine,
		Modes:       modes,
		StatsMirror: getEnvBool("COLORGAME_STATS_MIRROR", false),
		NodeID:      getEnvInt64("COLORGAME_NODE_ID", 1),
	}, nil
}
