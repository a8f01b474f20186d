package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModesDefaults(t *testing.T) {
	modes, err := LoadModes("", 5*time.Second)
	require.NoError(t, err)
	require.Len(t, modes, 4)
	assert.Equal(t, "blitz", modes[0].ID)
	assert.Equal(t, 30, modes[0].DurationSeconds)
}

func TestLoadModesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modes.yaml")
	content := `
modes:
  - id: turbo
    name: Turbo
    duration_seconds: 15
  - id: slow
    name: Slow
    duration_seconds: 600
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	modes, err := LoadModes(path, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, modes, 2)
	assert.Equal(t, ModeConfig{ID: "turbo", Name: "Turbo", DurationSeconds: 15}, modes[0])
	assert.Equal(t, 600, modes[1].DurationSeconds)
}

func TestValidateModes(t *testing.T) {
	tests := []struct {
		name  string
		modes []ModeConfig
	}{
		{"empty", nil},
		{"missing id", []ModeConfig{{Name: "x", DurationSeconds: 30}}},
		{"missing name", []ModeConfig{{ID: "x", DurationSeconds: 30}}},
		{"zero duration", []ModeConfig{{ID: "x", Name: "X"}}},
		{"shorter than buffer", []ModeConfig{{ID: "x", Name: "X", DurationSeconds: 5}}},
		{"duplicate", []ModeConfig{{ID: "x", Name: "X", DurationSeconds: 30}, {ID: "x", Name: "Y", DurationSeconds: 60}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateModes(tt.modes, 5*time.Second))
		})
	}
}

func TestPayoutValidate(t *testing.T) {
	assert.NoError(t, DefaultPayout().Validate())

	p := DefaultPayout()
	p.Violet = decimal.RequireFromString("0.5")
	assert.Error(t, p.Validate())
}

func TestLoadColorGameConfigFromEnv(t *testing.T) {
	t.Setenv("COLORGAME_LOCK_BUFFER", "3s")
	t.Setenv("PAYOUT_VIOLET", "5")
	t.Setenv("COLORGAME_FIRST_PERIOD", "100")

	cfg, err := LoadColorGameConfig()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Engine.LockBuffer)
	assert.True(t, decimal.NewFromInt(5).Equal(cfg.Engine.Payout.Violet))
	assert.True(t, decimal.NewFromInt(9).Equal(cfg.Engine.Payout.Number))
	assert.Equal(t, int64(100), cfg.Engine.FirstPeriod)
}
