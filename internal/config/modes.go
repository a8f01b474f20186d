package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ModeConfig is one entry of the game mode catalog.
type ModeConfig struct {
	ID              string `mapstructure:"id"`
	Name            string `mapstructure:"name"`
	DurationSeconds int    `mapstructure:"duration_seconds"`
}

type modesFile struct {
	Modes []ModeConfig `mapstructure:"modes"`
}

// DefaultModes is the catalog used when no modes file is configured.
func DefaultModes() []ModeConfig {
	return []ModeConfig{
		{ID: "blitz", Name: "Blitz", DurationSeconds: 30},
		{ID: "standard", Name: "Standard", DurationSeconds: 60},
		{ID: "classic", Name: "Classic", DurationSeconds: 180},
		{ID: "marathon", Name: "Marathon", DurationSeconds: 300},
	}
}

// LoadModes reads the mode catalog from a YAML file. An empty path yields
// the default catalog. Every entry is validated against lockBuffer.
func LoadModes(path string, lockBuffer time.Duration) ([]ModeConfig, error) {
	modes := DefaultModes()

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read modes file %s: %w", path, err)
		}

		var f modesFile
		if err := v.Unmarshal(&f); err != nil {
			return nil, fmt.Errorf("decode modes file %s: %w", path, err)
		}
		modes = f.Modes
	}

	if err := ValidateModes(modes, lockBuffer); err != nil {
		return nil, err
	}
	return modes, nil
}

// ValidateModes checks required fields, unique ids and that every round is
// longer than the lock buffer.
func ValidateModes(modes []ModeConfig, lockBuffer time.Duration) error {
	if len(modes) == 0 {
		return fmt.Errorf("mode catalog is empty")
	}

	seen := make(map[string]struct{}, len(modes))
	for i, m := range modes {
		if m.ID == "" {
			return fmt.Errorf("mode #%d: id is required", i)
		}
		if m.Name == "" {
			return fmt.Errorf("mode %q: name is required", m.ID)
		}
		if m.DurationSeconds <= 0 {
			return fmt.Errorf("mode %q: duration_seconds must be positive", m.ID)
		}
		if time.Duration(m.DurationSeconds)*time.Second <= lockBuffer {
			return fmt.Errorf("mode %q: duration %ds must exceed lock buffer %s", m.ID, m.DurationSeconds, lockBuffer)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("mode %q: duplicate id", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}
