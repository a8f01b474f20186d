package domain

import (
	"fmt"
	"time"
)

// GameMode is an immutable catalog entry; rounds reference it by ID.
type GameMode struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Duration returns the round length.
func (m GameMode) Duration() time.Duration {
	return time.Duration(m.DurationSeconds) * time.Second
}

// ModeRegistry is the read-only catalog of game modes.
type ModeRegistry struct {
	modes map[string]GameMode
	order []string
}

// NewModeRegistry builds a registry, rejecting malformed or duplicate entries.
func NewModeRegistry(modes []GameMode) (*ModeRegistry, error) {
	r := &ModeRegistry{modes: make(map[string]GameMode, len(modes))}
	for _, m := range modes {
		if m.ID == "" || m.Name == "" || m.DurationSeconds <= 0 {
			return nil, fmt.Errorf("invalid game mode %+v", m)
		}
		if _, dup := r.modes[m.ID]; dup {
			return nil, fmt.Errorf("duplicate game mode %q", m.ID)
		}
		r.modes[m.ID] = m
		r.order = append(r.order, m.ID)
	}
	return r, nil
}

// Get looks up a mode by id.
func (r *ModeRegistry) Get(id string) (GameMode, error) {
	m, ok := r.modes[id]
	if !ok {
		return GameMode{}, fmt.Errorf("%w: %q", ErrUnknownMode, id)
	}
	return m, nil
}

// All returns the modes in registration order.
func (r *ModeRegistry) All() []GameMode {
	out := make([]GameMode, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.modes[id])
	}
	return out
}
