package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestColorPartitionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 9).Draw(t, "number")

		c, err := ColorForNumber(n)
		if err != nil {
			t.Fatalf("number %d: %v", n, err)
		}
		var want Color
		switch n {
		case 0, 5:
			want = ColorViolet
		case 1, 3, 7, 9:
			want = ColorGreen
		default:
			want = ColorRed
		}
		if c != want {
			t.Fatalf("number %d: got %s want %s", n, c, want)
		}
	})
}

func TestColorForNumberOutOfRange(t *testing.T) {
	for _, n := range []int{-1, 10, 42} {
		_, err := ColorForNumber(n)
		assert.True(t, errors.Is(err, ErrInvalidResult), "number %d", n)
	}
}

func TestParseColor(t *testing.T) {
	c, ok := ParseColor(" violet ")
	assert.True(t, ok)
	assert.Equal(t, ColorViolet, c)

	_, ok = ParseColor("blue")
	assert.False(t, ok)
}

func TestModeRegistry(t *testing.T) {
	r, err := NewModeRegistry([]GameMode{
		{ID: "blitz", Name: "Blitz", DurationSeconds: 30},
		{ID: "standard", Name: "Standard", DurationSeconds: 60},
	})
	require.NoError(t, err)

	m, err := r.Get("blitz")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, m.Duration())
	assert.Equal(t, []string{"blitz", "standard"}, []string{r.All()[0].ID, r.All()[1].ID})

	_, err = r.Get("nope")
	assert.True(t, errors.Is(err, ErrUnknownMode))
}

func TestModeRegistryRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name  string
		modes []GameMode
	}{
		{"empty id", []GameMode{{Name: "x", DurationSeconds: 1}}},
		{"empty name", []GameMode{{ID: "x", DurationSeconds: 1}}},
		{"zero duration", []GameMode{{ID: "x", Name: "x"}}},
		{"duplicate", []GameMode{{ID: "x", Name: "x", DurationSeconds: 1}, {ID: "x", Name: "y", DurationSeconds: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModeRegistry(tt.modes)
			assert.Error(t, err)
		})
	}
}

func TestNewRoundSchedule(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRound(GameMode{ID: "blitz", Name: "Blitz", DurationSeconds: 30}, 100, start, 5*time.Second)

	assert.Equal(t, RoundStatusOpen, r.Status)
	assert.Equal(t, start.Add(25*time.Second), r.LockAt)
	assert.Equal(t, start.Add(30*time.Second), r.EndsAt)
	assert.True(t, r.AcceptsBetsAt(start.Add(24*time.Second)))
	assert.False(t, r.AcceptsBetsAt(start.Add(25*time.Second)))

	_, ok := r.Result()
	assert.False(t, ok)
}
