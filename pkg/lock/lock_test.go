package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Concurrent read-modify-write under the user lock matches sequential execution.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(1000, 100000).Draw(t, "initial")
		amounts := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "amounts")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		expected := initial
		for _, a := range amounts {
			expected += a
		}

		ul := NewUserLock()
		balance := initial

		var wg sync.WaitGroup
		for _, a := range amounts {
			wg.Add(1)
			go func(amount int64) {
				defer wg.Done()
				_ = ul.WithLock(context.Background(), userID, func() error {
					balance += amount
					return nil
				})
			}(a)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance mismatch: expected %d, got %d", expected, balance)
		}
	})
}

func TestLockTimesOutWhenHeld(t *testing.T) {
	ul := NewUserLock()
	require.True(t, ul.TryLock(7))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := ul.Lock(ctx, 7)
	assert.ErrorIs(t, err, ErrLockTimeout)

	ul.Unlock(7)
	assert.True(t, ul.TryLock(7))
}

func TestDifferentUsersDoNotBlock(t *testing.T) {
	ul := NewUserLock()
	require.True(t, ul.TryLock(1))
	assert.True(t, ul.TryLock(2))
}

func TestWithLocksOverlappingSets(t *testing.T) {
	ul := NewUserLock()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids := []int64{3, 1, 2}
			if i%2 == 0 {
				ids = []int64{2, 3, 3, 1}
			}
			err := ul.WithLocks(context.Background(), ids, func() error {
				counter++
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	for _, id := range []int64{1, 2, 3} {
		assert.True(t, ul.TryLock(id), "user %d should be released", id)
	}
}

func TestSlotsAreDroppedWhenIdle(t *testing.T) {
	ul := NewUserLock()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_ = ul.WithLock(context.Background(), userID%20, func() error { return nil })
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 0, ul.Len())

	require.True(t, ul.TryLock(5))
	assert.False(t, ul.TryLock(5))
	assert.Equal(t, 1, ul.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, ul.Lock(ctx, 5), ErrLockTimeout)
	assert.Equal(t, 1, ul.Len())

	ul.Unlock(5)
	ul.Unlock(5)
	assert.Equal(t, 0, ul.Len())
}
