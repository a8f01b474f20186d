// Package lock provides per-user locking so balance mutations for the same
// user are serialized while different users proceed independently.
package lock

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrLockTimeout is returned when a lock cannot be acquired before the context ends.
var ErrLockTimeout = errors.New("lock acquisition timeout")

// userSlot is a channel of capacity one used as a mutex so acquisition can
// be abandoned when the context is done. refs counts the holder and waiters.
type userSlot struct {
	ch   chan struct{}
	refs int
}

// UserLock hands out one lock per user ID. A user's slot is dropped once
// nobody holds or waits for it, so the map only grows with active users.
type UserLock struct {
	mu    sync.Mutex
	slots map[int64]*userSlot
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{slots: make(map[int64]*userSlot)}
}

// acquire returns the user's slot, creating it if needed, and counts the caller.
func (ul *UserLock) acquire(userID int64) *userSlot {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	s, ok := ul.slots[userID]
	if !ok {
		s = &userSlot{ch: make(chan struct{}, 1)}
		ul.slots[userID] = s
	}
	s.refs++
	return s
}

// release uncounts a caller that gave up without taking the lock.
func (ul *UserLock) release(userID int64) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	ul.dropRef(userID)
}

func (ul *UserLock) dropRef(userID int64) {
	s, ok := ul.slots[userID]
	if !ok {
		return
	}
	s.refs--
	if s.refs <= 0 {
		delete(ul.slots, userID)
	}
}

// Lock acquires the lock for a user, giving up when ctx is done.
func (ul *UserLock) Lock(ctx context.Context, userID int64) error {
	s := ul.acquire(userID)
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.release(userID)
		return ErrLockTimeout
	}
}

// Unlock releases the lock for a user. Unlocking a user that is not locked is a no-op.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	s, ok := ul.slots[userID]
	if !ok {
		return
	}
	select {
	case <-s.ch:
		ul.dropRef(userID)
	default:
	}
}

// TryLock attempts to acquire the lock without blocking.
func (ul *UserLock) TryLock(userID int64) bool {
	s := ul.acquire(userID)
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		ul.release(userID)
		return false
	}
}

// Len reports how many users currently hold or wait for a lock.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.slots)
}

// WithLock executes fn while holding the user's lock.
func (ul *UserLock) WithLock(ctx context.Context, userID int64, fn func() error) error {
	if err := ul.Lock(ctx, userID); err != nil {
		return err
	}
	defer ul.Unlock(userID)
	return fn()
}

// WithLocks executes fn while holding the locks of every given user. Locks
// are taken in ascending ID order so two callers with overlapping sets
// cannot deadlock.
func (ul *UserLock) WithLocks(ctx context.Context, userIDs []int64, fn func() error) error {
	ids := uniqueSorted(userIDs)

	held := make([]int64, 0, len(ids))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			ul.Unlock(held[i])
		}
	}()

	for _, id := range ids {
		if err := ul.Lock(ctx, id); err != nil {
			return err
		}
		held = append(held, id)
	}
	return fn()
}

func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
