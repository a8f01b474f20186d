package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/testutil"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/service"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newStore(t *testing.T) (*Store, *gorm.DB) {
	db := testutil.NewDB(t, AutoMigrate)
	return NewStore(db), db
}

func TestGetBalanceWithoutWallet(t *testing.T) {
	store, _ := newStore(t)

	balance, err := store.GetBalance(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestApplyDeltaCreditAndDebit(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	balance, err := store.ApplyDelta(ctx, 1, d("100"), "seed:1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("100")), balance.String())

	balance, err = store.ApplyDelta(ctx, 1, d("-30.50"), "stake:1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("69.5")), balance.String())

	entry, err := store.FindEntry(ctx, "stake:1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Amount.Equal(d("-30.5")))
	assert.True(t, entry.BalanceAfter.Equal(d("69.5")))
}

func TestApplyDeltaIsIdempotent(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	_, err := store.ApplyDelta(ctx, 7, d("50"), "win:blitz:1:7")
	require.NoError(t, err)
	balance, err := store.ApplyDelta(ctx, 7, d("50"), "win:blitz:1:7")
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("50")), "replayed key must not credit twice, got %s", balance)
}

func TestApplyDeltaRejectsOverdraft(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	_, err := store.ApplyDelta(ctx, 3, d("40"), "seed:3")
	require.NoError(t, err)

	_, err = store.ApplyDelta(ctx, 3, d("-50"), "stake:3:a")
	assert.True(t, errors.Is(err, service.ErrInsufficientBalance), "got %v", err)

	balance, err := store.GetBalance(ctx, 3)
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("40")))

	// The failed key left no trace and can be retried once funds arrive.
	entry, err := store.FindEntry(ctx, "stake:3:a")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestApplyDeltaDebitWithoutWallet(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.ApplyDelta(context.Background(), 9, d("-1"), "stake:9")
	assert.True(t, errors.Is(err, service.ErrInsufficientBalance))
}

func TestApplyDeltaRollsBackWithCallerTransaction(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := store.WithTx(tx).ApplyDelta(ctx, 5, d("10"), "seed:5"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	balance, err := store.GetBalance(ctx, 5)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	entry, err := store.FindEntry(ctx, "seed:5")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestApplyDeltaConcurrentDebitsNeverOverdraw(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	_, err := store.ApplyDelta(ctx, 11, d("100"), "seed:11")
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.ApplyDelta(ctx, 11, d("-10"), "stake:11:"+string(rune('a'+i)))
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	balance, err := store.GetBalance(ctx, 11)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), balance.String())
}
