package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/machine"
	gmsdb "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/repository/db"
	gmsusecase "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/usecase"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
	gsdb "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/repository/db"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/wallet"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/testutil"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/lock"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/service"
	"gorm.io/gorm"
)

const firstPeriod = 100

var blitz = gmsdomain.GameMode{ID: "blitz", Name: "Blitz", DurationSeconds: 30}

// fixedSource always draws n.
type fixedSource struct{ n int }

func (s fixedSource) Intn(int) int { return s.n }

// clockGate exposes a single RoundClock as a RoundGate.
type clockGate struct {
	clock  *machine.RoundClock
	rounds gmsdomain.GameRoundRepository
}

func (g clockGate) WithOpenRound(_ context.Context, _ string, periodNumber int64, fn func() error) error {
	return g.clock.WithOpenRound(periodNumber, fn)
}

func (g clockGate) GetRound(ctx context.Context, modeID string, periodNumber int64) (*gmsdomain.Round, error) {
	return g.rounds.Get(ctx, modeID, periodNumber)
}

// noticeRecorder collects the messages sent to players.
type noticeRecorder struct {
	mu      sync.Mutex
	notices map[int64][]*domain.SettlementNotice
}

func (r *noticeRecorder) Broadcast(interface{}) {}

func (r *noticeRecorder) SendToUser(userID int64, event interface{}) {
	n, ok := event.(*domain.SettlementNotice)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notices == nil {
		r.notices = make(map[int64][]*domain.SettlementNotice)
	}
	r.notices[userID] = append(r.notices[userID], n)
}

func (r *noticeRecorder) For(userID int64) []*domain.SettlementNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notices[userID]
}

type harness struct {
	t        *testing.T
	db       *gorm.DB
	clk      *testutil.Clock
	rounds   *gmsdb.GameRoundRepository
	resolver *gmsusecase.ResultResolver
	bets     *gsdb.BetRepository
	wallet   *wallet.Store
	locks    *lock.UserLock
	notices  *noticeRecorder
	engine   *SettlementEngine
	clock    *machine.RoundClock
	ledger   *BetLedger
	stats    *LiveStatsAggregator
}

// newHarness wires a real clock, resolver, ledger and settlement engine for
// the blitz mode on a fresh database. settleWallet replaces the wallet the
// engine credits through when non-nil.
func newHarness(t *testing.T, drawn int, settleWallet func(service.BalanceStore) service.BalanceStore) *harness {
	gdb := testutil.NewDB(t, gmsdb.AutoMigrate, gsdb.AutoMigrate, wallet.AutoMigrate)
	h := &harness{
		t:       t,
		db:      gdb,
		clk:     testutil.NewClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		rounds:  gmsdb.NewGameRoundRepository(gdb),
		bets:    gsdb.NewBetRepository(gdb),
		wallet:  wallet.NewStore(gdb),
		locks:   lock.NewUserLock(),
		notices: &noticeRecorder{},
		stats:   NewLiveStatsAggregator([]string{blitz.ID}, nil),
	}
	h.resolver = gmsusecase.NewResultResolver(h.rounds, gmsdb.NewRoundResultRepository(gdb), fixedSource{n: drawn})

	var credits service.BalanceStore = h.wallet
	if settleWallet != nil {
		credits = settleWallet(h.wallet)
	}
	h.engine = NewSettlementEngine(gdb, h.rounds, h.bets, credits, h.resolver, DefaultPayoutPolicy(), h.locks, h.notices)
	h.engine.now = h.clk.Now

	h.clock = machine.NewRoundClock(blitz, h.rounds, h.engine, machine.Options{
		LockBuffer:   5 * time.Second,
		FirstPeriod:  firstPeriod,
		RetryInitial: time.Second,
		RetryMax:     5 * time.Second,
		Now:          h.clk.Now,
	})
	h.clock.RegisterEventHandler(h.stats.HandleRoundEvent)

	h.ledger = NewBetLedger(gdb, clockGate{clock: h.clock, rounds: h.rounds}, h.bets, h.wallet, h.locks)
	h.ledger.now = h.clk.Now
	h.ledger.OnBetPlaced(h.stats.Record)

	require.NoError(t, h.clock.Recover(context.Background()))
	return h
}

func (h *harness) seed(userID int64, amount string) {
	h.t.Helper()
	_, err := h.wallet.ApplyDelta(context.Background(), userID, decimal.RequireFromString(amount), fmt.Sprintf("seed:%d:%s", userID, amount))
	require.NoError(h.t, err)
}

func (h *harness) bet(userID int64, betType domain.BetType, value, amount string) (*PlaceBetResult, error) {
	return h.ledger.PlaceBet(context.Background(), PlaceBetRequest{
		ModeID:       blitz.ID,
		PeriodNumber: firstPeriod,
		UserID:       userID,
		BetType:      betType,
		BetValue:     value,
		Amount:       decimal.RequireFromString(amount),
	})
}

// lockRound moves the clock to the lock time and performs the lock transition.
func (h *harness) lockRound() {
	h.t.Helper()
	h.clk.Advance(25 * time.Second)
	assert.Equal(h.t, time.Duration(0), h.clock.Step(context.Background()))
	view, _ := h.clock.Current()
	require.Equal(h.t, gmsdomain.RoundStatusLocked, view.Status)
}

func (h *harness) round() *gmsdomain.Round {
	h.t.Helper()
	r, err := h.rounds.Get(context.Background(), blitz.ID, firstPeriod)
	require.NoError(h.t, err)
	return r
}

func (h *harness) balance(userID int64) decimal.Decimal {
	h.t.Helper()
	b, err := h.wallet.GetBalance(context.Background(), userID)
	require.NoError(h.t, err)
	return b
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func decimalOf(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
