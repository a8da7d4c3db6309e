package economy

import (
	"context"
	"sync"
	"testing"

	"github.com/hanabira/hanabira/backend/go-services/internal/config"
	"github.com/stretchr/testify/require"
)

func testCaps() config.EconomyConfig {
	return config.EconomyConfig{
		StrictSpendReasons: false,
		SourceCaps: map[string]config.SourceCap{
			"PETAL_CLICK":         {MaxPerAward: 50, DailyCap: 500},
			"mini-game:petal-run": {MaxPerAward: 200, DailyCap: 1000},
			"PURCHASE_BONUS":      {MaxPerAward: 5000, DailyCap: 0},
		},
	}
}

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	store.AddUser(1)
	return NewService(store, testCaps(), nil), store
}

func TestEarnThenBalance(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	bal, err := svc.Earn(ctx, 1, CurrencyPetals, 40, "PETAL_CLICK", map[string]any{"clicks": 40})
	require.NoError(t, err)
	require.Equal(t, int64(40), bal)

	got, err := svc.Balance(ctx, 1, CurrencyPetals)
	require.NoError(t, err)
	require.Equal(t, int64(40), got)

	// ledger reconciles with the balance
	require.Equal(t, got, store.SignedSum(1, CurrencyPetals))
}

func TestBalanceUnknownUserIsZero(t *testing.T) {
	svc, _ := newTestService(t)

	bal, err := svc.Balance(context.Background(), 999, CurrencyPetals)
	require.NoError(t, err)
	require.Zero(t, bal)
}

func TestEarnRejectsInvalidAmount(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	for _, amount := range []int64{0, -5} {
		_, err := svc.Earn(ctx, 1, CurrencyPetals, amount, "PETAL_CLICK", nil)
		require.ErrorIs(t, err, ErrInvalidAmount)
	}
	require.Zero(t, store.SignedSum(1, CurrencyPetals))
}

func TestEarnRejectsUnknownSource(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Earn(context.Background(), 1, CurrencyPetals, 10, "mini-game:made-up", nil)
	require.ErrorIs(t, err, ErrUnknownReason)
}

func TestEarnOverCapLeavesNoTrace(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// per-source cap for the clicker is 50
	_, err := svc.Earn(ctx, 1, CurrencyPetals, 500, "PETAL_CLICK", nil)
	require.ErrorIs(t, err, ErrAmountExceedsCap)

	bal, err := svc.Balance(ctx, 1, CurrencyPetals)
	require.NoError(t, err)
	require.Zero(t, bal)
	require.Zero(t, store.SignedSum(1, CurrencyPetals))
}

func TestEarnDailyCap(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// 10 awards of 50 reach the 500/day clicker cap
	for i := 0; i < 10; i++ {
		_, err := svc.Earn(ctx, 1, CurrencyPetals, 50, "PETAL_CLICK", nil)
		require.NoError(t, err)
	}
	_, err := svc.Earn(ctx, 1, CurrencyPetals, 1, "PETAL_CLICK", nil)
	require.ErrorIs(t, err, ErrDailyCapExceeded)

	// other sources are unaffected by the clicker's cap
	_, err = svc.Earn(ctx, 1, CurrencyPetals, 100, "mini-game:petal-run", nil)
	require.NoError(t, err)

	bal, err := svc.Balance(ctx, 1, CurrencyPetals)
	require.NoError(t, err)
	require.Equal(t, int64(600), bal)
}

func TestSpendScenario(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Earn(ctx, 1, CurrencyPetals, 100, "mini-game:petal-run", nil)
	require.NoError(t, err)

	bal, err := svc.Spend(ctx, 1, CurrencyPetals, 60, "SHOP_PURCHASE", map[string]any{"product_id": "p1"})
	require.NoError(t, err)
	require.Equal(t, int64(40), bal)

	_, err = svc.Spend(ctx, 1, CurrencyPetals, 60, "SHOP_PURCHASE", nil)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	bal, err = svc.Balance(ctx, 1, CurrencyPetals)
	require.NoError(t, err)
	require.Equal(t, int64(40), bal)
	require.Equal(t, bal, store.SignedSum(1, CurrencyPetals))
}

func TestSpendStrictReasons(t *testing.T) {
	store := NewMemoryStore()
	store.AddUser(1)
	cfg := testCaps()
	cfg.StrictSpendReasons = true
	svc := NewService(store, cfg, nil)
	ctx := context.Background()

	_, err := svc.Earn(ctx, 1, CurrencyPetals, 100, "mini-game:petal-run", nil)
	require.NoError(t, err)

	_, err = svc.Spend(ctx, 1, CurrencyPetals, 10, "WHATEVER", nil)
	require.ErrorIs(t, err, ErrUnknownReason)

	_, err = svc.Spend(ctx, 1, CurrencyPetals, 10, "GACHA_PULL", nil)
	require.NoError(t, err)
}

func TestAuthorizeSpend(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Earn(ctx, 1, CurrencyPetals, 100, "mini-game:petal-run", nil)
	require.NoError(t, err)

	ok, err := svc.AuthorizeSpend(ctx, 1, CurrencyPetals, 100)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.AuthorizeSpend(ctx, 1, CurrencyPetals, 101)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.False(t, ok)

	ok, err = svc.AuthorizeSpend(ctx, 1, CurrencyPetals, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
	require.False(t, ok)
}

func TestConcurrentSpendsNeverOverdraw(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Earn(ctx, 1, CurrencyPetals, 100, "mini-game:petal-run", nil)
	require.NoError(t, err)

	// two concurrent spends of 70 against balance 100: exactly one may win
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Spend(ctx, 1, CurrencyPetals, 70, "SHOP_PURCHASE", nil)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, rejections int
	for err := range results {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, ErrInsufficientFunds)
			rejections++
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, rejections)

	bal, err := svc.Balance(ctx, 1, CurrencyPetals)
	require.NoError(t, err)
	require.Equal(t, int64(30), bal)
	require.Equal(t, bal, store.SignedSum(1, CurrencyPetals))
}

func TestConcurrentMixedTrafficReconciles(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Earn(ctx, 1, CurrencyPetals, 200, "mini-game:petal-run", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Earn(ctx, 1, CurrencyPetals, 25, "PETAL_CLICK", nil)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Spend(ctx, 1, CurrencyPetals, 40, "SHOP_PURCHASE", nil)
		}()
	}
	wg.Wait()

	bal, err := svc.Balance(ctx, 1, CurrencyPetals)
	require.NoError(t, err)
	require.GreaterOrEqual(t, bal, int64(0))
	require.Equal(t, bal, store.SignedSum(1, CurrencyPetals))
}

func TestRunesAreSeparateFromPetals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Earn(ctx, 1, CurrencyRunes, 30, "mini-game:petal-run", nil)
	require.NoError(t, err)

	petals, err := svc.Balance(ctx, 1, CurrencyPetals)
	require.NoError(t, err)
	require.Zero(t, petals)

	runes, err := svc.Balance(ctx, 1, CurrencyRunes)
	require.NoError(t, err)
	require.Equal(t, int64(30), runes)
}

func TestHistoryNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Earn(ctx, 1, CurrencyPetals, 50, "PETAL_CLICK", nil)
	require.NoError(t, err)
	_, err = svc.Spend(ctx, 1, CurrencyPetals, 20, "SHOP_PURCHASE", nil)
	require.NoError(t, err)

	entries, err := svc.History(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, EntrySpend, entries[0].Type)
	require.Equal(t, EntryEarn, entries[1].Type)
	require.Equal(t, int64(-20), entries[0].Signed())
}
