package economy

import (
	"context"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/hanabira/hanabira/backend/go-services/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisDailyCounter_UsedAndAdd(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	counter := NewRedisDailyCounter(client, "test:earncap:")
	ctx := context.Background()

	used, err := counter.Used(ctx, 7, CurrencyPetals, "PETAL_CLICK")
	require.NoError(t, err)
	require.Zero(t, used)

	require.NoError(t, counter.Add(ctx, 7, CurrencyPetals, "PETAL_CLICK", 30))
	require.NoError(t, counter.Add(ctx, 7, CurrencyPetals, "PETAL_CLICK", 20))

	used, err = counter.Used(ctx, 7, CurrencyPetals, "PETAL_CLICK")
	require.NoError(t, err)
	require.Equal(t, int64(50), used)

	// other users and currencies track independently
	used, err = counter.Used(ctx, 8, CurrencyPetals, "PETAL_CLICK")
	require.NoError(t, err)
	require.Zero(t, used)
	used, err = counter.Used(ctx, 7, CurrencyRunes, "PETAL_CLICK")
	require.NoError(t, err)
	require.Zero(t, used)
}

func TestServiceUsesFastPathCounter(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	counter := NewRedisDailyCounter(client, "test:earncap:")

	store := NewMemoryStore()
	store.AddUser(1)
	svc := NewService(store, config.EconomyConfig{
		SourceCaps: map[string]config.SourceCap{
			"PETAL_CLICK": {MaxPerAward: 50, DailyCap: 100},
		},
	}, counter)
	ctx := context.Background()

	_, err = svc.Earn(ctx, 1, CurrencyPetals, 50, "PETAL_CLICK", nil)
	require.NoError(t, err)
	_, err = svc.Earn(ctx, 1, CurrencyPetals, 50, "PETAL_CLICK", nil)
	require.NoError(t, err)

	// fast path rejects before the store is touched
	_, err = svc.Earn(ctx, 1, CurrencyPetals, 1, "PETAL_CLICK", nil)
	require.ErrorIs(t, err, ErrDailyCapExceeded)

	used, err := counter.Used(ctx, 1, CurrencyPetals, "PETAL_CLICK")
	require.NoError(t, err)
	require.Equal(t, int64(100), used)
}
