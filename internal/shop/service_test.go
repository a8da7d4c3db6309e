package shop

import (
	"context"
	"testing"

	"github.com/hanabira/hanabira/backend/go-services/internal/config"
	"github.com/hanabira/hanabira/backend/go-services/internal/economy"
	"github.com/stretchr/testify/require"
)

func newShop(t *testing.T) (*Service, *economy.MemoryStore) {
	t.Helper()
	store := economy.NewMemoryStore()
	store.AddUser(1)
	eco := economy.NewService(store, config.EconomyConfig{
		SourceCaps: map[string]config.SourceCap{
			"PURCHASE_BONUS": {MaxPerAward: 5000},
		},
	}, nil)
	return NewService(NewMemoryProductRepository(), eco, nil), store
}

func seedProduct(t *testing.T, svc *Service, id string, price int64, active bool) {
	t.Helper()
	_, err := svc.UpsertProduct(context.Background(), &Product{
		ID: id, Name: "Item " + id, PricePetals: price, Active: active,
	})
	require.NoError(t, err)
}

func TestPurchase(t *testing.T) {
	svc, store := newShop(t)
	ctx := context.Background()
	seedProduct(t, svc, "figurine", 80, true)

	_, err := store.Earn(ctx, 1, economy.CurrencyPetals, 100, "PURCHASE_BONUS", nil, 0)
	require.NoError(t, err)

	bal, err := svc.Purchase(ctx, 1, "figurine")
	require.NoError(t, err)
	require.Equal(t, int64(20), bal)

	// ledger carries the product id
	entries, err := store.Entries(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Equal(t, "SHOP_PURCHASE", entries[0].Reason)
	require.Equal(t, "figurine", entries[0].Metadata["product_id"])
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	svc, store := newShop(t)
	ctx := context.Background()
	seedProduct(t, svc, "poster", 50, true)

	_, err := store.Earn(ctx, 1, economy.CurrencyPetals, 30, "PURCHASE_BONUS", nil, 0)
	require.NoError(t, err)

	_, err = svc.Purchase(ctx, 1, "poster")
	require.ErrorIs(t, err, economy.ErrInsufficientFunds)

	bal, err := store.Balance(ctx, 1, economy.CurrencyPetals)
	require.NoError(t, err)
	require.Equal(t, int64(30), bal)
}

func TestPurchaseUnknownProduct(t *testing.T) {
	svc, _ := newShop(t)

	_, err := svc.Purchase(context.Background(), 1, "nope")
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestPurchaseInactiveProduct(t *testing.T) {
	svc, _ := newShop(t)
	seedProduct(t, svc, "retired", 10, false)

	_, err := svc.Purchase(context.Background(), 1, "retired")
	require.ErrorIs(t, err, ErrProductUnavailable)
}

func TestUpsertProductValidation(t *testing.T) {
	svc, _ := newShop(t)
	ctx := context.Background()

	_, err := svc.UpsertProduct(ctx, &Product{ID: "", Name: "x", PricePetals: 10})
	require.ErrorIs(t, err, ErrInvalidProduct)
	_, err = svc.UpsertProduct(ctx, &Product{ID: "x", Name: "x", PricePetals: 0})
	require.ErrorIs(t, err, ErrInvalidProduct)
}

func TestListProductsOnlyActive(t *testing.T) {
	svc, _ := newShop(t)
	ctx := context.Background()
	seedProduct(t, svc, "a", 10, true)
	seedProduct(t, svc, "b", 10, false)

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "a", products[0].ID)
}
