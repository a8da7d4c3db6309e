package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/hanabira/hanabira/backend/go-services/internal/config"
	"github.com/hanabira/hanabira/backend/go-services/internal/economy"
	"github.com/hanabira/hanabira/backend/go-services/internal/models"
	"github.com/hanabira/hanabira/backend/go-services/internal/shop"
)

func shopTestRouter(t *testing.T, claims map[string]interface{}) (*gin.Engine, *economy.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := economy.NewMemoryStore()
	store.AddUser(1)
	eco := economy.NewService(store, config.EconomyConfig{
		SourceCaps: map[string]config.SourceCap{
			"PURCHASE_BONUS": {MaxPerAward: 5000},
		},
	}, nil)
	_, err := eco.Earn(context.Background(), 1, economy.CurrencyPetals, 500, "PURCHASE_BONUS", nil)
	require.NoError(t, err)

	repo := shop.NewMemoryProductRepository()
	_, err = repo.Upsert(context.Background(), &shop.Product{
		ID: "sticker-rem", Name: "Rem Sticker Sheet", PricePetals: 300, Active: true,
	})
	require.NoError(t, err)
	_, err = repo.Upsert(context.Background(), &shop.Product{
		ID: "retired-badge", Name: "Retired Badge", PricePetals: 100, Active: false,
	})
	require.NoError(t, err)

	h := NewShopHandler(shop.NewService(repo, eco, nil),
		&fakeResolver{user: &models.User{ID: 1, Sub: "user-1"}})

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set("claims", claims)
		c.Next()
	})
	h.Register(api)
	return r, store
}

func buyerClaims() map[string]interface{} {
	return map[string]interface{}{"sub": "user-1"}
}

func adminClaims() map[string]interface{} {
	return map[string]interface{}{
		"sub":          "user-1",
		"realm_access": map[string]interface{}{"roles": []interface{}{"shop-admin"}},
	}
}

func TestPurchaseDebitsPetals(t *testing.T) {
	r, store := shopTestRouter(t, buyerClaims())

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/shop/purchase",
		gin.H{"product_id": "sticker-rem"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(200), resp["petals"])

	bal, err := store.Balance(context.Background(), 1, economy.CurrencyPetals)
	require.NoError(t, err)
	require.Equal(t, int64(200), bal)
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	r, _ := shopTestRouter(t, buyerClaims())

	_, _ = doJSON(t, r, http.MethodPost, "/api/v1/shop/purchase",
		gin.H{"product_id": "sticker-rem"})
	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/shop/purchase",
		gin.H{"product_id": "sticker-rem"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INSUFFICIENT_FUNDS", resp["error"])
}

func TestPurchaseUnknownAndInactive(t *testing.T) {
	r, _ := shopTestRouter(t, buyerClaims())

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/shop/purchase",
		gin.H{"product_id": "no-such-product"})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "PRODUCT_NOT_FOUND", resp["error"])

	w, resp = doJSON(t, r, http.MethodPost, "/api/v1/shop/purchase",
		gin.H{"product_id": "retired-badge"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "PRODUCT_UNAVAILABLE", resp["error"])
}

func TestListProductsOnlyActive(t *testing.T) {
	r, _ := shopTestRouter(t, buyerClaims())

	w, resp := doJSON(t, r, http.MethodGet, "/api/v1/shop/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	products := resp["products"].([]any)
	require.Len(t, products, 1)
	require.Equal(t, "sticker-rem", products[0].(map[string]any)["id"])
}

func TestUpsertProductNeedsAdminRole(t *testing.T) {
	r, _ := shopTestRouter(t, buyerClaims())

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/shop/products",
		gin.H{"id": "new-item", "name": "New Item", "pricePetals": 100, "active": true})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "FORBIDDEN", resp["error"])
}

func TestUpsertProductAsAdmin(t *testing.T) {
	r, _ := shopTestRouter(t, adminClaims())

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/shop/products",
		gin.H{"id": "keychain-02", "name": "Petal Keychain", "pricePetals": 150, "active": true})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, resp["ok"])

	w, resp = doJSON(t, r, http.MethodGet, "/api/v1/shop/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["products"].([]any), 2)
}

func TestUpsertProductValidation(t *testing.T) {
	r, _ := shopTestRouter(t, adminClaims())

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/shop/products",
		gin.H{"id": "bad", "name": "Bad", "pricePetals": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_PRODUCT", resp["error"])
}
