package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hanabira/hanabira/backend/go-services/internal/economy"
	"github.com/hanabira/hanabira/backend/go-services/internal/shop"
	"github.com/hanabira/hanabira/backend/go-services/pkg/logger"
)

const maxProductImageSize = 8 << 20

// ShopHandler serves the product catalog and petal-priced purchases.
type ShopHandler struct {
	shop  *shop.Service
	users UserResolver
}

func NewShopHandler(svc *shop.Service, users UserResolver) *ShopHandler {
	return &ShopHandler{shop: svc, users: users}
}

func (h *ShopHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/shop")
	g.GET("/products", h.listProducts)
	g.POST("/purchase", h.purchase)
	g.POST("/products", h.upsertProduct)
	g.POST("/products/:id/image", h.uploadImage)
}

func (h *ShopHandler) listProducts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()
	products, err := h.shop.ListProducts(ctx)
	if err != nil {
		logger.Errorf("product listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	if products == nil {
		products = []*shop.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "products": products})
}

type purchaseRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

func (h *ShopHandler) purchase(c *gin.Context) {
	v, ok := c.Get("claims")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
		return
	}
	claims, _ := v.(map[string]interface{})
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()
	u, err := h.users.UpsertFromClaims(ctx, claims)
	if err != nil || u == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_PRODUCT"})
		return
	}

	bal, err := h.shop.Purchase(ctx, u.ID, req.ProductID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true, "petals": bal})
	case errors.Is(err, shop.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "PRODUCT_NOT_FOUND"})
	case errors.Is(err, shop.ErrProductUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "PRODUCT_UNAVAILABLE"})
	case errors.Is(err, economy.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INSUFFICIENT_FUNDS"})
	default:
		writeEconomyError(c, u.ID, err)
	}
}

// upsertProduct is restricted to callers holding the shop-admin realm role.
func (h *ShopHandler) upsertProduct(c *gin.Context) {
	if !hasRealmRole(c, "shop-admin") {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "FORBIDDEN"})
		return
	}
	var p shop.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_PRODUCT"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()
	saved, err := h.shop.UpsertProduct(ctx, &p)
	if err != nil {
		if errors.Is(err, shop.ErrInvalidProduct) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_PRODUCT"})
			return
		}
		logger.Errorf("product upsert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "product": saved})
}

func (h *ShopHandler) uploadImage(c *gin.Context) {
	if !hasRealmRole(c, "shop-admin") {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "FORBIDDEN"})
		return
	}
	file, err := c.FormFile("image")
	if err != nil || file.Size <= 0 || file.Size > maxProductImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_IMAGE"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_IMAGE"})
		return
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	if err := h.shop.UploadImage(ctx, c.Param("id"), src, file.Size, file.Header.Get("Content-Type")); err != nil {
		if errors.Is(err, shop.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "PRODUCT_NOT_FOUND"})
			return
		}
		logger.Errorf("image upload failed (product=%s): %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// hasRealmRole checks the Keycloak realm_access.roles claim.
func hasRealmRole(c *gin.Context, role string) bool {
	v, ok := c.Get("claims")
	if !ok {
		return false
	}
	claims, ok := v.(map[string]interface{})
	if !ok {
		return false
	}
	access, ok := claims["realm_access"].(map[string]interface{})
	if !ok {
		return false
	}
	roles, ok := access["roles"].([]interface{})
	if !ok {
		return false
	}
	for _, r := range roles {
		if s, ok := r.(string); ok && s == role {
			return true
		}
	}
	return false
}
