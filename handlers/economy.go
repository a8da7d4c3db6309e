package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hanabira/hanabira/backend/go-services/internal/economy"
	"github.com/hanabira/hanabira/backend/go-services/internal/models"
	"github.com/hanabira/hanabira/backend/go-services/pkg/logger"
)

// storeTimeout bounds every persistence call made on behalf of a request. An
// exceeded deadline surfaces as SERVER_ERROR; committed work stays committed.
const storeTimeout = 5 * time.Second

// UserResolver maps verified claims onto an application user, creating the
// row on first authenticated access.
type UserResolver interface {
	UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error)
}

// mutationRequest is the schema-validated body shared by earn and spend.
// Amount carries no sign: the endpoint determines the direction.
type mutationRequest struct {
	Amount   int64          `json:"amount" binding:"required"`
	Reason   string         `json:"reason" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

// EconomyHandler exposes the balance/earn/spend/history surface for both
// currencies.
type EconomyHandler struct {
	eco   *economy.Service
	users UserResolver
}

func NewEconomyHandler(eco *economy.Service, users UserResolver) *EconomyHandler {
	return &EconomyHandler{eco: eco, users: users}
}

// Register mounts the economy routes on an authenticated group.
func (h *EconomyHandler) Register(rg *gin.RouterGroup) {
	p := rg.Group("/petals")
	p.GET("/balance", h.balance(economy.CurrencyPetals, "petals"))
	p.POST("/earn", h.earn(economy.CurrencyPetals, "petals"))
	p.POST("/spend", h.spend(economy.CurrencyPetals, "petals"))
	p.GET("/history", h.history)

	r := rg.Group("/runes")
	r.GET("/balance", h.balance(economy.CurrencyRunes, "runes"))
	r.POST("/earn", h.earn(economy.CurrencyRunes, "runes"))
	r.POST("/spend", h.spend(economy.CurrencyRunes, "runes"))
}

// resolveUser turns the verified claims into the caller's user row.
func (h *EconomyHandler) resolveUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get("claims")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
		return nil, false
	}
	claims, ok := v.(map[string]interface{})
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
		return nil, false
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()
	u, err := h.users.UpsertFromClaims(ctx, claims)
	if err != nil {
		logger.Errorf("user upsert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return nil, false
	}
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
		return nil, false
	}
	return u, true
}

func (h *EconomyHandler) balance(cur economy.Currency, field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := h.resolveUser(c)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()
		bal, err := h.eco.Balance(ctx, u.ID, cur)
		if err != nil {
			logger.Errorf("balance read failed (user=%d): %v", u.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "balance": bal, field: bal})
	}
}

func (h *EconomyHandler) earn(cur economy.Currency, field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := h.resolveUser(c)
		if !ok {
			return
		}
		var req mutationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_AMOUNT"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()
		bal, err := h.eco.Earn(ctx, u.ID, cur, req.Amount, req.Reason, req.Metadata)
		if err != nil {
			writeEconomyError(c, u.ID, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, field: bal})
	}
}

func (h *EconomyHandler) spend(cur economy.Currency, field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := h.resolveUser(c)
		if !ok {
			return
		}
		var req mutationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_AMOUNT"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()
		bal, err := h.eco.Spend(ctx, u.ID, cur, req.Amount, req.Reason, req.Metadata)
		if err != nil {
			writeEconomyError(c, u.ID, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, field: bal})
	}
}

func (h *EconomyHandler) history(c *gin.Context) {
	u, ok := h.resolveUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()
	entries, err := h.eco.History(ctx, u.ID, limit, offset)
	if err != nil {
		logger.Errorf("history read failed (user=%d): %v", u.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	if entries == nil {
		entries = []economy.LedgerEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "entries": entries})
}

// writeEconomyError maps core errors onto the wire taxonomy. Validation and
// funds errors are the caller's fault; everything else is SERVER_ERROR with
// the detail kept out of the response.
func writeEconomyError(c *gin.Context, userID int64, err error) {
	switch {
	case errors.Is(err, economy.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_AMOUNT"})
	case errors.Is(err, economy.ErrUnknownReason):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "UNKNOWN_REASON"})
	case errors.Is(err, economy.ErrAmountExceedsCap):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "AMOUNT_EXCEEDS_CAP"})
	case errors.Is(err, economy.ErrDailyCapExceeded):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "DAILY_CAP_EXCEEDED"})
	case errors.Is(err, economy.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INSUFFICIENT_FUNDS"})
	default:
		logger.Errorf("ledger transaction failed (user=%d): %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
	}
}
