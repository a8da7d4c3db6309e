package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hanabira/hanabira/backend/go-services/internal/soapstone"
	"github.com/hanabira/hanabira/backend/go-services/pkg/logger"
)

// SoapstoneHandler serves templated community messages left in shop zones.
type SoapstoneHandler struct {
	soap  *soapstone.Service
	users UserResolver
}

func NewSoapstoneHandler(svc *soapstone.Service, users UserResolver) *SoapstoneHandler {
	return &SoapstoneHandler{soap: svc, users: users}
}

func (h *SoapstoneHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/soapstone")
	g.POST("", h.leave)
	g.GET("", h.list)
	g.POST("/:id/appraise", h.appraise)
}

type leaveRequest struct {
	Zone        string `json:"zone" binding:"required"`
	Template    string `json:"template" binding:"required"`
	Conjunction string `json:"conjunction"`
	Template2   string `json:"template2"`
}

func (h *SoapstoneHandler) caller(c *gin.Context) (int64, string, bool) {
	v, ok := c.Get("claims")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
		return 0, "", false
	}
	claims, _ := v.(map[string]interface{})
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()
	u, err := h.users.UpsertFromClaims(ctx, claims)
	if err != nil || u == nil {
		logger.Errorf("user upsert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return 0, "", false
	}
	return u.ID, u.Name, true
}

func (h *SoapstoneHandler) leave(c *gin.Context) {
	userID, name, ok := h.caller(c)
	if !ok {
		return
	}
	var req leaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_TEMPLATE"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()
	msg, err := h.soap.Leave(ctx, userID, name, req.Zone, req.Template, req.Conjunction, req.Template2)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": msg})
	case errors.Is(err, soapstone.ErrInvalidZone):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_ZONE"})
	case errors.Is(err, soapstone.ErrInvalidTemplate):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_TEMPLATE"})
	default:
		logger.Errorf("soapstone insert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
	}
}

func (h *SoapstoneHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()
	msgs, err := h.soap.List(ctx, c.Query("zone"), limit)
	if err != nil {
		if errors.Is(err, soapstone.ErrInvalidZone) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_ZONE"})
			return
		}
		logger.Errorf("soapstone listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	if msgs == nil {
		msgs = []*soapstone.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "messages": msgs})
}

func (h *SoapstoneHandler) appraise(c *gin.Context) {
	userID, _, ok := h.caller(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()
	msg, err := h.soap.Appraise(ctx, c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, soapstone.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "MESSAGE_NOT_FOUND"})
			return
		}
		logger.Errorf("appraisal failed (message=%s): %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": msg})
}
