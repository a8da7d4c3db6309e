package handlers

import (
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hanabira/hanabira/backend/go-services/internal/gamertag"
)

// GamertagHandler hands out generated display names. Passing the same seed
// always yields the same tag, which the frontend uses for previews.
type GamertagHandler struct{}

func NewGamertagHandler() *GamertagHandler { return &GamertagHandler{} }

func (h *GamertagHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/gamertag", h.generate)
}

func (h *GamertagHandler) generate(c *gin.Context) {
	if raw := c.Query("seed"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_SEED"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "gamertag": gamertag.FromSeed(seed)})
		return
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	c.JSON(http.StatusOK, gin.H{"ok": true, "gamertag": gamertag.Generate(rng)})
}
