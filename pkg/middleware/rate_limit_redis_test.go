package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimit_WindowExceeded(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	g := gin.New()
	// 1 rps over a 2s window with burst 1 => 3 allowed per window
	g.GET("/", RedisRateLimitMiddleware(client, 1, 1, 2*time.Second), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	var rejected int
	for i := 0; i < 5; i++ {
		rw := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.4.4.4:7777"
		g.ServeHTTP(rw, req)
		if rw.Code == http.StatusTooManyRequests {
			rejected++
		}
	}
	require.Equal(t, 2, rejected)
}

func TestRedisRateLimit_NilClientFallsBack(t *testing.T) {
	g := gin.New()
	g.GET("/", RedisRateLimitMiddleware(nil, 100, 100, time.Second), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rw := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.4.4.5:7777"
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
}
