package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the
// provided verifier. On success the claims map and the `sub` claim are stored in
// the request context for downstream handlers.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
			return
		}
		// Expect 'Bearer <token>'
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
			return
		}

		idToken, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
			return
		}

		var claims map[string]interface{}
		if err := idToken.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
			return
		}

		c.Set("claims", claims)
		if sub, ok := claims["sub"].(string); ok && sub != "" {
			c.Set("sub", sub)
		}
		c.Next()
	}
}

// RevocationChecker reports whether an access token was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthMiddlewareWithRevocation behaves like AuthMiddleware but rejects tokens
// the checker reports as revoked. A checker error fails open: revocation is a
// best-effort layer on top of token expiry.
func AuthMiddlewareWithRevocation(ver Verifier, revoked RevocationChecker) gin.HandlerFunc {
	verify := AuthMiddleware(ver)
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n == 1 && revoked != nil {
			if rev, err := revoked.IsRevoked(c.Request.Context(), token); err == nil && rev {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
				return
			}
		}
		verify(c)
	}
}

// Subject returns the authenticated OIDC subject for the request, if any.
func Subject(c *gin.Context) (string, bool) {
	v, ok := c.Get("sub")
	if !ok {
		return "", false
	}
	sub, ok := v.(string)
	return sub, ok && sub != ""
}
