package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hanabira/hanabira/backend/go-services/internal/config"
	"github.com/hanabira/hanabira/backend/go-services/internal/oidc"
	"github.com/hanabira/hanabira/backend/go-services/internal/sessions"
	"github.com/hanabira/hanabira/backend/go-services/internal/tokens"
	"github.com/hanabira/hanabira/backend/go-services/internal/users"
	"github.com/hanabira/hanabira/backend/go-services/pkg/logger"
)

const (
	refreshTTL = 7 * 24 * time.Hour
	accessTTL  = 15 * time.Minute
)

// LoginRequest covers both the password grant (dev/testing) and the
// authorization-code exchange used by the web frontend.
type LoginRequest struct {
	Mode        string `json:"mode" binding:"required"` // "password" | "auth_code"
	Username    string `json:"username"`
	Password    string `json:"password"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	blacklist   *sessions.Blacklist
}

func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, bl *sessions.Blacklist) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s, blacklist: bl}
}

func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_REQUEST"})
		return
	}
	if req.Mode != "password" && req.Mode != "auth_code" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_REQUEST"})
		return
	}
	host := h.cfg.Keycloak.URL
	realm := h.cfg.Keycloak.Realm
	if host == "" || realm == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}

	var tokenResp *tokenResponse
	var err error
	if req.Mode == "password" {
		tokenResp, err = requestPasswordToken(c.Request.Context(), host, realm, h.cfg.Keycloak.ClientID, h.cfg.Keycloak.ClientSecret, req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
			return
		}
	} else {
		if req.Code == "" || req.RedirectURI == "" {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_REQUEST"})
			return
		}
		tokenResp, err = requestAuthCodeToken(c.Request.Context(), host, realm, h.cfg.Keycloak.ClientID, h.cfg.Keycloak.ClientSecret, req.Code, req.RedirectURI)
		if err != nil {
			logger.Errorf("auth-code token exchange failed (redirect_uri=%q): %v", req.RedirectURI, err)
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
			return
		}
	}

	claims, err := verifyIDToken(c.Request.Context(), tokenResp.IDToken, h.cfg)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
		return
	}
	u, err := h.usersSvc.UpsertFromClaims(c.Request.Context(), claims)
	if err != nil {
		logger.Errorf("user upsert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
		return
	}
	rft, err := h.sessionsSvc.CreateSession(c.Request.Context(), u.Sub, refreshTTL)
	if err != nil {
		logger.Errorf("session create failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, accessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"accessToken":  access,
		"refreshToken": rft,
		"user":         u,
		"expiresIn":    int(accessTTL.Seconds()),
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_REQUEST"})
		return
	}
	sess, err := h.sessionsSvc.ValidateRefresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		logger.Errorf("refresh validation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
		return
	}
	u, err := h.usersSvc.GetBySub(c.Request.Context(), sess.Sub)
	if err != nil || u == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, accessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "accessToken": access, "expiresIn": int(accessTTL.Seconds())})
}

// Logout invalidates the refresh session and revokes the presented access
// token for its remaining lifetime.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_REQUEST"})
		return
	}
	if auth := c.GetHeader("Authorization"); auth != "" {
		var at string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &at); n == 1 {
			if exp, err := parseExpFromJWT(at); err == nil {
				if ttl := time.Until(exp); ttl > 0 {
					if err := h.blacklist.Revoke(c.Request.Context(), at, ttl); err != nil {
						logger.Warnf("access token revoke failed: %v", err)
					}
				}
			}
		}
	}
	if err := h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "SERVER_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// parseExpFromJWT decodes the payload only. Good enough for computing the
// remaining TTL of a token we are about to revoke.
func parseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		b, err = base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			return time.Time{}, err
		}
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(b, &claims); err != nil {
		return time.Time{}, err
	}
	v, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	return time.Unix(int64(v), 0), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

func requestPasswordToken(ctx context.Context, host, realm, clientID, clientSecret, username, password string) (*tokenResponse, error) {
	tokenURL := host + "/realms/" + realm + "/protocol/openid-connect/token"
	v := url.Values{}
	v.Set("grant_type", "password")
	v.Set("client_id", clientID)
	v.Set("client_secret", clientSecret)
	v.Set("username", username)
	v.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(v.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(b))
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

func requestAuthCodeToken(ctx context.Context, host, realm, clientID, clientSecret, code, redirectURI string) (*tokenResponse, error) {
	tokenURL := host + "/realms/" + realm + "/protocol/openid-connect/token"
	v := url.Values{}
	v.Set("grant_type", "authorization_code")
	v.Set("client_id", clientID)
	v.Set("client_secret", clientSecret)
	v.Set("code", code)
	v.Set("redirect_uri", redirectURI)
	body := v.Encode()

	// A freshly issued code can race its own exchange under Keycloak; one
	// quick retry covers that.
	for attempt := 1; attempt <= 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			if attempt == 2 {
				return nil, err
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if resp.StatusCode == http.StatusUnauthorized && clientSecret != "" {
			// Some Keycloak configs only accept Basic client auth.
			_ = resp.Body.Close()
			req2, err2 := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(body))
			if err2 != nil {
				return nil, err2
			}
			req2.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req2.SetBasicAuth(clientID, clientSecret)
			resp, err = http.DefaultClient.Do(req2)
			if err != nil {
				return nil, err
			}
		}
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(b), "Code not valid") && attempt == 1 {
				time.Sleep(150 * time.Millisecond)
				continue
			}
			return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(b))
		}
		var tr tokenResponse
		if err := json.Unmarshal(b, &tr); err != nil {
			return nil, err
		}
		return &tr, nil
	}
	return nil, fmt.Errorf("token exchange failed after retries")
}

func verifyIDToken(ctx context.Context, idToken string, cfg *config.Config) (map[string]interface{}, error) {
	issuer := strings.TrimRight(cfg.Keycloak.URL, "/") + "/realms/" + cfg.Keycloak.Realm
	ver, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
	if err != nil {
		if strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
			tkn, err := oidc.NewInsecureVerifier().Verify(ctx, idToken)
			if err != nil {
				return nil, err
			}
			var claims map[string]interface{}
			if err := tkn.Claims(&claims); err != nil {
				return nil, err
			}
			return claims, nil
		}
		return nil, err
	}
	idt, err := ver.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	var claims map[string]interface{}
	if err := idt.Claims(&claims); err != nil {
		return nil, err
	}
	return claims, nil
}
