package tokens

import (
	"testing"
	"time"

	"github.com/hanabira/hanabira/backend/go-services/internal/config"
	"github.com/hanabira/hanabira/backend/go-services/internal/models"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{JWT: config.JWTConfig{Secret: "test-secret"}}
}

func TestGenerateAndParse(t *testing.T) {
	cfg := testConfig()
	u := &models.User{Sub: "sub-1", Name: "Ren", Email: "ren@example.com"}

	raw, err := GenerateAccessToken(cfg, u, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := ParseAccessToken(cfg, raw)
	require.NoError(t, err)
	require.Equal(t, "sub-1", claims["sub"])
	require.Equal(t, "ren@example.com", claims["email"])
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testConfig()
	u := &models.User{Sub: "sub-1"}

	raw, err := GenerateAccessToken(cfg, u, time.Minute)
	require.NoError(t, err)

	other := &config.Config{JWT: config.JWTConfig{Secret: "different"}}
	_, err = ParseAccessToken(other, raw)
	require.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	cfg := testConfig()
	u := &models.User{Sub: "sub-1"}

	raw, err := GenerateAccessToken(cfg, u, -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, raw)
	require.Error(t, err)
}
