package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Economy   EconomyConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	URL     string
	Timeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type KeycloakConfig struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// EconomyConfig carries the anti-abuse policy for petal earns.
// A zero DailyCap means the source has no daily limit.
type EconomyConfig struct {
	StrictSpendReasons bool
	SourceCaps         map[string]SourceCap
}

type SourceCap struct {
	MaxPerAward int64
	DailyCap    int64
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("POSTGRES_TIMEOUT", 5)
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 10)
	viper.SetDefault("ECONOMY_STRICT_REASONS", false)
	viper.SetDefault("CAP_CLICKER_MAX", 50)
	viper.SetDefault("CAP_CLICKER_DAILY", 500)
	viper.SetDefault("CAP_PETAL_RUN_MAX", 200)
	viper.SetDefault("CAP_PETAL_RUN_DAILY", 1000)
	viper.SetDefault("CAP_PURCHASE_BONUS_MAX", 5000)
	viper.SetDefault("CAP_PURCHASE_BONUS_DAILY", 0)
	viper.SetDefault("CAP_SOAPSTONE_MAX", 10)
	viper.SetDefault("CAP_SOAPSTONE_DAILY", 200)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Postgres: PostgresConfig{
			URL:     viper.GetString("POSTGRES_URL"),
			Timeout: time.Duration(viper.GetInt("POSTGRES_TIMEOUT")) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Keycloak: KeycloakConfig{
			URL:          viper.GetString("KEYCLOAK_URL"),
			Realm:        viper.GetString("KEYCLOAK_REALM"),
			ClientID:     viper.GetString("KEYCLOAK_CLIENT_ID"),
			ClientSecret: viper.GetString("KEYCLOAK_CLIENT_SECRET"),
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(viper.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Economy: EconomyConfig{
			StrictSpendReasons: viper.GetBool("ECONOMY_STRICT_REASONS"),
			SourceCaps: map[string]SourceCap{
				"PETAL_CLICK": {
					MaxPerAward: viper.GetInt64("CAP_CLICKER_MAX"),
					DailyCap:    viper.GetInt64("CAP_CLICKER_DAILY"),
				},
				"mini-game:petal-run": {
					MaxPerAward: viper.GetInt64("CAP_PETAL_RUN_MAX"),
					DailyCap:    viper.GetInt64("CAP_PETAL_RUN_DAILY"),
				},
				"PURCHASE_BONUS": {
					MaxPerAward: viper.GetInt64("CAP_PURCHASE_BONUS_MAX"),
					DailyCap:    viper.GetInt64("CAP_PURCHASE_BONUS_DAILY"),
				},
				"SOAPSTONE_APPRAISAL": {
					MaxPerAward: viper.GetInt64("CAP_SOAPSTONE_MAX"),
					DailyCap:    viper.GetInt64("CAP_SOAPSTONE_DAILY"),
				},
			},
		},
	}

	// Basic validation
	if cfg.JWT.Secret == "" {
		log.Println("WARNING: JWT_SECRET is not set; set a secure value in production")
	}

	return cfg, nil
}
