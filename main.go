package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hanabira/hanabira/backend/go-services/handlers"
	"github.com/hanabira/hanabira/backend/go-services/internal/config"
	"github.com/hanabira/hanabira/backend/go-services/internal/database"
	"github.com/hanabira/hanabira/backend/go-services/internal/economy"
	"github.com/hanabira/hanabira/backend/go-services/internal/oidc"
	"github.com/hanabira/hanabira/backend/go-services/internal/sessions"
	"github.com/hanabira/hanabira/backend/go-services/internal/shop"
	"github.com/hanabira/hanabira/backend/go-services/internal/soapstone"
	"github.com/hanabira/hanabira/backend/go-services/internal/storage"
	"github.com/hanabira/hanabira/backend/go-services/internal/users"
	"github.com/hanabira/hanabira/backend/go-services/pkg/logger"
	"github.com/hanabira/hanabira/backend/go-services/pkg/metrics"
	"github.com/hanabira/hanabira/backend/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging first (LOG_LEVEL: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: keycloak=%v postgres=%v mongo=%v redis=%v",
		cfg.Keycloak.URL != "", cfg.Postgres.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()

	// Lightweight CORS for dev/test; production fronts this with a stricter policy.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})
	r.Use(gin.Logger(), gin.Recovery())

	ctx := context.Background()

	// Redis first so the rate limiter and daily counters can use it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err == nil {
			redisClient = rc
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
		}
	}
	blacklist := sessions.NewBlacklist(redisClient)

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Postgres holds balances and the ledger. Retry with backoff to tolerate
	// startup races; fall back to the in-memory store for local development.
	var pool *pgxpool.Pool
	var store economy.Store
	var userRepo users.UserRepository
	if cfg.Postgres.URL != "" {
		const maxAttempts = 5
		backoff := time.Second
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			pool, errConn = database.ConnectPostgres(ctx, cfg.Postgres.URL, cfg.Postgres.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to Postgres: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to Postgres after %d attempts: %v", maxAttempts, errConn)
		} else {
			defer pool.Close()
			if err := database.EnsureSchema(ctx, pool); err != nil {
				logger.Fatalf("schema init failed: %v", err)
			}
			store = economy.NewPostgresStore(pool)
			userRepo = users.NewPostgresUserRepository(pool)
		}
	}
	if store == nil {
		if cfg.Server.Environment == "development" {
			logger.Warnf("Postgres unavailable; using in-memory ledger store (development only)")
			mem := economy.NewMemoryStore()
			memUsers := users.NewMemoryUserRepository()
			memUsers.OnCreate = mem.AddUser
			store = mem
			userRepo = memUsers
		} else {
			logger.Fatalf("Postgres is required outside development (POSTGRES_URL)")
		}
	}
	userSvc := users.NewService(userRepo)

	// daily-cap fast path; the ledger sum inside the earn transaction stays authoritative
	var daily economy.DailyCounter
	if redisClient != nil {
		daily = economy.NewRedisDailyCounter(redisClient, "daily:")
	}
	economySvc := economy.NewService(store, cfg.Economy, daily)

	// sessions: prefer Redis, fall back to Mongo
	var sessionsSvc *sessions.Service
	if redisClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))
		logger.Infof("using Redis for session storage")
	}

	// Mongo carries the shop catalog, soapstone messages and the session
	// fallback. The service runs without it, minus those surfaces.
	var productRepo shop.ProductRepository
	var soapRepo soapstone.Repository
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			db := client.Database(cfg.MongoDB.Database)
			productRepo = shop.NewMongoProductRepository(db.Collection("products"))
			soapRepo = soapstone.NewMongoRepository(db.Collection("soapstones"))
			if sessionsSvc == nil {
				sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")))
			}
		}
	}
	if productRepo == nil && cfg.Server.Environment == "development" {
		productRepo = shop.NewMemoryProductRepository()
		soapRepo = soapstone.NewMemoryRepository()
	}

	// MinIO for product media (optional)
	var media *storage.MinIOStorage
	if mc := storage.LoadMinIOConfig(); mc.Endpoint != "" {
		media, err = storage.NewMinIOStorage(mc)
		if err != nil {
			logger.Warnf("MinIO unavailable: %v", err)
		}
	}

	// OIDC verifier; ALLOW_INSECURE_TOKEN=true enables the payload-only parser
	// for integration tests
	var verifier middleware.Verifier
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" && cfg.Keycloak.Realm != "" {
		issuer := strings.TrimRight(cfg.Keycloak.URL, "/") + "/realms/" + cfg.Keycloak.Realm
		ver, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil && strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warn("enabling insecure OIDC verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["ledger"] = store != nil
		if store == nil {
			ready = false
		}
		deps["sessions"] = sessionsSvc != nil
		if cfg.Keycloak.URL != "" {
			deps["oidc"] = verifier != nil
			if verifier == nil {
				ready = false
			}
		} else {
			deps["oidc"] = true
		}
		if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
			deps["redis"] = redisClient != nil
			if redisClient == nil {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	// auth surface
	if sessionsSvc != nil {
		handlers.NewAuthHandler(cfg, userSvc, sessionsSvc, blacklist).Register(r.Group("/"))
	} else {
		logger.Warnf("auth handlers not registered: no session store available")
	}
	handlers.RegisterSwagger(r)

	// authenticated API
	api := r.Group("/api/v1")
	if verifier != nil {
		api.Use(middleware.AuthMiddlewareWithRevocation(verifier, blacklist))
	} else {
		logger.Warnf("no OIDC verifier configured; /api/v1 will reject all requests")
		api.Use(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "UNAUTHENTICATED"})
		})
	}

	api.GET("/me", func(c *gin.Context) {
		claims, _ := c.Get("claims")
		if cm, ok := claims.(map[string]interface{}); ok {
			u, err := userSvc.UpsertFromClaims(c.Request.Context(), cm)
			if err == nil && u != nil {
				petals, _ := economySvc.Balance(c.Request.Context(), u.ID, economy.CurrencyPetals)
				runes, _ := economySvc.Balance(c.Request.Context(), u.ID, economy.CurrencyRunes)
				c.JSON(http.StatusOK, gin.H{"ok": true, "user": u, "petals": petals, "runes": runes})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "claims": claims})
	})

	handlers.NewEconomyHandler(economySvc, userSvc).Register(api)
	handlers.NewGamertagHandler().Register(api)
	if productRepo != nil {
		handlers.NewShopHandler(shop.NewService(productRepo, economySvc, media), userSvc).Register(api)
		handlers.NewSoapstoneHandler(soapstone.NewService(soapRepo, economySvc), userSvc).Register(api)
	} else {
		logger.Warnf("shop and soapstone handlers not registered: no MongoDB")
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("config summary: keycloak=%v postgres=%v mongo=%v redis=%v jwt_secret_set=%v",
		cfg.Keycloak.URL != "", pool != nil, productRepo != nil, redisClient != nil, cfg.JWT.Secret != "")
	logger.Infof("starting hanabira api on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
