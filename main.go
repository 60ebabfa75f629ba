package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/syncify/syncify/backend/go-services/handlers"
	"github.com/syncify/syncify/backend/go-services/internal/config"
	"github.com/syncify/syncify/backend/go-services/internal/credentials"
	"github.com/syncify/syncify/backend/go-services/internal/database"
	"github.com/syncify/syncify/backend/go-services/internal/rooms"
	"github.com/syncify/syncify/backend/go-services/internal/spotify"
	"github.com/syncify/syncify/backend/go-services/internal/ws"
	"github.com/syncify/syncify/backend/go-services/pkg/logger"
	"github.com/syncify/syncify/backend/go-services/pkg/metrics"
	"github.com/syncify/syncify/backend/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: spotify=%v mongo=%v redis=%v", cfg.Spotify.ClientID != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple — production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.Frontend.Origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Global middlewares: logging + recovery + session resolution
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.SessionMiddleware(cfg.Session.CookieName))

	// Connect to Redis early so the rate-limiter and the credential store can use it
	var importedRedis *redis.Client
	if cfg.Redis.Host != "" {
		importedRedis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := importedRedis.Ping(context.Background()).Err(); err == nil {
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			importedRedis = nil
		}
	}

	// Optional global rate limiter (per-session when resolved, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && importedRedis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(importedRedis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Credential storage: prefer MongoDB (durable across restarts), fall back
	// to Redis when only Redis is configured.
	ctx := context.Background()
	var credRepo credentials.Repository
	if cfg.MongoDB.URI != "" {
		// Retry/backoff when connecting to MongoDB to tolerate startup races
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
			col := client.Database(cfg.MongoDB.Database).Collection("credentials")
			credRepo = credentials.NewMongoRepository(col)
			logger.Infof("Using MongoDB for credential storage")
		}
	}
	if credRepo == nil && importedRedis != nil {
		credRepo = credentials.NewRedisRepository(importedRedis, "credential:")
		logger.Infof("Using Redis for credential storage")
	}

	// Spotify remote clients + refresher
	accounts := spotify.NewAccountsClient(cfg.Spotify.AccountsURL, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
	player := spotify.NewPlayerClient(cfg.Spotify.APIURL)
	var refresher *credentials.Refresher
	if credRepo != nil {
		refresher = credentials.NewRefresher(credRepo, accounts)
	}

	// Room registry + realtime endpoint
	registry := rooms.NewRegistry()
	r.GET("/ws", func(c *gin.Context) {
		ws.ServeWS(c.Writer, c.Request, registry)
	})

	// Register HTTP handlers if the credential store is available
	if credRepo != nil {
		ah := handlers.NewAuthHandler(cfg, accounts, credRepo)
		ah.Register(r.Group("/"))
		ph := handlers.NewPlayerHandler(refresher, player, registry)
		ph.Register(r.Group("/"))
	} else {
		logger.Warnf("spotify handlers not registered because no credential store is available")
	}

	// Basic health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint — return 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		// storage readiness: service is ready when a credential store is configured
		deps["storage"] = credRepo != nil
		if credRepo == nil {
			ready = false
		}

		// Redis readiness when used for rate-limiter
		if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
			deps["redis"] = importedRedis != nil
			if !deps["redis"] {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": fmt.Sprintf("%s", time.Since(startTime))})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": fmt.Sprintf("%s", time.Since(startTime))})
	})

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Config summary: spotify=%v mongo=%v redis=%v session_secret_set=%v", cfg.Spotify.ClientID != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Session.Secret != "")
	logger.Infof("Starting Syncify backend on %s", addr)
	// run server in goroutine and keep process alive — prevents the
	// container from exiting silently if r.Run ever returns.
	go func() {
		if err := r.Run(addr); err != nil {
			logger.Fatalf("server failed: %v", err)
		}
	}()
	select {}
}
