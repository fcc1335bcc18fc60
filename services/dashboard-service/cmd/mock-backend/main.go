package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/config"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/logger"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/metrics"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/middleware"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/mockbackend"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(os.Getenv("DBTEST_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics, err := metrics.NewHTTPMetrics(cfg.Metrics.Namespace, reg)
	if err != nil {
		zapLogger.Fatal("Failed to register metrics", zap.Error(err))
	}

	// Initialize store
	store := mockbackend.NewStore()
	store.Seed()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mockbackend.Simulate(ctx, store, cfg.Server.StepInterval)

	routerCfg := mockbackend.RouterConfig{
		TokenSecret: cfg.API.TokenSecret,
		Metrics:     httpMetrics,
		Gatherer:    reg,
	}

	// Rate limiting is optional
	if cfg.Redis.URL != "" {
		redisClient, err := setupRedis(cfg.Redis.URL, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		routerCfg.Limiter = middleware.NewRedisRateLimiter(redisClient, cfg.Redis.RequestsPerMinute)
		routerCfg.RateLimit = cfg.Redis.RequestsPerMinute
	}

	router := mockbackend.NewRouter(store, routerCfg, zapLogger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		zapLogger.Info("Starting mock backend",
			zap.String("port", cfg.Server.Port),
			zap.Bool("auth", cfg.API.TokenSecret != ""))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	cancel()

	// Create a deadline for server shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited properly")
}

// setupRedis connects to Redis at redisURL, a redis:// URL or a host:port
func setupRedis(redisURL string, logger *zap.Logger) (*redis.Client, error) {
	redisOptions, err := redis.ParseURL(redisURL)
	if err != nil {
		redisOptions = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(redisOptions)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("Connected to Redis", zap.String("addr", redisOptions.Addr))
	return client, nil
}
