package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinicops/cmd/mainconfig"
	"github.com/wolfman30/clinicops/internal/api/router"
	"github.com/wolfman30/clinicops/internal/app/bootstrap"
	"github.com/wolfman30/clinicops/internal/clock"
	appconfig "github.com/wolfman30/clinicops/internal/config"
	"github.com/wolfman30/clinicops/internal/confirmation"
	httpmiddleware "github.com/wolfman30/clinicops/internal/http/middleware"
	"github.com/wolfman30/clinicops/internal/observability/metrics"
	"github.com/wolfman30/clinicops/internal/schedule"
	"github.com/wolfman30/clinicops/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinicops API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for schedule profiles", "addr", cfg.RedisAddr)
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	metricsHandler, schedMetrics := setupMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	publisher := setupPublisher(ctx, cfg, logger)
	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go sweepRateLimiter(ctx, limiter, time.Minute)

	r := buildRouter(cfg, pool, redisClient, publisher, schedMetrics, metricsHandler, limiter, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) (http.Handler, *metrics.SchedulingMetrics) {
	m := metrics.NewSchedulingMetrics(reg)
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}), m
}

// setupPublisher returns the SQS fan-out publisher when a queue is
// configured, or a no-op publisher otherwise.
func setupPublisher(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) confirmation.Publisher {
	if cfg.ConfirmationQueueURL == "" {
		return confirmation.NopPublisher{}
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("failed to load AWS config; reminder fan-out disabled", "error", err)
		return confirmation.NopPublisher{}
	}
	return confirmation.NewSQSPublisher(mainconfig.NewQueueClient(awsCfg), cfg.ConfirmationQueueURL)
}

func buildRouter(
	cfg *appconfig.Config,
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	publisher confirmation.Publisher,
	m *metrics.SchedulingMetrics,
	metricsHandler http.Handler,
	limiter *httpmiddleware.RateLimiter,
	logger *logging.Logger,
) http.Handler {
	wall := clock.System()

	profiles := schedule.NewProfileStore(redisClient)
	busy := schedule.NewBusyStore(redisClient)
	scheduleSvc := schedule.NewService(profiles, schedule.NewAppointmentReader(pool), busy, wall, m, logger).
		WithDefaultLocale(cfg.DefaultLocale)

	confirmSvc := confirmation.NewService(confirmation.NewStore(pool), publisher, wall, m, logger)

	return router.New(&router.Config{
		Logger:         logger,
		Schedule:       schedule.NewHandler(scheduleSvc, profiles, busy, logger),
		Confirmations:  confirmation.NewHandler(confirmSvc, logger),
		MetricsHandler: metricsHandler,
		ReadinessChecks: map[string]router.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		AdminJWT:           httpmiddleware.JWTConfig{Secret: cfg.AdminJWTSecret},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})
}

func sweepRateLimiter(ctx context.Context, limiter *httpmiddleware.RateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			limiter.Sweep(now)
		}
	}
}
