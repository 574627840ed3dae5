package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/clinicops/cmd/mainconfig"
	"github.com/wolfman30/clinicops/internal/app/bootstrap"
	"github.com/wolfman30/clinicops/internal/clock"
	"github.com/wolfman30/clinicops/internal/config"
	"github.com/wolfman30/clinicops/internal/confirmation"
	"github.com/wolfman30/clinicops/internal/observability/metrics"
	"github.com/wolfman30/clinicops/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("confirmation worker requires DATABASE_URL", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var awsCfg *aws.Config
	if cfg.EmailProvider == "ses" {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}
	channel, provider := bootstrap.BuildReminderChannel(cfg, awsCfg, logger)

	worker := confirmation.NewWorker(
		confirmation.NewStore(pool),
		confirmation.NewPostgresDirectory(pool),
		channel,
		clock.System(),
		workerConfig(cfg),
		metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer),
		logger,
	)

	metricsSrv := newMetricsServer(cfg.WorkerMetricsAddr, prometheus.DefaultGatherer)
	go func() {
		logger.Info("worker metrics listening", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker metrics server error", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()
	logger.Info("confirmation worker started", "email_provider", provider, "interval", cfg.WorkerInterval)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("confirmation worker shutting down")
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker metrics server forced to shutdown", "error", err)
	}
}

// newMetricsServer exposes the worker's Prometheus registry and a liveness
// check, since the worker serves no other HTTP.
func newMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func workerConfig(cfg *config.Config) confirmation.WorkerConfig {
	return confirmation.WorkerConfig{
		Interval:    cfg.WorkerInterval,
		BatchSize:   cfg.WorkerBatchSize,
		MaxAttempts: cfg.WorkerMaxAttempts,
		Backoff:     cfg.WorkerBackoff,
		Lease:       cfg.WorkerLease,
	}
}
