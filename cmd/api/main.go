package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinicbook/cmd/mainconfig"
	"github.com/wolfman30/clinicbook/internal/api/router"
	"github.com/wolfman30/clinicbook/internal/backend"
	appconfig "github.com/wolfman30/clinicbook/internal/config"
	"github.com/wolfman30/clinicbook/internal/formstore"
	"github.com/wolfman30/clinicbook/internal/http/handlers"
	"github.com/wolfman30/clinicbook/internal/observability/metrics"
	"github.com/wolfman30/clinicbook/internal/payments"
	"github.com/wolfman30/clinicbook/internal/recall"
	"github.com/wolfman30/clinicbook/internal/reports"
	"github.com/wolfman30/clinicbook/internal/session"
	"github.com/wolfman30/clinicbook/internal/slots"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting clinicbook API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"form_store", cfg.FormStore,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsHandler, bookingMetrics := setupMetrics()

	storage, closeStorage, err := setupFormStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize form store", "error", err)
		os.Exit(1)
	}
	defer closeStorage()

	client := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, logger).WithMetrics(bookingMetrics)
	uploader := setupReportUploader(ctx, cfg, client, logger)

	sessions := session.NewManager(session.Config{
		Storage:  storage,
		API:      client,
		Loader:   payments.NewLoader(cfg.PaymentScriptURL, nil),
		Calendar: slots.NewCalendar(time.Now, time.Local),
		Recall: recall.Options{
			GraceDelay:          cfg.RecallGraceDelay,
			DefaultDuration:     cfg.DefaultPlanDuration,
			PriceOverrideSlug:   cfg.PriceOverridePlanSlug,
			PriceOverrideAmount: cfg.PriceOverrideAmount,
		},
		Payment: payments.Options{
			KeyID:        cfg.PaymentKeyID,
			KeySecret:    cfg.PaymentKeySecret,
			ClinicName:   cfg.ClinicName,
			ThemeColor:   cfg.PaymentThemeColor,
			SuccessDelay: cfg.SuccessRedirectDelay,
		},
		IdleTTL: cfg.SessionIdleTTL,
		Logger:  logger,
		Metrics: bookingMetrics,
	})
	go sessions.Run(ctx)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		Booking:            handlers.NewBookingHandler(sessions, uploader, logger),
		MetricsHandler:     metricsHandler,
		ProfileJWTSecret:   cfg.ProfileJWTSecret,
		ProfileCookieName:  cfg.ProfileCookieName,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	// Create HTTP server. The write timeout covers one backend round trip.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

// setupFormStorage picks the durable form backend named by FORM_STORE.
func setupFormStorage(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (formstore.Backend, func(), error) {
	switch cfg.FormStore {
	case "", "memory":
		logger.Warn("using in-memory form store; forms are lost on restart")
		return formstore.NewMemoryBackend(), func() {}, nil
	case "redis":
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return formstore.NewRedisBackend(client), func() { _ = client.Close() }, nil
	case "postgres":
		pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
		if pool == nil {
			return nil, nil, errors.New("postgres form store requires a reachable DATABASE_URL")
		}
		return formstore.NewPostgresBackend(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown FORM_STORE %q (want memory, redis or postgres)", cfg.FormStore)
	}
}

func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if url == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// setupReportUploader stores reports in S3 when a bucket is configured and
// falls back to the clinic backend's upload endpoint otherwise.
func setupReportUploader(ctx context.Context, cfg *appconfig.Config, client *backend.Client, logger *logging.Logger) reports.Uploader {
	if cfg.ReportsBucket == "" {
		return reports.NewBackendUploader(client)
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config, reports go to the clinic backend", "error", err)
		return reports.NewBackendUploader(client)
	}
	logger.Info("report uploads stored in s3", "bucket", cfg.ReportsBucket)
	return reports.NewS3Uploader(mainconfig.NewS3Client(awsCfg, cfg), cfg.ReportsBucket, logger)
}
