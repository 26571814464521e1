package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aurelie-dev/salon-booking/cmd/mainconfig"
	"github.com/aurelie-dev/salon-booking/internal/api/router"
	"github.com/aurelie-dev/salon-booking/internal/app/bootstrap"
	"github.com/aurelie-dev/salon-booking/internal/appointments"
	"github.com/aurelie-dev/salon-booking/internal/availability"
	"github.com/aurelie-dev/salon-booking/internal/catalog"
	appconfig "github.com/aurelie-dev/salon-booking/internal/config"
	"github.com/aurelie-dev/salon-booking/internal/http/handlers"
	"github.com/aurelie-dev/salon-booking/internal/notify"
	"github.com/aurelie-dev/salon-booking/internal/observability/metrics"
	"github.com/aurelie-dev/salon-booking/internal/policy"
	"github.com/aurelie-dev/salon-booking/internal/reports"
	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

func main() {
	// Load configuration
	_ = godotenv.Load()
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting salon-booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Connect to Postgres
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Initialize repositories
	policies := policy.NewRepository(pool)
	if err := policies.EnsureDefault(ctx, bootstrap.DefaultPolicySettings(cfg)); err != nil {
		logger.Error("failed to seed schedule policy", "error", err)
		os.Exit(1)
	}
	hairstyles := catalog.NewRepository(pool)
	apptRepo := appointments.NewRepository(pool)
	statsRepo := reports.NewRepository(pool)

	// Metrics registry shared by the engine, the /metrics endpoint and the
	// admin stats snapshot.
	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	// Optional integrations
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	calendarClient, err := bootstrap.BuildCalendarClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build calendar client", "error", err)
		os.Exit(1)
	}

	var sesClient *sesv2.Client
	if cfg.SESFromEmail != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		sesClient = sesv2.NewFromConfig(awsCfg)
	}
	mailer := notify.NewBookingMailer(bootstrap.BuildEmailSender(cfg, sesClient, logger), logger).
		WithSalonCopy(cfg.SalonNotifyEmail)

	// Availability engine
	policyStore := availability.NewPolicyStore(policies, policies, logger)
	var calendarSource availability.CalendarSource
	if calendarClient != nil {
		calendarSource = calendarClient
	}
	aggregator := availability.NewAggregator(apptRepo, calendarSource, availability.AggregatorConfig{
		CalendarEnabled:      cfg.CalendarEnabled,
		CheckCalendar:        cfg.CheckCalendar,
		CalendarFetchTimeout: cfg.CalendarFetchTimeout,
	}, logger)
	slotCache := availability.NewSlotCache(redisClient, cfg.SlotCacheTTL, logger)
	engine := availability.NewEngine(policyStore, aggregator, slotCache, bookingMetrics, logger)

	// Booking service
	var calendarWriter appointments.CalendarWriter
	if calendarClient != nil {
		calendarWriter = calendarClient
	}
	var invalidator appointments.DayInvalidator
	if slotCache != nil {
		invalidator = slotCache
	}
	bookingService := appointments.NewService(apptRepo, hairstyles, engine, policies, calendarWriter, mailer, invalidator, bookingMetrics, appointments.ServiceConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		SalonName:     cfg.SalonName,
	}, logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(pool, redisClient, logger)
	servicesHandler := handlers.NewServicesHandler(hairstyles, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(engine, hairstyles, logger)
	appointmentsHandler := handlers.NewAppointmentsHandler(bookingService, apptRepo, logger)
	policyHandler := handlers.NewPolicyHandler(policies, invalidator, logger)
	statsHandler := handlers.NewStatsHandler(statsRepo, registry, logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger.With("component", "http"),
		Health:             healthHandler,
		Services:           servicesHandler,
		Availability:       availabilityHandler,
		Appointments:       appointmentsHandler,
		Policy:             policyHandler,
		Stats:              statsHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		PublicRateLimit:    cfg.PublicRateLimit,
		PublicRateBurst:    cfg.PublicRateBurst,
	}
	r := router.New(routerCfg)

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

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
