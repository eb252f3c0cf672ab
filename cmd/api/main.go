package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/api/router"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/availability"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/bookings"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/calendar"
	appconfig "github.com/BGomes2022/doctor-k-therapy-sub001/internal/config"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/gdpr"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/medcrypt"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/notify"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/observability/metrics"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/patients"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/payments"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/pendingcache"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/waitlist"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting doctor-k-therapy API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data dir", "error", err, "dir", cfg.DataDir)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		logger.Error("failed to create cache dir", "error", err, "dir", cfg.CacheDir)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid practice timezone", "error", err, "timezone", cfg.Timezone)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewBookingMetrics(registry)

	// Remote calendar, with an in-memory fake when no credentials are set.
	var cal calendar.Client
	if cfg.GoogleCredentialsJSON != "" {
		gc, err := calendar.NewGoogleClient(context.Background(), cfg.GoogleCredentialsJSON, cfg.GoogleCalendarID, logger)
		if err != nil {
			logger.Error("failed to init google calendar client", "error", err)
			os.Exit(1)
		}
		cal = gc
	} else {
		logger.Warn("no google credentials configured, using in-memory calendar")
		cal = calendar.NewFake()
	}

	var emails notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emails = sg
	} else {
		logger.Warn("no sendgrid api key configured, emails are suppressed")
		emails = notify.NewStubEmailSender(logger)
	}

	enc, err := medcrypt.New(cfg.MedicalFormSecret)
	if err != nil {
		logger.Error("failed to init medical form encryption", "error", err)
		os.Exit(1)
	}

	tokenStore := patients.NewStore(filepath.Join(cfg.DataDir, "booking-tokens.csv"))
	tokenSvc := patients.NewService(tokenStore, enc, logger)

	bookingStore := bookings.NewStore(filepath.Join(cfg.DataDir, "bookings.csv"))
	pending := pendingcache.New(filepath.Join(cfg.CacheDir, "pending-bookings.json"), cfg.PendingCacheTTL, logger)
	bookingSvc := bookings.NewService(bookingStore, tokenSvc, cal, emails, pending, m, loc, logger)

	overrideStore := availability.NewOverrideStore(filepath.Join(cfg.DataDir, "availability.csv"))
	engine := availability.NewEngine(cal, overrideStore, bookingStore, pending, m, loc, cfg.HorizonWeeks, logger)

	waitlistStore := waitlist.NewStore(filepath.Join(cfg.DataDir, "waitlist.csv"))
	gdprSvc := gdpr.NewService(tokenSvc, bookingStore, waitlistStore, filepath.Join(cfg.DataDir, "gdpr-deletion-log.csv"), logger)

	var paymentsHandler *payments.Handler
	if cfg.PayPalClientID != "" && cfg.PayPalClientSecret != "" {
		client := payments.NewPayPalClient(cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalBaseURL, logger)
		paymentsHandler = payments.NewHandler(client, tokenSvc, emails, m, cfg.PublicBaseURL, logger)
	} else {
		logger.Warn("paypal credentials not configured, payment endpoints disabled")
	}

	r := router.New(&router.Config{
		Logger:              logger,
		PatientsHandler:     patients.NewHandler(tokenSvc, logger),
		BookingsHandler:     bookings.NewHandler(bookingSvc, logger),
		AvailabilityHandler: availability.NewHandler(engine, overrideStore, tokenSvc, logger),
		WaitlistHandler:     waitlist.NewHandler(waitlistStore, emails, m, logger),
		PaymentsHandler:     paymentsHandler,
		GDPRHandler:         gdpr.NewHandler(gdprSvc, logger),
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminJWTSecret:      cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
