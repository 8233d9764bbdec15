package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/alpenlodge/concierge/internal/api/router"
	"github.com/alpenlodge/concierge/internal/booking"
	"github.com/alpenlodge/concierge/internal/cache"
	"github.com/alpenlodge/concierge/internal/chat"
	appconfig "github.com/alpenlodge/concierge/internal/config"
	"github.com/alpenlodge/concierge/internal/dialogue"
	"github.com/alpenlodge/concierge/internal/http/handlers"
	httpmiddleware "github.com/alpenlodge/concierge/internal/http/middleware"
	"github.com/alpenlodge/concierge/internal/knowledge"
	"github.com/alpenlodge/concierge/internal/llm"
	"github.com/alpenlodge/concierge/internal/observability/metrics"
	"github.com/alpenlodge/concierge/internal/offer"
	"github.com/alpenlodge/concierge/internal/payments"
	"github.com/alpenlodge/concierge/internal/session"
	"github.com/alpenlodge/concierge/internal/smoobu"
	"github.com/alpenlodge/concierge/internal/transcript"
	"github.com/alpenlodge/concierge/internal/units"
	"github.com/alpenlodge/concierge/internal/weather"
	"github.com/alpenlodge/concierge/pkg/logging"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting concierge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	unitDir, err := units.NewDirectory(cfg.UnitRegistryPath)
	if err != nil {
		logger.Error("failed to load unit registry", "path", cfg.UnitRegistryPath, "error", err)
		os.Exit(1)
	}
	kb, err := knowledge.NewBase(cfg.KnowledgePath)
	if err != nil {
		logger.Error("failed to load knowledge base", "path", cfg.KnowledgePath, "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewConciergeMetrics(reg)

	sharedCache := cache.New()
	smoobuClient := smoobu.NewClient(cfg.SmoobuAPIKey, cfg.SmoobuBaseURL, cfg.SmoobuChannelID, cfg.SmoobuTimeout, sharedCache, logger)
	if !smoobuClient.Configured() {
		logger.Warn("SMOOBU_API_KEY not set, availability lookups will fail")
	}

	signer := offer.NewSigner(cfg.BookingTokenSecret, cfg.OfferTTL)
	if !signer.Enabled() {
		logger.Warn("BOOKING_TOKEN_SECRET not set, booking finalize is disabled")
	}

	var deposits *payments.Service
	if cfg.StripeSecretKey != "" {
		deposits = payments.New(cfg.StripeSecretKey, float64(cfg.DepositPercent), cfg.DepositMinCents, logger)
	}

	var transcripts *transcript.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, transcripts disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			transcripts = transcript.NewStore(rdb, logger)
		}
	}

	store := session.NewStore(cfg.SessionTTL)
	store.OnExpire(m.ObserveSessionExpired)
	engine := dialogue.NewEngine(store, unitDir, smoobuClient, signer, m, logger, cfg.BookingPageURL)
	finalizer := booking.NewFinalizer(smoobuClient, unitDir, signer, deposits, m, logger, cfg.PetFeePerNight)
	weatherClient := weather.NewClient("", cfg.WeatherLatitude, cfg.WeatherLongitude, sharedCache)
	llmClient := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, logger)

	chatHandler := chat.NewHandler(engine, store, kb, weatherClient, llmClient, transcripts, m, logger, cfg.BookingPageURL)

	r := router.New(&router.Config{
		Logger:      logger,
		ChatHandler: chatHandler,
		AvailabilityHandler: &handlers.AvailabilityHandler{
			Smoobu:  smoobuClient,
			Units:   unitDir,
			Signer:  signer,
			Metrics: m,
			Logger:  logger,
		},
		FinalizeHandler: &handlers.FinalizeHandler{Finalizer: finalizer, Metrics: m, Logger: logger},
		AdminSmoobu:     &handlers.AdminSmoobuHandler{Smoobu: smoobuClient, Logger: logger},
		Debug:           &handlers.DebugHandler{Version: version, Units: unitDir, Knowledge: kb},
		RateLimiter:     httpmiddleware.NewRateLimiter(cfg.RateLimitPerMinute, m),
		AdminToken:      cfg.AdminToken,
		AdminJWTSecret:  cfg.AdminJWTSecret,
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),

		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
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

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
