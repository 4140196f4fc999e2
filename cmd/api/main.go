package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/domiciliarios-backend/api/routes"
	"github.com/angelmondragon/domiciliarios-backend/internal/auth"
	"github.com/angelmondragon/domiciliarios-backend/internal/ledger"
	"github.com/angelmondragon/domiciliarios-backend/internal/notifications"
	"github.com/angelmondragon/domiciliarios-backend/internal/services"
	"github.com/angelmondragon/domiciliarios-backend/internal/settlement"
	"github.com/angelmondragon/domiciliarios-backend/pkg/auth/session"
	"github.com/angelmondragon/domiciliarios-backend/pkg/config"
	"github.com/angelmondragon/domiciliarios-backend/pkg/db"
	"github.com/angelmondragon/domiciliarios-backend/pkg/instance"
	"github.com/angelmondragon/domiciliarios-backend/pkg/logger"
	"github.com/angelmondragon/domiciliarios-backend/pkg/metrics"
	"github.com/angelmondragon/domiciliarios-backend/pkg/migrate"
	"github.com/angelmondragon/domiciliarios-backend/pkg/redis"
	"github.com/angelmondragon/domiciliarios-backend/pkg/strapi"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.FeatureFlags.InMemorySessions {
		logg.Warn(ctx, "using in-memory session store")
		redisClient = redis.NewMemory()
	} else {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	dataAPI, err := strapi.NewClient(cfg.DataAPI.BaseURL,
		strapi.WithTimeout(cfg.DataAPI.Timeout),
		strapi.WithRateLimit(cfg.DataAPI.RateLimitRPS, cfg.DataAPI.RateLimitBurst),
		strapi.WithObserver(settlementMetrics),
	)
	if err != nil {
		logg.Error(ctx, "failed to create data api client", err)
		os.Exit(1)
	}

	dispatcher, err := notifications.NewDispatcher(notifications.Config{
		PreviewURL:      cfg.Notifications.PreviewWebhookURL,
		ConfirmationURL: cfg.Notifications.ConfirmationWebhookURL,
		Timeout:         cfg.Notifications.Timeout,
		Observer:        settlementMetrics,
		Logger:          logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	workflowStore, err := settlement.NewRedisStore(redisClient, cfg.Settlement.SessionTTL)
	if err != nil {
		logg.Error(ctx, "failed to create workflow store", err)
		os.Exit(1)
	}

	loc, err := cfg.Settlement.Location()
	if err != nil {
		logg.Error(ctx, "invalid settlement time zone", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Store: workflowStore,
		Repositories: func(tokens services.TokenSource) (services.Repository, error) {
			return services.NewRepository(services.RepositoryParams{
				API:               dataAPI,
				Tokens:            tokens,
				Resource:          cfg.DataAPI.ServicesResource,
				SettleConcurrency: cfg.DataAPI.SettleConcurrency,
			})
		},
		Notifier:        dispatcher,
		Ledger:          ledgerService,
		Metrics:         settlementMetrics,
		Logger:          logg,
		Location:        loc,
		DefaultPageSize: cfg.Settlement.DefaultPageSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to create settlement service", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		CMS:            dataAPI,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:                dbClient,
			Redis:             redisClient,
			Sessions:          sessionManager,
			AuthService:       authService,
			SettlementService: settlementService,
			LedgerService:     ledgerService,
			Metrics:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			Location:          loc,
		}),
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(context.Background(), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}
