package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Priya8975/status-relay/internal/api"
	"github.com/Priya8975/status-relay/internal/commands"
	"github.com/Priya8975/status-relay/internal/config"
	"github.com/Priya8975/status-relay/internal/domain"
	"github.com/Priya8975/status-relay/internal/engine"
	"github.com/Priya8975/status-relay/internal/metrics"
	"github.com/Priya8975/status-relay/internal/observability"
	"github.com/Priya8975/status-relay/internal/statuspage"
	"github.com/Priya8975/status-relay/internal/store"
	"github.com/Priya8975/status-relay/internal/webhook"
	ws "github.com/Priya8975/status-relay/internal/websocket"
	"github.com/Priya8975/status-relay/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	sentryEnabled, err := observability.InitSentry(cfg.SentryDSN, api.Version, cfg.Environment)
	if err != nil {
		logger.Error("failed to initialize sentry", "error", err)
		os.Exit(1)
	}

	// Initialize PostgreSQL
	ctx := context.Background()
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Initialize Redis
	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(registry)

	// Delivery engine
	webhooks := webhook.NewClient(cfg.DiscordAPIURL, cfg.WebhookTimeout, cfg.WebhookRatePerSecond, logger)
	health := engine.NewHealthTracker(redisStore.Client(), logger)
	hub := ws.NewHub(logger)

	observers := []engine.OutcomeObserver{health, hub}
	var reporter *observability.Reporter
	if sentryEnabled {
		reporter = observability.NewReporter(nil)
		observers = append(observers, reporter)
		logger.Info("sentry error reporting enabled")
	}

	deps := engine.Deps{
		Store:       pgStore,
		Endpoints:   webhooks,
		Logger:      logger,
		Metrics:     recorder,
		Observers:   observers,
		Reports:     redisStore,
		Health:      health,
		Concurrency: cfg.DeliveryConcurrency,
	}
	reconciler := engine.NewReconciler(deps)
	sweeper := engine.NewSweeper(deps)

	// Incident feed
	statusClient := statuspage.NewClient(cfg.StatusPageURL, cfg.WebhookTimeout)
	poller := statuspage.NewPoller(statusClient, statuspage.NewRedisSnapshotStore(redisStore.Client()), cfg.PollInterval, logger, recorder)
	events := make(chan domain.IncidentUpdateEvent, 64)
	dispatcher := worker.NewDispatcher(events, reconciler, logger)
	scheduler := worker.NewSweepScheduler(sweeper, cfg.SweepInterval, cfg.SweepOnStart, logger)
	if reporter != nil {
		dispatcher.SetErrorReporter(reporter)
		scheduler.SetErrorReporter(reporter)
	}

	// Slash commands
	installURL := ""
	if cfg.OAuthEnabled() {
		installURL = api.InstallURL(cfg.DiscordRedirectURL)
	}
	cmdRegistry := commands.NewRegistry(logger, recorder,
		commands.NewCooldown(redisStore.Client(), cfg.CommandCooldown, 1, logger),
		commands.Ping{},
		commands.About{Store: pgStore},
		commands.Invite{InstallURL: installURL},
		commands.Support{URL: cfg.SupportServerURL},
		commands.Status{Source: statusClient},
		commands.Config{Store: pgStore, Endpoints: webhooks, Logger: logger},
		commands.Purge{Sweeper: sweeper, Operators: cfg.OperatorIDs},
	)

	// Setup router
	routerDeps := api.RouterDeps{
		Logger:     logger,
		Store:      pgStore,
		Health:     health,
		Sweeper:    sweeper,
		Reports:    redisStore,
		Hub:        hub,
		Metrics:    metrics.Handler(registry),
		AdminToken: cfg.AdminToken,
	}
	if reporter != nil {
		routerDeps.Middleware = append(routerDeps.Middleware, reporter.Recoverer)
	}
	if cfg.InteractionsEnabled() {
		routerDeps.Interactions, err = api.NewInteractionHandler(cfg.DiscordPublicKey, cmdRegistry, logger)
		if err != nil {
			logger.Error("invalid DISCORD_PUBLIC_KEY", "error", err)
			os.Exit(1)
		}
		logger.Info("interactions endpoint enabled", "commands", cmdRegistry.Names())
	}
	if cfg.OAuthEnabled() {
		routerDeps.OAuth = api.NewOAuthHandler(api.OAuthSettings{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
			APIBaseURL:   cfg.DiscordAPIURL,
		}, pgStore, webhooks, redisStore.Client(), logger)
		logger.Info("oauth install enabled", "install_url", installURL)
	}
	router := api.NewRouter(routerDeps)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, run := range []func(context.Context){
		hub.Run,
		func(ctx context.Context) { poller.Run(ctx, events) },
		dispatcher.Start,
		scheduler.Start,
	} {
		run := run
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(workerCtx)
		}()
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var result *multierror.Error
	if err := server.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}

	// An in-flight fan-out settles before the stores are closed.
	stopWorkers()
	workersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(workersDone)
	}()
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		result = multierror.Append(result, shutdownCtx.Err())
	}

	if err := redisStore.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	pgStore.Close()
	observability.Flush(2 * time.Second)

	if err := result.ErrorOrNil(); err != nil {
		logger.Error("unclean shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
