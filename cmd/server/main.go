package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	eventapp "github.com/garmentflow/backend/internal/application/event"
	orderapp "github.com/garmentflow/backend/internal/application/fulfillment"
	identityapp "github.com/garmentflow/backend/internal/application/identity"
	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/auth"
	"github.com/garmentflow/backend/internal/infrastructure/cache"
	"github.com/garmentflow/backend/internal/infrastructure/checkout"
	"github.com/garmentflow/backend/internal/infrastructure/config"
	"github.com/garmentflow/backend/internal/infrastructure/event"
	"github.com/garmentflow/backend/internal/infrastructure/logger"
	"github.com/garmentflow/backend/internal/infrastructure/migration"
	"github.com/garmentflow/backend/internal/infrastructure/persistence"
	"github.com/garmentflow/backend/internal/infrastructure/storage"
	"github.com/garmentflow/backend/internal/infrastructure/telemetry"
	"github.com/garmentflow/backend/internal/interfaces/http/handler"
	"github.com/garmentflow/backend/internal/interfaces/http/middleware"
	"github.com/garmentflow/backend/internal/interfaces/http/router"
	"github.com/garmentflow/backend/migrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	bootLog := logger.New(logCfg)

	collector := telemetry.Collector{
		Endpoint:       cfg.Telemetry.CollectorEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	}

	// OTLP log export tees every zap entry to the collector
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:   cfg.Telemetry.LogsEnabled,
		Collector: collector,
	}, bootLog)
	if err != nil {
		return fmt.Errorf("init log exporter: %w", err)
	}
	log := logger.New(logCfg, logProvider.Core(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	defer func() { _ = log.Sync() }()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting order fulfillment core",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:       cfg.Telemetry.Enabled,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
		Collector:     collector,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL && !cfg.App.IsProduction(),
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log).Register(db.DB); err != nil {
		return fmt.Errorf("register db tracing: %w", err)
	}

	if cfg.Database.AutoMigrate {
		m, err := migration.NewFromFS(db.SQL, migrations.FS, log)
		if err != nil {
			return err
		}
		err = m.Up()
		_ = m.Close()
		if err != nil {
			return err
		}
	}

	// Metrics
	registry := telemetry.NewRegistry()
	var (
		httpMetrics     gin.HandlerFunc
		businessMetrics *telemetry.BusinessMetrics
	)
	if cfg.Metrics.Enabled {
		if err := telemetry.RegisterDBStats(registry, db.SQL, cfg.Database.DBName); err != nil {
			return fmt.Errorf("register db stats: %w", err)
		}
		hm, err := telemetry.NewHTTPMetrics(registry, cfg.Metrics.Namespace)
		if err != nil {
			return fmt.Errorf("register http metrics: %w", err)
		}
		httpMetrics = hm.GinMiddleware()
		businessMetrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Registerer: registry,
			Namespace:  cfg.Metrics.Namespace,
			Logger:     log,
		})
		if err != nil {
			return fmt.Errorf("register business metrics: %w", err)
		}
	}

	// Repositories share one outbox publisher so events commit with their aggregate
	serializer := event.NewRegisteredSerializer()
	outboxPublisher := event.NewOutboxPublisher(serializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	orderRepo := persistence.NewGormOrderRepository(db.DB)
	orderRepo.SetOutboxEventSaver(outboxPublisher)
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	accountRepo.SetOutboxEventSaver(outboxPublisher)
	draftRepo := persistence.NewGormCheckoutDraftRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)

	// Relay target
	var relayTarget shared.EventPublisher
	if len(cfg.Events.KafkaBrokers) > 0 {
		kp, err := event.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic, serializer, log)
		if err != nil {
			return fmt.Errorf("init kafka publisher: %w", err)
		}
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("Error closing kafka writer", zap.Error(err))
			}
		}()
		relayTarget = kp
	} else {
		log.Info("No Kafka brokers configured, relaying events to the log")
		relayTarget = event.NewLogPublisher(log)
	}

	// Photo uploads
	var (
		photoSigner orderapp.PhotoUploadSigner
		photoPinger handler.Pinger
	)
	if cfg.Storage.Enabled {
		store, err := storage.NewPhotoStore(&cfg.Storage)
		if err != nil {
			return fmt.Errorf("init photo store: %w", err)
		}
		photoSigner, photoPinger = store, store
	} else {
		log.Warn("Object storage disabled, photo upload URLs are not usable")
		photoSigner = storage.NewStubPhotoStore()
	}

	// Checkout provider
	stripeCfg := &checkout.StripeConfig{
		SecretKey:     cfg.Checkout.SecretKey,
		WebhookSecret: cfg.Checkout.WebhookSecret,
		IsTestMode:    cfg.Checkout.TestMode,
		Currency:      cfg.Checkout.Currency,
		SuccessURL:    cfg.Checkout.SuccessURL,
		CancelURL:     cfg.Checkout.CancelURL,
		Timeout:       cfg.Checkout.Timeout,
	}
	var gateway fulfillment.CheckoutGateway
	switch cfg.Checkout.Provider {
	case config.CheckoutProviderStripe:
		gw, err := checkout.NewStripeGateway(stripeCfg, log)
		if err != nil {
			return fmt.Errorf("init stripe gateway: %w", err)
		}
		gateway = gw
	default:
		log.Warn("Using the in-process fake checkout provider")
		gateway = checkout.NewFakeGateway(cfg.Checkout.SuccessURL)
	}

	dedupStore, err := cache.NewDedupStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = dedupStore.Close() }()

	// Services
	accessGate := identityapp.NewAccessGate(accountRepo, log)
	accountService := identityapp.NewAccountService(accountRepo, accessGate, log)
	orderService := orderapp.NewOrderService(orderapp.OrderServiceConfig{
		Orders:   orderRepo,
		Drafts:   draftRepo,
		Products: productRepo,
		Gateway:  gateway,
		Actors:   accessGate,
		Uploads:  photoSigner,
		Policy: orderapp.Policy{
			RestoreStockOnReject: cfg.Orders.RestoreStockOnReject,
			PhotoUploadTTL:       cfg.Orders.PhotoUploadTTL,
		},
		Logger: log,
	})
	if businessMetrics != nil {
		orderService.SetBusinessMetrics(businessMetrics)
	}
	webhookService := orderapp.NewCheckoutWebhookService(orderapp.CheckoutWebhookServiceConfig{
		Config:      stripeCfg,
		Finalizer:   orderService,
		Idempotency: dedupStore,
		Logger:      log,
	})
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	if cfg.Bootstrap.AdminUID != "" {
		admin := identity.Identity{UID: cfg.Bootstrap.AdminUID, Email: cfg.Bootstrap.AdminEmail}
		if err := accountService.EnsureAdmin(ctx, admin, cfg.Bootstrap.AdminName); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	verifier, err := auth.NewTokenVerifier(cfg.Auth)
	if err != nil {
		return fmt.Errorf("init token verifier: %w", err)
	}

	// HTTP
	checks := map[string]handler.Pinger{"database": handler.PingFunc(db.Ping)}
	if photoPinger != nil {
		checks["storage"] = photoPinger
	}
	webhookLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
	defer webhookLimiter.Stop()

	engineCfg := router.EngineConfig{
		HTTP:     cfg.HTTP,
		Logger:   log,
		Verifier: verifier,
		Actors:   accessGate,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		HTTPMetrics:    httpMetrics,
		WebhookLimiter: webhookLimiter,
	}
	if cfg.Metrics.Enabled {
		engineCfg.MetricsPath = cfg.Metrics.Path
		engineCfg.MetricsHandler = telemetry.Handler(registry)
	}
	engine := router.NewEngine(engineCfg, router.Handlers{
		Orders:   handler.NewOrderHandler(orderService),
		Accounts: handler.NewAccountHandler(accountService),
		Outbox:   handler.NewOutboxHandler(outboxService),
		Webhook:  handler.NewCheckoutWebhookHandler(webhookService),
		System:   handler.NewSystemHandler(cfg.App.Name, version, checks),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	var processor *event.OutboxProcessor
	if cfg.Events.RelayEnabled {
		processor = event.NewOutboxProcessor(outboxRepo, relayTarget, serializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Events.BatchSize,
			PollInterval:     cfg.Events.PollInterval,
			MaxRetries:       cfg.Events.MaxRetries,
			CleanupEnabled:   cfg.Events.CleanupEnabled,
			CleanupRetention: cfg.Events.CleanupRetention,
		}, log)
		if businessMetrics != nil {
			processor.SetMetrics(businessMetrics)
		}
		if err := processor.Start(gctx); err != nil {
			return fmt.Errorf("start outbox relay: %w", err)
		}
	}

	g.Go(func() error {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if processor != nil {
			if perr := processor.Stop(shutdownCtx); perr != nil {
				log.Warn("Outbox relay did not stop cleanly", zap.Error(perr))
			}
		}
		if terr := tracerProvider.Shutdown(shutdownCtx); terr != nil {
			log.Warn("Tracer shutdown failed", zap.Error(terr))
		}
		if lerr := logProvider.Shutdown(shutdownCtx); lerr != nil {
			log.Warn("Log exporter shutdown failed", zap.Error(lerr))
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return err
	}
	log.Info("Server exited gracefully", zap.Duration("shutdown_timeout", cfg.HTTP.ShutdownTimeout))
	return nil
}
