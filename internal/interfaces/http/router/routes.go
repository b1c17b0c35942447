package router

import (
	"net/http"
	"time"

	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/infrastructure/config"
	"github.com/garmentflow/backend/internal/infrastructure/logger"
	"github.com/garmentflow/backend/internal/interfaces/http/handler"
	"github.com/garmentflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Orders   *handler.OrderHandler
	Accounts *handler.AccountHandler
	Outbox   *handler.OutboxHandler
	Webhook  *handler.CheckoutWebhookHandler
	System   *handler.SystemHandler
}

// EngineConfig carries the cross-cutting pieces the engine is built from
type EngineConfig struct {
	HTTP     config.HTTPConfig
	Logger   *zap.Logger
	Verifier middleware.IdentityVerifier
	Actors   middleware.ActorResolver
	Tracing  middleware.TracingConfig

	// HTTPMetrics records request metrics when set
	HTTPMetrics gin.HandlerFunc
	// MetricsPath and MetricsHandler expose the Prometheus scrape endpoint when both are set
	MetricsPath    string
	MetricsHandler http.Handler

	// WebhookLimiter throttles the unauthenticated provider callback
	WebhookLimiter *middleware.RateLimiter
}

// NewEngine builds the gin engine with the global middleware stack and every route.
//
// Global order: Recovery, RequestID, Tracing, SpanErrorMarker, access log, metrics,
// Secure, CORS, BodyLimit, Timeout. /api/v1 additionally runs Authenticate.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(logger.AccessLog(log))
	if cfg.HTTPMetrics != nil {
		engine.Use(cfg.HTTPMetrics)
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig(cfg.HTTP)))
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}
	if cfg.HTTP.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))
	}

	// Probes and scrapes sit outside API versioning and authentication
	if h.System != nil {
		engine.GET("/health", h.System.Health)
		engine.GET("/livez", h.System.Live)
	}
	if cfg.MetricsPath != "" && cfg.MetricsHandler != nil {
		engine.GET(cfg.MetricsPath, gin.WrapH(cfg.MetricsHandler))
	}

	// Provider callbacks are verified by signature, not by bearer token
	if h.Webhook != nil {
		webhooks := engine.Group("/webhooks")
		if cfg.WebhookLimiter != nil {
			webhooks.Use(middleware.RateLimit(cfg.WebhookLimiter))
		}
		webhooks.POST("/checkout", h.Webhook.Handle)
	}

	groups := apiGroups(cfg, h)
	for _, g := range groups {
		log.Debug("Routes registered", zap.String("group", g.Name()), zap.Strings("routes", g.Routes()))
	}
	MountAPI(engine, APIVersion, []gin.HandlerFunc{
		middleware.Authenticate(cfg.Verifier, log),
		middleware.TracingAttributeInjector(),
	}, groups...)

	return engine
}

func apiGroups(cfg EngineConfig, h Handlers) []*DomainGroup {
	var groups []*DomainGroup

	if h.Orders != nil {
		orders := NewDomainGroup("orders", "/orders")
		orders.POST("", h.Orders.Create)
		orders.POST("/checkout-sessions", h.Orders.CreateCheckoutSession)
		orders.POST("/finalize", h.Orders.Finalize)
		orders.GET("/mine", h.Orders.ListMine)
		orders.GET("/:id", h.Orders.Get)
		orders.PATCH("/:id/approve", h.Orders.Approve)
		orders.PATCH("/:id/reject", h.Orders.Reject)
		orders.PATCH("/:id/cancel", h.Orders.Cancel)
		orders.GET("/:id/tracking", h.Orders.GetTracking)
		orders.PATCH("/:id/tracking", h.Orders.UpdateTracking)
		orders.POST("/:id/tracking/photo-uploads", h.Orders.RequestPhotoUpload)
		groups = append(groups, orders)
	}

	if h.Accounts != nil {
		accounts := NewDomainGroup("accounts", "/accounts")
		accounts.POST("/register", h.Accounts.Register)
		accounts.GET("/me", h.Accounts.Me)
		accounts.GET("", h.Accounts.List)
		accounts.PATCH("/:id/status", h.Accounts.UpdateStatus)
		accounts.PATCH("/:id/role", h.Accounts.ChangeRole)
		groups = append(groups, accounts)
	}

	if h.Outbox != nil || h.System != nil {
		admin := NewDomainGroup("admin", "/admin")
		if cfg.Actors != nil {
			admin.Use(middleware.RequireCapability(cfg.Actors, identity.CapOperateSystem))
		}
		if h.System != nil {
			admin.GET("/system/info", h.System.GetSystemInfo)
		}
		if h.Outbox != nil {
			outbox := admin.Group("outbox", "/outbox")
			outbox.GET("/dead", h.Outbox.GetDeadLetterEntries)
			outbox.POST("/dead/retry-all", h.Outbox.RetryAllDeadEntries)
			outbox.GET("/stats", h.Outbox.GetStats)
			outbox.GET("/:id", h.Outbox.GetEntry)
			outbox.POST("/:id/retry", h.Outbox.RetryDeadEntry)
		}
		groups = append(groups, admin)
	}

	return groups
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.CORSAllowOrigins
	}
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	cors.MaxAge = 12 * time.Hour
	return cors
}
