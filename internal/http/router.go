// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, compression, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/watchdex/go-watch-backend/internal/config"
	"github.com/watchdex/go-watch-backend/internal/domain"
	"github.com/watchdex/go-watch-backend/internal/http/handlers"
	"github.com/watchdex/go-watch-backend/internal/http/middleware"
	"github.com/watchdex/go-watch-backend/internal/repo"
	"github.com/watchdex/go-watch-backend/internal/services"
	"github.com/watchdex/go-watch-backend/internal/storage"
)

// watchRepoShim adapts the repository free functions to the services.WatchRepo
// interface expected by the WatchService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type watchRepoShim struct{}

// CreateWatch proxies repo.CreateWatch.
func (watchRepoShim) CreateWatch(ctx context.Context, db *gorm.DB, w *domain.Watch) error {
	return repo.CreateWatch(ctx, db, w)
}

// ListWatches proxies repo.ListWatches.
func (watchRepoShim) ListWatches(ctx context.Context, db *gorm.DB, userID string) ([]domain.Watch, error) {
	return repo.ListWatches(ctx, db, userID)
}

// GetWatch proxies repo.GetWatch.
func (watchRepoShim) GetWatch(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Watch, error) {
	return repo.GetWatch(ctx, db, id, userID)
}

// ReplaceWatch proxies repo.ReplaceWatch.
func (watchRepoShim) ReplaceWatch(ctx context.Context, db *gorm.DB, w *domain.Watch) error {
	return repo.ReplaceWatch(ctx, db, w)
}

// DeleteWatch proxies repo.DeleteWatch.
func (watchRepoShim) DeleteWatch(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteWatch(ctx, db, id, userID)
}

// CountWatches proxies repo.CountWatches (quota gate support).
func (watchRepoShim) CountWatches(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountWatches(ctx, db, userID)
}

// userRepoShim adapts the repository free functions to services.UserRepo.
type userRepoShim struct{}

func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return repo.CreateUser(ctx, db, u)
}

func (userRepoShim) GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

func (userRepoShim) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}

func (userRepoShim) UpdateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return repo.UpdateUser(ctx, db, u)
}

func (userRepoShim) DeleteUser(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteUser(ctx, db, id)
}

func (userRepoShim) DeleteWatchesForUser(ctx context.Context, db *gorm.DB, userID string) error {
	return repo.DeleteWatchesForUser(ctx, db, userID)
}

func (userRepoShim) DeleteEntitlementsForUser(ctx context.Context, db *gorm.DB, userID string) error {
	return repo.DeleteEntitlementsForUser(ctx, db, userID)
}

// entitlementRepoShim adapts the repository free functions to
// services.EntitlementRepo.
type entitlementRepoShim struct{}

func (entitlementRepoShim) GetEntitlement(ctx context.Context, db *gorm.DB, userID, product string) (*domain.Entitlement, error) {
	return repo.GetEntitlement(ctx, db, userID, product)
}

func (entitlementRepoShim) SetEntitlement(ctx context.Context, db *gorm.DB, userID, product string, active bool) (*domain.Entitlement, error) {
	return repo.SetEntitlement(ctx, db, userID, product, active)
}

// catalogFeed supplies triage candidates from the persisted catalog in feed
// order. Implements handlers.CardFeed.
type catalogFeed struct {
	db *gorm.DB
}

// Cards returns the full catalog as candidate cards.
func (f catalogFeed) Cards(ctx context.Context) ([]domain.Card, error) {
	rows, err := repo.ListCatalog(ctx, f.db)
	if err != nil {
		return nil, err
	}
	cards := make([]domain.Card, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, domain.CardFromCatalog(row))
	}
	return cards, nil
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, static image serving,
// and then mounts the versioned public API under /api/v*.
//
// It returns the triage service so the caller can drain in-flight accept
// writes on shutdown.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter (upload cap; largest payload the API accepts)
//  6. Gzip compression
//  7. Metrics
//  8. Bearer-token resolution (before the rate limiter so buckets key by user)
//  9. Rate limiter (per user/IP)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, images *storage.ImageStore, cfg config.Config) *services.TriageService {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (bounded by the upload cap)
	r.Use(limitBody(cfg.Upload.MaxBytes))

	// 6) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Dependency injection: services ← repo/db/storage
	authSvc := services.NewAuthService(db, userRepoShim{}, cfg.Auth.JWTSecret)
	authSvc.TokenTTL = cfg.Auth.TokenTTL
	authSvc.BcryptCost = cfg.Auth.BcryptCost

	entSvc := services.NewEntitlementService(db, entitlementRepoShim{})
	watchSvc := services.NewWatchService(db, watchRepoShim{}, entSvc, services.QuotaPolicy{
		FreeQuota:      cfg.Quota.FreeQuota,
		EnforceOnSwipe: cfg.Quota.EnforceOnSwipe,
	})
	triageSvc := services.NewTriageService(watchSvc)

	h := handlers.New(authSvc, watchSvc, triageSvc, entSvc, catalogFeed{db: db}, images)

	// 8) Resolve the bearer token before rate limiting so authenticated
	// clients get per-user buckets instead of sharing an IP bucket.
	r.Use(middleware.BearerAuth(authSvc))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (flag-gated)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Stored images
	if images != nil {
		r.Static(cfg.Upload.PublicURL, images.BasePath())
	}

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Auth
		api.POST("/auth/signup", h.SignUp)
		api.POST("/auth/signin", h.SignIn)
		api.POST("/auth/anonymous", h.SignInAnonymous)
		api.POST("/auth/signout", h.SignOut)
		api.DELETE("/auth/account", h.DeleteAccount)
		api.POST("/auth/email-change", h.RequestEmailChange)
		api.POST("/auth/email-change/confirm", h.ConfirmEmailChange)
		api.POST("/auth/password-reset", h.RequestPasswordReset)
		api.POST("/auth/password-reset/confirm", h.ConfirmPasswordReset)

		// Watches
		api.POST("/watches", h.CreateWatch)
		api.GET("/watches", h.ListWatches)
		api.GET("/watches/summary", h.WatchSummary)
		api.PUT("/watches/:id", h.ReplaceWatch)
		api.DELETE("/watches/:id", h.DeleteWatch)

		// Uploads
		api.POST("/uploads", h.UploadImage)

		// Triage
		api.GET("/triage/feed", h.TriageFeed)
		api.POST("/triage/decide", h.TriageDecide)
		api.GET("/triage/outcomes", h.TriageOutcomes)

		// Entitlement
		api.GET("/entitlement", h.EntitlementStatus)
		api.POST("/entitlement/purchase", h.EntitlementPurchase)
		api.POST("/entitlement/restore", h.EntitlementRestore)
	}

	return triageSvc
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
