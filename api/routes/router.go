package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pos-inventory-backend/api/controllers"
	"github.com/angelmondragon/pos-inventory-backend/api/middleware"
	"github.com/angelmondragon/pos-inventory-backend/internal/images"
	"github.com/angelmondragon/pos-inventory-backend/internal/items"
	"github.com/angelmondragon/pos-inventory-backend/internal/ledger"
	"github.com/angelmondragon/pos-inventory-backend/internal/reports"
	"github.com/angelmondragon/pos-inventory-backend/internal/sales"
	"github.com/angelmondragon/pos-inventory-backend/internal/staff"
	"github.com/angelmondragon/pos-inventory-backend/pkg/auth/session"
	"github.com/angelmondragon/pos-inventory-backend/pkg/config"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
	"github.com/angelmondragon/pos-inventory-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/pos-inventory-backend/pkg/redis"
)

// KVStore is the redis surface the HTTP layer needs.
type KVStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
	Ping(ctx context.Context) error
}

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	KV       KVStore
	Sessions session.AccessSessionChecker

	Staff   staff.Service
	Items   items.Service
	Sales   sales.Service
	Ledger  ledger.Service
	Reports reports.Service
	Images  *images.Service

	HTTPMetrics *metrics.HTTPMetrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	// ImageFiles serves locally stored images under /storage/images when set.
	ImageFiles http.Handler
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.FeatureFlags.CORSAllowedOrigins),
	)

	deps := map[string]controllers.Pinger{"db": d.DB}
	if d.KV != nil {
		deps["redis"] = d.KV
	}
	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, deps, logg))

	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}
	if d.ImageFiles != nil {
		r.Handle("/storage/images/*", http.StripPrefix("/storage/images/", d.ImageFiles))
	}

	var rateStore kvRateStore
	if d.KV != nil {
		rateStore = d.KV
	}
	var idemStore pkgredis.IdempotencyStore
	if d.KV != nil {
		idemStore = d.KV
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), rateStore, logg)).
			Post("/login", controllers.AuthLogin(d.Staff, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Staff, logg))
		r.Post("/logout", controllers.AuthLogout(d.Staff, logg))
		r.With(middleware.Auth(cfg.JWT, d.Sessions, logg)).Get("/me", controllers.AuthMe(d.Staff, logg))
	})

	maxImage := cfg.Storage.MaxUploadBytes()

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, d.Sessions, logg),
			middleware.Idempotency(idemStore, cfg.Redis.IdempotencyTTL, maxImage+maxFormOverhead, logg),
		)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ItemsList(d.Items, logg))
			r.Post("/", controllers.ItemsCreate(d.Items, maxImage, logg))
			r.Get("/{id}", controllers.ItemsGet(d.Items, logg))
			r.Put("/{id}", controllers.ItemsUpdate(d.Items, maxImage, logg))
			r.Delete("/{id}", controllers.ItemsDelete(d.Items, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.SalesList(d.Ledger, logg))
			r.Post("/", controllers.SalesCreate(d.Sales, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/stock", controllers.ReportsStock(d.Reports, logg))
			r.Get("/transaction", controllers.ReportsTransactions(d.Reports, logg))
		})

		r.Post("/images", controllers.ImagesUpload(d.Images, logg))
	})

	return r
}

// room for the multipart fields around an image part
const maxFormOverhead = 1 << 20

type kvRateStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}
