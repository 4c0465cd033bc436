package web

import (
	"net/http"
	"net/netip"
	"time"

	"cumeal/internal/adapters/http/middleware"
	"cumeal/internal/adapters/http/perf"
	auditStore "cumeal/internal/adapters/storage/audit"
	outboxStore "cumeal/internal/adapters/storage/outbox"
	sessionStore "cumeal/internal/adapters/storage/session"
	"cumeal/internal/application/menuview"
	"cumeal/internal/application/orchestrators"
	"cumeal/internal/application/projections"
)

// Backend is everything the admin pages ask of the menu service.
type Backend interface {
	orchestrators.AuthBackend
	projections.FeedbackSource
	menuview.MenuAPI
}

// Stores holds the local storage dependencies.
type Stores struct {
	Sessions sessionStore.Store
	Audit    auditStore.Store
	Outbox   outboxStore.Store // optional; nil disables /admin/outbox
}

// Config carries the HTTP-layer settings.
type Config struct {
	CSRFKey        []byte // 32 bytes
	TrustedOrigins []string
	SecureCookies  bool
	RateLimitRPS   float64 // <= 0 disables limiting
	RateLimitBurst int
	TrustedProxies []netip.Prefix // peers allowed to set X-Forwarded-For
	SlowRequestMs  int
	Location       *time.Location
}

// Global dependencies (set by NewMux)
var (
	stores        *Stores
	api           Backend
	registry      *menuview.Registry
	perfCollector *perf.Collector
	location      = time.Local
)

// timeNow is a variable for testability.
var timeNow = time.Now

// NewMux wires HTTP handlers for the admin panel.
func NewMux(cfg Config, b Backend, reg *menuview.Registry, s *Stores, collector *perf.Collector) http.Handler {
	stores = s
	api = b
	registry = reg
	perfCollector = collector
	if cfg.Location != nil {
		location = cfg.Location
	}
	middleware.SecureCookies = cfg.SecureCookies
	middleware.TrustedProxies = cfg.TrustedProxies

	mux := http.NewServeMux()
	registerRoutes(mux)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	// Request order: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(cfg.CSRFKey, cfg.TrustedOrigins),
		middleware.Auth(s.Sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector, cfg.SlowRequestMs),
	)
}
