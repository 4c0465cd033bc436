package main

import (
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	_ "modernc.org/sqlite"

	"cumeal/internal/adapters/backend"
	emailPkg "cumeal/internal/adapters/email"
	web "cumeal/internal/adapters/http"
	"cumeal/internal/adapters/http/perf"
	"cumeal/internal/adapters/storage"
	auditStore "cumeal/internal/adapters/storage/audit"
	outboxStore "cumeal/internal/adapters/storage/outbox"
	sessionStore "cumeal/internal/adapters/storage/session"
	"cumeal/internal/application/menuview"
	"cumeal/internal/application/orchestrators"
	"cumeal/internal/config"
	"cumeal/internal/domain/menu"
	"cumeal/internal/domain/session"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	installLogger(cfg)

	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Performance instrumentation: wrap DB with timing, share collector with the backend client
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)

	sessions, err := sessionStore.NewSQLiteStore(timedDB, cfg.SessionKey)
	if err != nil {
		log.Fatalf("failed to create session store: %v", err)
	}
	outbox := outboxStore.NewSQLiteStore(timedDB)
	audits := auditStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		Sessions: sessions,
		Audit:    audits,
		Outbox:   outbox,
	}

	client := backend.NewClient(backend.Config{
		BaseURL:        cfg.APIURL,
		Timeout:        cfg.APITimeout,
		SlowUpstreamMs: cfg.SlowUpstreamMs,
	}, collector)

	var sender emailPkg.Sender
	switch {
	case cfg.ResendKey != "":
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.ResendFrom)
		slog.Info("email_configured", "provider", "resend", "recipients", len(cfg.NotifyTo))
	default:
		sender = emailPkg.NewNoopSender()
		if cfg.Production() && len(cfg.NotifyTo) > 0 {
			slog.Warn("email_disabled", "reason", "CUMEAL_RESEND_KEY is not set")
		}
	}
	notifier := orchestrators.NewMenuChangeNotifier(orchestrators.MenuChangeDeps{
		Audit:      stores.Audit,
		Sender:     sender,
		Recipients: cfg.NotifyTo,
		Outbox:     outbox,
	})

	registry := menuview.NewRegistry(client, menu.NewReferenceDates(time.Now().In(cfg.Location)), notifier)

	stopCh := make(chan struct{})
	defer close(stopCh)
	menuview.NewRolloverWatcher(registry, cfg.Location, session.Lifetime).Start(cfg.RolloverInterval, stopCh)
	orchestrators.StartBackgroundWorker(orchestrators.SessionSweeper{Sessions: sessions}, time.Hour, stopCh)
	orchestrators.StartBackgroundWorker(orchestrators.NotificationRetrier{Outbox: outbox, Sender: sender}, time.Minute, stopCh)
	orchestrators.StartBackgroundWorker(orchestrators.AuditPruner{Audit: audits, Retention: cfg.AuditRetention}, 24*time.Hour, stopCh)

	handler := web.NewMux(web.Config{
		CSRFKey:        cfg.CSRFKey,
		SecureCookies:  cfg.SecureCookies(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustedProxies: cfg.TrustedProxies,
		SlowRequestMs:  cfg.SlowRequestMs,
		Location:       cfg.Location,
	}, client, registry, stores, collector)

	log.Printf("Cumeal admin %s starting on %s (env=%s, api=%s, schema=%d)",
		version, cfg.Addr, cfg.Env, cfg.APIURL, storage.LatestSchemaVersion())
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// installLogger sets the default slog handler: text in development, JSON in production.
func installLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Production() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
