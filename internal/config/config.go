// Package config reads the admin server settings from CUMEAL_* environment variables.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// KeySize is the byte length of the CSRF and session keys.
const KeySize = 32

// Config is the resolved server configuration.
type Config struct {
	Env              string
	Addr             string
	APIURL           string
	APITimeout       time.Duration
	DBPath           string
	CSRFKey          []byte
	SessionKey       []byte
	ResendKey        string
	ResendFrom       string
	NotifyTo         []string
	RateLimitRPS     float64 // 0 disables limiting
	RateLimitBurst   int
	TrustedProxies   []netip.Prefix
	RolloverInterval time.Duration
	Location         *time.Location
	LogLevel         slog.Level
	SlowRequestMs    int
	SlowUpstreamMs   int
	SlowQueryMs      int
	AuditRetention   time.Duration // 0 ("off") keeps the trail forever
}

// Production reports whether the server runs in production mode.
func (c Config) Production() bool {
	return c.Env == EnvProduction
}

// SecureCookies reports whether cookies must carry the Secure flag.
func (c Config) SecureCookies() bool {
	return c.Production()
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return FromEnv(os.Getenv)
}

// FromEnv resolves the configuration through getenv.
// Invalid optional values log a warning and fall back to their default.
// POST: err != nil only for settings that cannot be defaulted (keys in production)
func FromEnv(getenv func(string) string) (Config, error) {
	r := reader{getenv: getenv}
	c := Config{
		Env:              r.str("CUMEAL_ENV", EnvDevelopment),
		Addr:             r.str("CUMEAL_ADDR", ":8080"),
		APIURL:           strings.TrimRight(r.str("CUMEAL_API_URL", "https://cumeal.vercel.app/api"), "/"),
		APITimeout:       r.duration("CUMEAL_API_TIMEOUT", 15*time.Second),
		DBPath:           r.str("CUMEAL_DB_PATH", "cumeal-admin.db"),
		ResendKey:        r.str("CUMEAL_RESEND_KEY", ""),
		ResendFrom:       r.str("CUMEAL_RESEND_FROM", "Cumeal <noreply@cumeal.app>"),
		NotifyTo:         r.list("CUMEAL_NOTIFY_TO"),
		RateLimitRPS:     r.float("CUMEAL_RATE_LIMIT_RPS", 10),
		RateLimitBurst:   r.integer("CUMEAL_RATE_LIMIT_BURST", 20),
		TrustedProxies:   r.prefixes("CUMEAL_TRUSTED_PROXIES"),
		RolloverInterval: r.duration("CUMEAL_ROLLOVER_INTERVAL", time.Minute),
		Location:         r.location("CUMEAL_TIMEZONE"),
		LogLevel:         r.level("CUMEAL_LOG_LEVEL", slog.LevelInfo),
		SlowRequestMs:    r.integer("CUMEAL_SLOW_REQUEST_MS", 200),
		SlowUpstreamMs:   r.integer("CUMEAL_SLOW_UPSTREAM_MS", 500),
		SlowQueryMs:      r.integer("CUMEAL_SLOW_QUERY_MS", 50),
	}
	switch getenv("CUMEAL_AUDIT_RETENTION") {
	case "0", "off":
	default:
		c.AuditRetention = r.duration("CUMEAL_AUDIT_RETENTION", 90*24*time.Hour)
	}
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		slog.Warn("config_invalid", "key", "CUMEAL_ENV", "value", c.Env, "fallback", EnvDevelopment)
		c.Env = EnvDevelopment
	}

	var err error
	if c.CSRFKey, err = r.key("CUMEAL_CSRF_KEY", c.Production()); err != nil {
		return Config{}, err
	}
	if c.SessionKey, err = r.key("CUMEAL_SESSION_KEY", c.Production()); err != nil {
		return Config{}, err
	}
	return c, nil
}

type reader struct {
	getenv func(string) string
}

func (r reader) str(key, fallback string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (r reader) warn(key, value string, fallback any) {
	slog.Warn("config_invalid", "key", key, "value", value, "fallback", fallback)
}

func (r reader) integer(key string, fallback int) int {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.warn(key, v, fallback)
		return fallback
	}
	return n
}

func (r reader) float(key string, fallback float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		r.warn(key, v, fallback)
		return fallback
	}
	return f
}

func (r reader) duration(key string, fallback time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.warn(key, v, fallback.String())
		return fallback
	}
	return d
}

func (r reader) list(key string) []string {
	var out []string
	for _, p := range strings.Split(r.getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// prefixes reads CIDRs or bare addresses; bare addresses become single-host prefixes.
func (r reader) prefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, v := range r.list(key) {
		p, err := netip.ParsePrefix(v)
		if err != nil {
			addr, aerr := netip.ParseAddr(v)
			if aerr != nil {
				r.warn(key, v, "skipped")
				continue
			}
			addr = addr.Unmap()
			p = netip.PrefixFrom(addr, addr.BitLen())
		}
		out = append(out, p.Masked())
	}
	return out
}

func (r reader) location(key string) *time.Location {
	v := r.str(key, "")
	if v == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		r.warn(key, v, "Local")
		return time.Local
	}
	return loc
}

func (r reader) level(key string, fallback slog.Level) slog.Level {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		r.warn(key, v, fallback.String())
		return fallback
	}
	return l
}

// key decodes a 64-hex-char key. Outside production a missing or invalid
// key is replaced by a random one, which invalidates sessions on restart.
func (r reader) key(name string, required bool) ([]byte, error) {
	v := r.str(name, "")
	if v != "" {
		b, err := hex.DecodeString(v)
		if err == nil && len(b) == KeySize {
			return b, nil
		}
		if required {
			return nil, fmt.Errorf("%s must be %d hex characters", name, KeySize*2)
		}
		r.warn(name, "<redacted>", "random")
	} else if required {
		return nil, errors.New(name + " is required in production")
	}
	b := make([]byte, KeySize)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate %s: %w", name, err)
	}
	return b, nil
}
