package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func trustProxies(t *testing.T, cidrs ...string) {
	t.Helper()
	prev := TrustedProxies
	t.Cleanup(func() { TrustedProxies = prev })
	TrustedProxies = nil
	for _, c := range cidrs {
		TrustedProxies = append(TrustedProxies, netip.MustParsePrefix(c))
	}
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	for i := range 3 {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d rejected within burst", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("fourth request allowed past burst")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other IP should have its own bucket")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	handler := RateLimit(NewRateLimiter(1, 1))(http.HandlerFunc(whoAmI))
	req := httptest.NewRequest("GET", "/menus", nil)
	req.RemoteAddr = "192.0.2.9:5555"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("first status = %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "1" {
		t.Errorf("second status = %d", rr.Code)
	}
}

func TestRateLimit_NilDisables(t *testing.T) {
	handler := RateLimit(nil)(http.HandlerFunc(whoAmI))
	for range 5 {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
	}
}

func TestRateLimit_ForwardedForRotationStillLimited(t *testing.T) {
	trustProxies(t)
	handler := RateLimit(NewRateLimiter(1, 1))(http.HandlerFunc(whoAmI))

	allowed := 0
	for i := range 50 {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusOK {
			allowed++
		}
	}
	if allowed != 1 {
		t.Errorf("allowed = %d of 50, want 1", allowed)
	}
}

func TestRateLimit_TrustedProxyKeysOnClient(t *testing.T) {
	trustProxies(t, "10.0.0.0/8")
	handler := RateLimit(NewRateLimiter(1, 1))(http.HandlerFunc(whoAmI))

	send := func(client string) int {
		req := httptest.NewRequest("GET", "/menus", nil)
		req.RemoteAddr = "10.0.0.2:443"
		req.Header.Set("X-Forwarded-For", client)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}
	if code := send("198.51.100.1"); code != http.StatusOK {
		t.Fatalf("first client status = %d", code)
	}
	if code := send("198.51.100.2"); code != http.StatusOK {
		t.Errorf("second client behind the same proxy = %d, want 200", code)
	}
	if code := send("198.51.100.1"); code != http.StatusTooManyRequests {
		t.Errorf("repeat client = %d, want 429", code)
	}
}

func TestClientIP(t *testing.T) {
	trustProxies(t, "10.0.0.0/8", "192.0.2.50/32")
	tests := []struct {
		name, xff, remote, want string
	}{
		{"remote addr", "", "192.0.2.1:1234", "192.0.2.1"},
		{"no port", "", "192.0.2.7", "192.0.2.7"},
		{"untrusted peer ignores header", "203.0.113.5", "192.0.2.1:1234", "192.0.2.1"},
		{"trusted peer", "203.0.113.5", "10.0.0.1:80", "203.0.113.5"},
		{"spoofed left hops skipped", "1.2.3.4, 203.0.113.5", "10.0.0.1:80", "203.0.113.5"},
		{"proxy chain", "203.0.113.5, 192.0.2.50, 10.0.0.9", "10.0.0.1:80", "203.0.113.5"},
		{"all hops trusted", "10.0.0.9", "10.0.0.1:80", "10.0.0.9"},
		{"garbage hop", "not-an-ip", "10.0.0.1:80", "10.0.0.1"},
		{"trusted peer without header", "", "10.0.0.1:80", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
