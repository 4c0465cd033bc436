package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cumeal/internal/adapters/backend"
	"cumeal/internal/adapters/http/middleware"
	auditStore "cumeal/internal/adapters/storage/audit"
	domainAudit "cumeal/internal/domain/audit"
	"cumeal/internal/domain/session"
)

func TestRoot_RedirectsByLoginState(t *testing.T) {
	env := newTestEnv(t)
	expectRedirect(t, env.request("GET", "/", nil, true), "/login")
	expectRedirect(t, env.get("/"), "/menus")
	if rr := env.get("/nope"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rr.Code)
	}
}

func TestProtectedRoutes_RedirectAnonymous(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/menus", "/menus/day", "/menus/new", "/menus/edit?id=m1", "/menus/delete?id=m1", "/menus/calendar.ics", "/menus/week.pdf", "/feedback", "/admin/audit", "/admin/perf"} {
		t.Run(path, func(t *testing.T) {
			expectRedirect(t, env.request("GET", path, nil, true), "/login")
		})
	}
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	rr := env.request("POST", "/login", url.Values{"username": {"chef"}, "password": {"secret"}}, true)
	expectRedirect(t, rr, "/menus")

	var token string
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatal("no session cookie set")
	}
	sess, err := stores.Sessions.Get(context.Background(), token)
	if err != nil || sess.Username != "chef" || sess.AccessToken != "access-1" {
		t.Errorf("stored session = %+v, %v", sess, err)
	}

	cat := domainAudit.CategorySession
	n, _ := env.audit.Count(context.Background(), auditStore.Filter{Category: &cat})
	if n != 1 {
		t.Errorf("session audit events = %d, want 1", n)
	}
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"bad password", url.Values{"username": {"chef"}, "password": {"nope"}}, "Login failed: Invalid credentials"},
		{"missing fields", url.Values{"username": {" "}}, "Username and password are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.request("POST", "/login", tt.form, true)
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rr.Code)
			}
			doc := parseHTML(t, rr)
			if got := strings.TrimSpace(doc.Find("#login-error").Text()); got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogin_GetPage(t *testing.T) {
	env := newTestEnv(t)
	expectRedirect(t, env.get("/login"), "/menus")

	rr := env.request("GET", "/login?expired=1", nil, true)
	doc := parseHTML(t, rr)
	if doc.Find("#login-form input[name=username]").Length() != 1 {
		t.Error("login form missing")
	}
	if !strings.Contains(doc.Find(".notice").Text(), "Session expired. Please login again.") {
		t.Errorf("notice = %q", doc.Find(".notice").Text())
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.get("/menus")
	if registry.Len() != 1 {
		t.Fatalf("registry len = %d", registry.Len())
	}

	expectRedirect(t, env.post("/logout", url.Values{}), "/login")
	if env.backend.logouts != 1 {
		t.Errorf("backend logouts = %d", env.backend.logouts)
	}
	if _, err := stores.Sessions.Get(context.Background(), env.sess.Token); err == nil {
		t.Error("session still stored")
	}
	if registry.Len() != 0 {
		t.Error("controller not dropped")
	}
	expectRedirect(t, env.get("/menus"), "/login")
}

func signedAccessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestConcurrentRequests_ShareOneRefresh(t *testing.T) {
	env := newTestEnv(t)
	seedWeek(env)
	env.backend.validRefresh = "rt-1"
	env.backend.nextTokens = backend.Tokens{AccessToken: signedAccessToken(t, testNow.Add(time.Hour)), RefreshToken: "rt-2"}

	sess, err := session.New("chef", "acct-1", signedAccessToken(t, testNow.Add(5*time.Second)), "rt-1", testNow)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := stores.Sessions.Create(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	env.sess = sess

	var wg sync.WaitGroup
	codes := make(chan int, 6)
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- env.get("/menus/day?date=2024-06-01").Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		if code != http.StatusOK {
			t.Errorf("status = %d, want 200", code)
		}
	}

	if env.backend.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", env.backend.refreshes)
	}
	stored, err := stores.Sessions.Get(context.Background(), sess.Token)
	if err != nil {
		t.Fatalf("session lost after refresh: %v", err)
	}
	if stored.RefreshToken != "rt-2" {
		t.Errorf("stored refresh token = %q, want rt-2", stored.RefreshToken)
	}
}
