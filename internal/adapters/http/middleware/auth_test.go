package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cumeal/internal/domain/session"
)

type mockSessionStore struct {
	sessions map[string]session.Session
	err      error
}

// Get returns the seeded session, session.ErrNotFound, or the configured error.
func (m *mockSessionStore) Get(_ context.Context, token string) (session.Session, error) {
	if m.err != nil {
		return session.Session{}, m.err
	}
	s, ok := m.sessions[token]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func whoAmI(w http.ResponseWriter, r *http.Request) {
	if s, ok := GetSessionFromContext(r.Context()); ok {
		w.Write([]byte(s.Username))
		return
	}
	w.Write([]byte("anonymous"))
}

func TestAuth_ResolvesCookie(t *testing.T) {
	store := &mockSessionStore{sessions: map[string]session.Session{
		"tok": {Token: "tok", Username: "chef", CreatedAt: time.Now()},
	}}
	handler := Auth(store)(http.HandlerFunc(whoAmI))

	tests := []struct {
		name        string
		cookie      string
		want        string
		wantCleared bool
	}{
		{"no cookie", "", "anonymous", false},
		{"valid", "tok", "chef", false},
		{"stale", "gone", "anonymous", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/menus", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.want)
			}
			cleared := false
			for _, c := range rr.Result().Cookies() {
				if c.Name == SessionCookieName && c.MaxAge < 0 {
					cleared = true
				}
			}
			if cleared != tt.wantCleared {
				t.Errorf("cookie cleared = %v, want %v", cleared, tt.wantCleared)
			}
		})
	}
}

func TestAuth_StoreErrorLeavesRequestAnonymous(t *testing.T) {
	handler := Auth(&mockSessionStore{err: errors.New("db locked")})(http.HandlerFunc(whoAmI))
	req := httptest.NewRequest("GET", "/menus", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Body.String() != "anonymous" {
		t.Errorf("body = %q", rr.Body.String())
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Error("cookie should survive a transient store error")
	}
}

func TestAuth_UnreadableSessionClearsCookie(t *testing.T) {
	unreadable := fmt.Errorf("%w: %w", session.ErrNotFound, errors.New("stored credential failed to decrypt"))
	handler := Auth(&mockSessionStore{err: unreadable})(http.HandlerFunc(whoAmI))
	req := httptest.NewRequest("GET", "/menus", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Body.String() != "anonymous" {
		t.Errorf("body = %q", rr.Body.String())
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName || cookies[0].MaxAge >= 0 {
		t.Errorf("cookies = %v, want the session cookie cleared", cookies)
	}
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(whoAmI))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/feedback", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Errorf("anonymous: %d %s", rr.Code, rr.Header().Get("Location"))
	}

	req := httptest.NewRequest("GET", "/feedback", nil)
	req = req.WithContext(ContextWithSession(req.Context(), session.Session{Username: "chef"}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "chef" {
		t.Errorf("logged in: %d %q", rr.Code, rr.Body.String())
	}
}

func TestSessionCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "abc")
	c := rr.Result().Cookies()[0]
	if c.Name != SessionCookieName || c.Value != "abc" || !c.HttpOnly || c.MaxAge != 86400 {
		t.Errorf("cookie = %+v", c)
	}
}
