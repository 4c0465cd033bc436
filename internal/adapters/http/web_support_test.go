package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	_ "modernc.org/sqlite"

	"cumeal/internal/adapters/backend"
	"cumeal/internal/adapters/email"
	"cumeal/internal/adapters/http/middleware"
	"cumeal/internal/adapters/http/perf"
	"cumeal/internal/adapters/storage"
	auditStore "cumeal/internal/adapters/storage/audit"
	outboxStore "cumeal/internal/adapters/storage/outbox"
	sessionStore "cumeal/internal/adapters/storage/session"
	"cumeal/internal/application/menuview"
	"cumeal/internal/application/orchestrators"
	"cumeal/internal/domain/feedback"
	"cumeal/internal/domain/menu"
	"cumeal/internal/domain/session"
)

// fakeBackend is an in-memory menu service.
type fakeBackend struct {
	mu        sync.Mutex
	menus     []menu.WireRecord
	entries   []feedback.Entry
	stats     feedback.Stats
	listErr   error
	feedErr   error
	mutateErr error
	expired   bool
	nextID    int
	created   []menu.Payload
	updated   map[string]menu.Payload
	deleted   []string
	logouts   int

	// Refresh accepts only validRefresh and rotates it to nextTokens.
	validRefresh string
	nextTokens   backend.Tokens
	refreshes    int
}

func (f *fakeBackend) Login(_ context.Context, username, password string) (backend.LoginResult, error) {
	if username != "chef" || password != "secret" {
		return backend.LoginResult{}, &backend.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	return backend.LoginResult{
		Account:      backend.Account{ID: "acct-1", Username: "chef"},
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	}, nil
}

func (f *fakeBackend) Refresh(_ context.Context, refreshToken string) (backend.Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.validRefresh == "" || refreshToken != f.validRefresh {
		return backend.Tokens{}, backend.ErrSessionExpired
	}
	f.validRefresh = f.nextTokens.RefreshToken
	return f.nextTokens, nil
}

func (f *fakeBackend) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return nil
}

func (f *fakeBackend) ListFeedback(context.Context) ([]feedback.Entry, error) {
	return f.entries, f.feedErr
}

func (f *fakeBackend) FeedbackStats(context.Context) (feedback.Stats, error) {
	return f.stats, f.feedErr
}

func (f *fakeBackend) list() ([]menu.WireRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expired {
		return nil, backend.ErrSessionExpired
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]menu.WireRecord(nil), f.menus...), nil
}

func (f *fakeBackend) ListWeek(context.Context) ([]menu.WireRecord, error) { return f.list() }

func (f *fakeBackend) ListAll(context.Context) ([]menu.WireRecord, error) { return f.list() }

func (f *fakeBackend) GetByDate(_ context.Context, date string) (menu.WireRecord, error) {
	all, err := f.list()
	if err != nil {
		return menu.WireRecord{}, err
	}
	for _, m := range all {
		if menu.DateKey(m.Date) == date {
			return m, nil
		}
	}
	return menu.WireRecord{}, &backend.APIError{Status: http.StatusNotFound, Message: "Menu not found"}
}

func (f *fakeBackend) Create(_ context.Context, p menu.Payload) (menu.WireRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return menu.WireRecord{}, f.mutateErr
	}
	f.nextID++
	rec := wireFromPayload("new-"+strconv.Itoa(f.nextID), p.Date, p)
	f.menus = append(f.menus, rec)
	f.created = append(f.created, p)
	return rec, nil
}

func (f *fakeBackend) Update(_ context.Context, id string, p menu.Payload) (menu.WireRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return menu.WireRecord{}, f.mutateErr
	}
	if f.updated == nil {
		f.updated = map[string]menu.Payload{}
	}
	f.updated[id] = p
	for i, m := range f.menus {
		if m.ID == id {
			f.menus[i] = wireFromPayload(id, m.Date, p)
			return f.menus[i], nil
		}
	}
	return menu.WireRecord{}, &backend.APIError{Status: http.StatusNotFound, Message: "Menu not found"}
}

func (f *fakeBackend) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.deleted = append(f.deleted, id)
	kept := f.menus[:0]
	for _, m := range f.menus {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	f.menus = kept
	return nil
}

func rawJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func wireFromPayload(id, date string, p menu.Payload) menu.WireRecord {
	return menu.WireRecord{
		ID: id, Date: date,
		Breakfast: rawJSON(p.Breakfast), Lunch: rawJSON(p.Lunch),
		Snacks: rawJSON(p.Snacks), Dinner: rawJSON(p.Dinner),
	}
}

// wireMenu builds a backend record with array-shaped meals.
func wireMenu(id, date string, breakfast, lunch []string) menu.WireRecord {
	return menu.WireRecord{ID: id, Date: date, Breakfast: rawJSON(breakfast), Lunch: rawJSON(lunch)}
}

// testNow is the fixed clock of the handler tests: Saturday, June 1, 2024.
var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	t       *testing.T
	backend *fakeBackend
	audit   *auditStore.SQLiteStore
	sess    session.Session
	mail    *email.NoopSender
	handler http.Handler
}

// newTestEnv wires the handlers to a fake backend and in-memory sqlite stores
// and opens a session for "chef". CSRF protection is not installed.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sessions, err := sessionStore.NewSQLiteStore(db, bytes.Repeat([]byte{1}, 32))
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	sessions.WithClock(func() time.Time { return testNow })
	audits := auditStore.NewSQLiteStore(db)

	prevNow := timeNow
	timeNow = func() time.Time { return testNow }
	t.Cleanup(func() { timeNow = prevNow })

	fb := &fakeBackend{}
	mail := email.NewNoopSender()
	notifier := orchestrators.NewMenuChangeNotifier(orchestrators.MenuChangeDeps{
		Audit: audits, Sender: mail, Recipients: []string{"kitchen@example.com"}, Now: timeNow,
	})
	stores = &Stores{Sessions: sessions, Audit: audits, Outbox: outboxStore.NewSQLiteStore(db)}
	api = fb
	registry = menuview.NewRegistry(fb, menu.NewReferenceDates(testNow), notifier)
	perfCollector = perf.NewCollector(100)
	location = time.UTC

	mux := http.NewServeMux()
	registerRoutes(mux)

	sess, err := session.New("chef", "acct-1", "access-1", "refresh-1", testNow)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := sessions.Create(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}

	return &testEnv{
		t: t, backend: fb, audit: audits, sess: sess, mail: mail,
		handler: middleware.Auth(sessions)(mux),
	}
}

// request sends an HTML request carrying the session cookie unless anonymous.
func (e *testEnv) request(method, target string, form url.Values, anonymous bool) *httptest.ResponseRecorder {
	e.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Accept", "text/html")
	if !anonymous {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: e.sess.Token})
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) get(target string) *httptest.ResponseRecorder {
	return e.request("GET", target, nil, false)
}

func (e *testEnv) post(target string, form url.Values) *httptest.ResponseRecorder {
	return e.request("POST", target, form, false)
}

func parseHTML(t *testing.T, rr *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rr.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func expectRedirect(t *testing.T, rr *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Location"); got != location {
		t.Errorf("Location = %q, want %q", got, location)
	}
}
