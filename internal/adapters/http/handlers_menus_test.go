package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"cumeal/internal/adapters/backend"
	"cumeal/internal/adapters/http/middleware"
	"cumeal/internal/domain/menu"
)

func seedWeek(env *testEnv) {
	env.backend.menus = []menu.WireRecord{
		wireMenu("m1", "2024-06-01", []string{"Idli", "Dosa"}, nil),
		{ID: "m2", Date: "2024-06-02T00:00:00.000Z", Lunch: rawJSON("Rice, Dal")},
		wireMenu("m3", "2024-06-05", nil, []string{"Paneer"}),
	}
}

func TestMenus_WeekRendersCards(t *testing.T) {
	env := newTestEnv(t)
	seedWeek(env)

	rr := env.get("/menus")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	doc := parseHTML(t, rr)
	if n := doc.Find(".card").Length(); n != 3 {
		t.Errorf("cards = %d, want 3", n)
	}
	if got := doc.Find(".card.today .badge").Text(); got != "Today" {
		t.Errorf("today badge = %q", got)
	}
	if got := doc.Find(".card.tomorrow .badge").Text(); got != "Tomorrow" {
		t.Errorf("tomorrow badge = %q", got)
	}
	if got := doc.Find(".card[data-id=m1] h2").Text(); got != "Saturday, June 1, 2024" {
		t.Errorf("heading = %q", got)
	}
	if got := doc.Find(".card[data-id=m2] li").Length(); got != 2 {
		t.Errorf("comma-split lunch items = %d, want 2", got)
	}
	if !strings.Contains(doc.Find(".card[data-id=m3]").Text(), "No items") {
		t.Error("empty meal should read No items")
	}
	if doc.Find(".tab.active").Text() != "This Week" {
		t.Errorf("active tab = %q", doc.Find(".tab.active").Text())
	}
}

func TestMenus_EmptyState(t *testing.T) {
	env := newTestEnv(t)
	doc := parseHTML(t, env.get("/menus?view=all"))
	if got := doc.Find(".empty").Text(); got != `No menus found. Click "New Menu" to create one.` {
		t.Errorf("empty state = %q", got)
	}
}

func TestMenus_JSON(t *testing.T) {
	env := newTestEnv(t)
	seedWeek(env)

	req := httptest.NewRequest("GET", "/menus?view=all", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: env.sess.Token})
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Content-Type = %q", ct)
	}
	var body menuJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.View != "all" || len(body.Menus) != 3 || !body.Menus[0].IsToday {
		t.Errorf("json = %+v", body)
	}
}

func TestMenus_BackendFailureShowsBanner(t *testing.T) {
	env := newTestEnv(t)
	env.backend.listErr = &backend.APIError{Status: 500, Message: "Failed to fetch weekly menu"}

	rr := env.get("/menus")
	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rr.Code)
	}
	doc := parseHTML(t, rr)
	if got := doc.Find("#menu-error span").Text(); got != "Failed to fetch weekly menu" {
		t.Errorf("banner = %q", got)
	}

	env.backend.listErr = nil
	doc = parseHTML(t, env.post("/menus/dismiss-error", url.Values{}))
	if doc.Find("#menu-error").Length() != 0 {
		t.Error("banner still shown after dismiss")
	}
}

func TestMenus_SessionExpiredRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t)
	env.backend.expired = true

	expectRedirect(t, env.get("/menus"), "/login?expired=1")
	if registry.Len() != 0 {
		t.Error("controller not dropped")
	}
}

func TestMenus_AllViewPaginatesAndSearches(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 20; i++ {
		env.backend.menus = append(env.backend.menus,
			wireMenu(fmt.Sprintf("m%d", i), fmt.Sprintf("2024-05-%02d", i), []string{fmt.Sprintf("Dish %d", i)}, nil))
	}

	doc := parseHTML(t, env.get("/menus?view=all&per_page=7&page=2"))
	if n := doc.Find(".card").Length(); n != 7 {
		t.Errorf("cards = %d, want 7", n)
	}
	if doc.Find(".pagination strong").Text() != "2" {
		t.Errorf("current page = %q", doc.Find(".pagination strong").Text())
	}
	if first, _ := doc.Find(".card").First().Attr("data-id"); first != "m13" {
		t.Errorf("newest-first page 2 starts with %s, want m13", first)
	}

	doc = parseHTML(t, env.get("/menus?view=all&q=dish+17"))
	if n := doc.Find(".card").Length(); n != 1 {
		t.Errorf("search cards = %d, want 1", n)
	}
}

func TestMenuDay(t *testing.T) {
	env := newTestEnv(t)
	seedWeek(env)

	doc := parseHTML(t, env.get("/menus/day"))
	if id, _ := doc.Find(".card").Attr("data-id"); id != "m1" {
		t.Errorf("default day shows %q, want today's menu", id)
	}

	rr := env.get("/menus/day?date=2024-07-01")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "No menu for this date.") {
		t.Error("missing not-found message")
	}
}

func TestMenuNew_FormActionsAndSubmit(t *testing.T) {
	env := newTestEnv(t)

	doc := parseHTML(t, env.get("/menus/new"))
	if v, _ := doc.Find("input[name=date]").Attr("value"); v != "2024-06-01" {
		t.Errorf("default date = %q", v)
	}
	if doc.Find("input[name=breakfast]").Length() != 0 {
		t.Error("new form should start without items")
	}

	doc = parseHTML(t, env.post("/menus/new", url.Values{"date": {"2024-06-03"}, "action": {"add:breakfast"}}))
	if doc.Find("input[name=breakfast]").Length() != 1 {
		t.Error("add:breakfast did not add an input")
	}

	form := url.Values{"date": {"2024-06-03"}, "breakfast": {"Idli", "Vada"}, "action": {"remove:breakfast:0"}}
	doc = parseHTML(t, env.post("/menus/new", form))
	if v, _ := doc.Find("input[name=breakfast]").Attr("value"); v != "Vada" {
		t.Errorf("after remove first breakfast = %q", v)
	}

	form = url.Values{
		"date":      {"2024-06-03"},
		"breakfast": {"Idli", "  ", ""},
		"dinner":    {" Roti ", "Dal"},
		"action":    {"submit"},
	}
	expectRedirect(t, env.post("/menus/new", form), "/menus?view=week")
	if len(env.backend.created) != 1 {
		t.Fatalf("created = %d", len(env.backend.created))
	}
	want := menu.Payload{Date: "2024-06-03", Breakfast: "Idli", Dinner: "Roti, Dal"}
	if got := env.backend.created[0]; got != want {
		t.Errorf("payload = %+v, want %+v", got, want)
	}
	if len(env.mail.Sent()) != 1 {
		t.Errorf("notifications = %d, want 1", len(env.mail.Sent()))
	}
}

func TestMenuForm_DefaultButtonSubmits(t *testing.T) {
	env := newTestEnv(t)
	seedWeek(env)

	pages := map[string]string{
		"new, empty":   "/menus/new",
		"edit, filled": "/menus/edit?id=m1",
	}
	for name, path := range pages {
		t.Run(name, func(t *testing.T) {
			doc := parseHTML(t, env.get(path))
			first := doc.Find("#menu-form button[type=submit]").First()
			if first.Length() == 0 {
				t.Fatal("form has no submit button")
			}
			if _, redirected := first.Attr("formaction"); redirected {
				t.Error("default button must post to the form action")
			}
			if v, _ := first.Attr("value"); v != "submit" {
				t.Errorf("default button action = %q, want submit", v)
			}
		})
	}
}

func TestMenuEdit_EnterKeepsItems(t *testing.T) {
	env := newTestEnv(t)
	seedWeek(env)

	doc := parseHTML(t, env.get("/menus/edit?id=m1"))
	first := doc.Find("#menu-form button[type=submit]").First()
	action, _ := first.Attr("value")
	form := url.Values{"id": {"m1"}, "breakfast": {"Idli", "Dosa"}, "action": {action}}
	expectRedirect(t, env.post("/menus/edit", form), "/menus?view=week")
	if got := env.backend.updated["m1"]; got.Breakfast != "Idli, Dosa" {
		t.Errorf("breakfast = %q, want both items kept", got.Breakfast)
	}
}

func TestMenuNew_ManyItemsKeepOrder(t *testing.T) {
	env := newTestEnv(t)

	items := make([]string, 2000)
	for i := range items {
		items[i] = fmt.Sprintf("item-%d", i)
	}
	form := url.Values{"date": {"2024-06-03"}, "snacks": items, "action": {"submit"}}
	expectRedirect(t, env.post("/menus/new", form), "/menus?view=week")
	if len(env.backend.created) != 1 {
		t.Fatalf("created = %d", len(env.backend.created))
	}
	if got, want := env.backend.created[0].Snacks, strings.Join(items, ", "); got != want {
		t.Errorf("snacks payload has %d chars, want %d", len(got), len(want))
	}
}

func TestMenuNew_MissingDate(t *testing.T) {
	env := newTestEnv(t)
	rr := env.post("/menus/new", url.Values{"date": {""}, "lunch": {"Rice"}, "action": {"submit"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rr.Code)
	}
	doc := parseHTML(t, rr)
	if got := doc.Find("#form-error").Text(); got != "Date is required" {
		t.Errorf("error = %q", got)
	}
	if v, _ := doc.Find("input[name=lunch]").Attr("value"); v != "Rice" {
		t.Errorf("draft lost: lunch = %q", v)
	}
	if len(env.backend.created) != 0 {
		t.Error("backend called despite validation failure")
	}
}

func TestMenuNew_BackendFailureKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	env.backend.mutateErr = &backend.APIError{Status: 400, Message: "Menu for this date already exists"}

	rr := env.post("/menus/new", url.Values{"date": {"2024-06-01"}, "snacks": {"Samosa"}, "action": {"submit"}})
	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rr.Code)
	}
	doc := parseHTML(t, rr)
	if got := doc.Find("#form-error").Text(); got != "Menu for this date already exists" {
		t.Errorf("error = %q", got)
	}
	if v, _ := doc.Find("input[name=snacks]").Attr("value"); v != "Samosa" {
		t.Errorf("snacks = %q", v)
	}
}

func TestMenuEdit_HydratesAndUpdatesWithoutDate(t *testing.T) {
	env := newTestEnv(t)
	seedWeek(env)

	doc := parseHTML(t, env.get("/menus/edit?id=m1"))
	if _, ro := doc.Find("input[name=date]").Attr("readonly"); !ro {
		t.Error("date should be read-only while editing")
	}
	if n := doc.Find("input[name=breakfast]").Length(); n != 2 {
		t.Errorf("breakfast inputs = %d, want 2", n)
	}
	if doc.Find("h1").Text() != "Edit Menu" {
		t.Errorf("title = %q", doc.Find("h1").Text())
	}

	form := url.Values{"id": {"m1"}, "date": {"2030-01-01"}, "breakfast": {"Upma"}, "action": {"submit"}}
	expectRedirect(t, env.post("/menus/edit", form), "/menus?view=week")
	got, ok := env.backend.updated["m1"]
	if !ok {
		t.Fatal("update not sent")
	}
	if got.Date != "" || got.Breakfast != "Upma" {
		t.Errorf("payload = %+v", got)
	}
}

func TestMenuEdit_UnknownID(t *testing.T) {
	env := newTestEnv(t)
	seedWeek(env)
	if rr := env.get("/menus/edit?id=ghost"); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestMenuCancel(t *testing.T) {
	env := newTestEnv(t)
	seedWeek(env)
	env.get("/menus/edit?id=m1")
	expectRedirect(t, env.post("/menus/cancel", url.Values{}), "/menus?view=week")
	if snap := registry.Get(env.sess.Token, testNow).Snapshot(); snap.Selected != nil {
		t.Error("selection survived cancel")
	}
}

func TestMenuDelete(t *testing.T) {
	env := newTestEnv(t)
	seedWeek(env)

	doc := parseHTML(t, env.get("/menus/delete?id=m2"))
	if !strings.Contains(doc.Find(".menu-delete p").Text(), "Sunday, June 2, 2024") {
		t.Errorf("confirmation = %q", doc.Find(".menu-delete p").Text())
	}

	expectRedirect(t, env.post("/menus/delete", url.Values{"id": {"m2"}}), "/menus?view=all")
	if len(env.backend.deleted) != 0 {
		t.Fatal("deleted without confirmation")
	}

	expectRedirect(t, env.post("/menus/delete", url.Values{"id": {"m2"}, "confirm": {"yes"}}), "/menus?view=all")
	if len(env.backend.deleted) != 1 || env.backend.deleted[0] != "m2" {
		t.Errorf("deleted = %v", env.backend.deleted)
	}
}
