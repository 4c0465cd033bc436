package web

import (
	"io/fs"
	"net/http"

	"cumeal/internal/adapters/http/middleware"
)

func registerRoutes(mux *http.ServeMux) {
	static, _ := fs.Sub(assets, "static")
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	mux.HandleFunc("/", handleRoot)
	mux.HandleFunc("/healthz", handleHealthz)
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)

	protected := map[string]http.HandlerFunc{
		"/menus":               handleMenus,
		"/menus/day":           handleMenuDay,
		"/menus/new":           handleMenuNew,
		"/menus/edit":          handleMenuEdit,
		"/menus/cancel":        handleMenuCancel,
		"/menus/delete":        handleMenuDelete,
		"/menus/dismiss-error": handleDismissError,
		"/menus/calendar.ics":  handleCalendarFeed,
		"/menus/week.pdf":      handleWeekPDF,
		"/feedback":            handleFeedback,
		"/admin/audit":         handleAuditTrail,
		"/admin/perf":          handlePerf,
		"/admin/outbox":        handleAdminOutbox,
	}
	for pattern, h := range protected {
		mux.Handle(pattern, middleware.RequireAuth(h))
	}
}

// handleRoot sends visitors to the menus when logged in, else to the login page.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/menus", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
