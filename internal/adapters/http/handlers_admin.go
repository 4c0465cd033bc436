package web

import (
	"net/http"
	"strconv"
	"time"

	"cumeal/internal/application/projections"
	"cumeal/internal/domain/outbox"
)

// perfWindow is how far back /admin/perf aggregates.
const perfWindow = 15 * time.Minute

// handleAuditTrail renders the local audit trail (GET /admin/audit)
// PRE: authenticated session
// POST: Renders one page of events with optional filters
func handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := projections.ParseAuditTrailQuery(r.URL.Query())
	result, err := projections.QueryAuditTrail(r.Context(), query, projections.AuditTrailDeps{Store: stores.Audit})
	if err != nil {
		internalError(w, err)
		return
	}

	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"events": result.Events,
			"page":   result.Page,
		})
		return
	}
	renderTemplate(w, r, "audit.html", map[string]any{
		"Title":  "Audit Trail",
		"Result": result,
	})
}

// handlePerf reports request, query and upstream timings (GET /admin/perf?top=N)
func handlePerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if perfCollector == nil {
		http.Error(w, "perf collection disabled", http.StatusNotFound)
		return
	}
	top := 10
	if n, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil && n > 0 && n <= 100 {
		top = n
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(timeNow().Add(-perfWindow), top))
}

// outboxItem is an outbox entry without its payload, which carries recipient addresses.
type outboxItem struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	Attempts        int       `json:"attempts"`
	MaxAttempts     int       `json:"max_attempts"`
	LastAttemptedAt time.Time `json:"last_attempted_at"`
	CreatedAt       time.Time `json:"created_at"`
	LastError       string    `json:"last_error,omitempty"`
}

// handleAdminOutbox reports queued notification emails (GET /admin/outbox?limit=N)
// POST: JSON with per-status counts and the oldest pending entries
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if stores.Outbox == nil {
		http.Error(w, "notification outbox disabled", http.StatusNotFound)
		return
	}
	ctx := r.Context()

	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}

	counts := make(map[string]int, 3)
	for _, status := range []string{outbox.StatusPending, outbox.StatusSent, outbox.StatusFailed} {
		n, err := stores.Outbox.CountByStatus(ctx, status)
		if err != nil {
			internalError(w, err)
			return
		}
		counts[status] = n
	}

	entries, err := stores.Outbox.ListPending(ctx, limit)
	if err != nil {
		internalError(w, err)
		return
	}
	pending := make([]outboxItem, 0, len(entries))
	for _, e := range entries {
		pending = append(pending, outboxItem{
			ID: e.ID, Kind: e.Kind, Attempts: e.Attempts, MaxAttempts: e.MaxAttempts,
			LastAttemptedAt: e.LastAttemptedAt, CreatedAt: e.CreatedAt, LastError: e.LastError,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"counts":  counts,
		"pending": pending,
	})
}
