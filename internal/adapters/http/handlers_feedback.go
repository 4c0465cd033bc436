package web

import (
	"net/http"

	"cumeal/internal/application/projections"
)

// handleFeedback renders the survey dashboard (GET /feedback)
// POST: on a backend failure the page shows the retry banner instead of data
func handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ar, ok := beginAdmin(w, r)
	if !ok {
		return
	}

	result, err := projections.QueryFeedbackDashboard(ar.ctx, projections.FeedbackDashboardDeps{Source: api})
	if err != nil && ar.sessionLost(w, r, err) {
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}

	if !isHTMLRequest(r) {
		writeJSON(w, status, map[string]any{
			"entries": result.Entries,
			"stats":   result.Stats,
			"error":   result.Error,
		})
		return
	}
	renderTemplateStatus(w, r, status, "feedback.html", map[string]any{
		"Title":  "Feedback Dashboard",
		"Result": result,
	})
}
