package projections

import (
	"context"
	"log/slog"
	"sync"

	"cumeal/internal/domain/feedback"
)

// MsgDashboardFailed is shown in place of the dashboard when either fetch fails.
const MsgDashboardFailed = "Failed to load dashboard data. Please try again."

// Pie geometry in SVG user units.
const (
	chartCenter = 100
	chartRadius = 90
)

// FeedbackDashboardDeps holds dependencies for QueryFeedbackDashboard.
type FeedbackDashboardDeps struct {
	Source FeedbackSource
}

// FeedbackDashboardResult carries everything the dashboard page renders.
type FeedbackDashboardResult struct {
	Entries []feedback.Entry
	Stats   feedback.Stats
	Chart   feedback.PieChart
	Error   string
}

// Empty reports whether there is nothing to tabulate.
func (r FeedbackDashboardResult) Empty() bool {
	return len(r.Entries) == 0
}

// QueryFeedbackDashboard fetches the entries and the aggregate concurrently.
// A failure of either leaves Entries and Stats zero and sets Error; the
// returned error is the first failure for logging.
// POST: Chart is derived from Stats, never from Entries
func QueryFeedbackDashboard(ctx context.Context, deps FeedbackDashboardDeps) (FeedbackDashboardResult, error) {
	var (
		wg         sync.WaitGroup
		entries    []feedback.Entry
		stats      feedback.Stats
		entriesErr error
		statsErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		entries, entriesErr = deps.Source.ListFeedback(ctx)
	}()
	go func() {
		defer wg.Done()
		stats, statsErr = deps.Source.FeedbackStats(ctx)
	}()
	wg.Wait()

	err := entriesErr
	if err == nil {
		err = statsErr
	}
	if err != nil {
		slog.Warn("feedback_dashboard_failed", "error", err)
		empty := feedback.Stats{}
		return FeedbackDashboardResult{
			Stats: empty,
			Chart: feedback.NewPieChart(feedback.ChartSlices(empty), chartCenter, chartCenter, chartRadius),
			Error: MsgDashboardFailed,
		}, err
	}

	return FeedbackDashboardResult{
		Entries: entries,
		Stats:   stats,
		Chart:   feedback.NewPieChart(feedback.ChartSlices(stats), chartCenter, chartCenter, chartRadius),
	}, nil
}
