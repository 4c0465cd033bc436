package backend

import (
	"context"
	"net/http"

	"cumeal/internal/domain/feedback"
)

// ListFeedback returns every survey response (GET /feedback).
func (c *Client) ListFeedback(ctx context.Context) ([]feedback.Entry, error) {
	var out []feedback.Entry
	err := c.do(ctx, call{
		method: http.MethodGet, path: "/feedback", route: "/feedback",
		failure: "Failed to fetch feedback data",
	}, &out)
	return out, err
}

// FeedbackStats returns the survey aggregate (GET /feedback/stats).
func (c *Client) FeedbackStats(ctx context.Context) (feedback.Stats, error) {
	var out feedback.Stats
	err := c.do(ctx, call{
		method: http.MethodGet, path: "/feedback/stats", route: "/feedback/stats",
		failure: "Failed to fetch statistics",
	}, &out)
	return out, err
}
