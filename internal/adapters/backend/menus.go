package backend

import (
	"context"
	"net/http"
	"net/url"

	"cumeal/internal/domain/menu"
)

// ListAll returns every menu (GET /menu).
func (c *Client) ListAll(ctx context.Context) ([]menu.WireRecord, error) {
	var out []menu.WireRecord
	err := c.do(ctx, call{
		method: http.MethodGet, path: "/menu", route: "/menu",
		failure: "Failed to fetch menus",
	}, &out)
	return out, err
}

// ListWeek returns the menus of the current week (GET /menu/week).
func (c *Client) ListWeek(ctx context.Context) ([]menu.WireRecord, error) {
	var out []menu.WireRecord
	err := c.do(ctx, call{
		method: http.MethodGet, path: "/menu/week", route: "/menu/week",
		failure: "Failed to fetch weekly menu",
	}, &out)
	return out, err
}

// GetByDate returns the menu for one YYYY-MM-DD date (GET /menu/date/:date).
func (c *Client) GetByDate(ctx context.Context, date string) (menu.WireRecord, error) {
	var out menu.WireRecord
	err := c.do(ctx, call{
		method: http.MethodGet, path: "/menu/date/" + url.PathEscape(date), route: "/menu/date/:date",
		failure: "Failed to fetch menu",
	}, &out)
	return out, err
}

// Create stores a new menu (POST /menu). The payload must carry a date.
func (c *Client) Create(ctx context.Context, p menu.Payload) (menu.WireRecord, error) {
	var out menu.WireRecord
	err := c.do(ctx, call{
		method: http.MethodPost, path: "/menu", route: "/menu", body: p,
		failure: "Failed to create menu",
	}, &out)
	return out, err
}

// Update replaces the meals of an existing menu (PUT /menu/:id).
// The date is immutable and never sent.
func (c *Client) Update(ctx context.Context, id string, p menu.Payload) (menu.WireRecord, error) {
	p.Date = ""
	var out menu.WireRecord
	err := c.do(ctx, call{
		method: http.MethodPut, path: "/menu/" + url.PathEscape(id), route: "/menu/:id", body: p,
		failure: "Failed to update menu",
	}, &out)
	return out, err
}

// Delete removes a menu (DELETE /menu/:id).
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, call{
		method: http.MethodDelete, path: "/menu/" + url.PathEscape(id), route: "/menu/:id",
		failure: "Failed to delete menu",
	}, nil)
}
