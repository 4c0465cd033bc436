// Package menuview owns the state behind the menu admin pages: which list is
// shown, the loaded menus, the selected record and the in-progress draft.
package menuview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cumeal/internal/adapters/backend"
	"cumeal/internal/domain/menu"
	"cumeal/internal/domain/menuform"
)

// View is the active page of the menu admin.
type View string

const (
	ViewWeek   View = "week"
	ViewAll    View = "all"
	ViewCreate View = "create"
	ViewEdit   View = "edit"
)

// Messages shown in the error banner for checks that never reach the backend.
const (
	MsgDateRequired = "Date is required"
	MsgNoSelection  = "No menu selected for editing"
	MsgIDRequired   = "Menu id is required"
)

var (
	// ErrBusy is returned when a load or mutation is already in flight.
	ErrBusy = errors.New("menuview: another operation is in progress")
	// ErrValidation is returned when input is rejected before any network call.
	ErrValidation = errors.New("menuview: validation failed")
	// ErrNotConfirmed is returned by RequestDelete without an explicit confirmation.
	ErrNotConfirmed = errors.New("menuview: deletion not confirmed")
	// ErrUnknownMenu is returned when an id is not among the loaded menus.
	ErrUnknownMenu = errors.New("menuview: menu not loaded")
)

// MenuAPI is the slice of the backend client the controller needs.
type MenuAPI interface {
	ListWeek(ctx context.Context) ([]menu.WireRecord, error)
	ListAll(ctx context.Context) ([]menu.WireRecord, error)
	GetByDate(ctx context.Context, date string) (menu.WireRecord, error)
	Create(ctx context.Context, p menu.Payload) (menu.WireRecord, error)
	Update(ctx context.Context, id string, p menu.Payload) (menu.WireRecord, error)
	Delete(ctx context.Context, id string) error
}

// Observer is told about every mutation the backend accepted.
type Observer interface {
	MenuChanged(ctx context.Context, change Change)
}

// ChangeKind names a mutation.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// Change describes an accepted mutation. Payload is empty for deletions.
type Change struct {
	Kind    ChangeKind
	ID      string
	Date    string
	Payload menu.Payload
}

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	Menus    []menu.Record
	View     View
	ListView View
	Selected *menu.Record
	Draft    menuform.Draft
	Loading  bool
	Error    string
	Refs     menu.ReferenceDates
}

// Controller is the single owner of one admin session's menu state.
// INVARIANT: Selected is non-nil only while View == ViewEdit
// INVARIANT: Loading is true only while a backend call started by this controller runs
type Controller struct {
	api      MenuAPI
	observer Observer

	mu       sync.Mutex
	menus    []menu.Record
	view     View
	listView View
	selected *menu.Record
	draft    menuform.Draft
	loading  bool
	err      string
	refs     menu.ReferenceDates
}

// New creates a controller showing an empty week view.
// PRE: api is non-nil; observer may be nil
func New(api MenuAPI, refs menu.ReferenceDates, observer Observer) *Controller {
	return &Controller{
		api:      api,
		observer: observer,
		menus:    []menu.Record{},
		view:     ViewWeek,
		listView: ViewWeek,
		draft:    menuform.New(refs.Today),
		refs:     refs,
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Menus:    append([]menu.Record(nil), c.menus...),
		View:     c.view,
		ListView: c.listView,
		Draft:    c.draft,
		Loading:  c.loading,
		Error:    c.err,
		Refs:     c.refs,
	}
	if c.selected != nil {
		sel := *c.selected
		s.Selected = &sel
	}
	return s
}

// LoadWeek fetches the current week's menus and shows the week view.
func (c *Controller) LoadWeek(ctx context.Context) error {
	return c.load(ctx, ViewWeek)
}

// LoadAll fetches every menu and shows the all-menus view.
func (c *Controller) LoadAll(ctx context.Context) error {
	return c.load(ctx, ViewAll)
}

func (c *Controller) load(ctx context.Context, view View) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.finish()
	return c.fetch(ctx, view)
}

// fetch replaces the list on success. The caller holds the loading flag.
// POST: on failure menus are unchanged and the error banner is set
func (c *Controller) fetch(ctx context.Context, view View) error {
	list := c.api.ListWeek
	if view == ViewAll {
		list = c.api.ListAll
	}
	raw, err := list(ctx)
	if err != nil {
		c.fail(err)
		slog.Info("menu_event", "event", "load_failed", "view", string(view), "error", err.Error())
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.menus = present(raw, c.refs)
	c.view = view
	c.listView = view
	c.selected = nil
	return nil
}

// presentMenus is a variable for testability.
var presentMenus = menu.Present

// present normalises records. A panic inside normalisation yields an empty list.
func present(raw []menu.WireRecord, refs menu.ReferenceDates) (out []menu.Record) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("menu_normalize_panic", "panic", fmt.Sprint(r))
			out = []menu.Record{}
		}
	}()
	return presentMenus(raw, refs)
}

// LoadDay fetches the menu for one date without touching the list state.
func (c *Controller) LoadDay(ctx context.Context, date string) (menu.Record, error) {
	c.mu.Lock()
	refs := c.refs
	c.mu.Unlock()

	w, err := c.api.GetByDate(ctx, date)
	if err != nil {
		return menu.Record{}, err
	}
	out := present([]menu.WireRecord{w}, refs)
	if len(out) == 0 {
		return menu.Record{}, fmt.Errorf("%w: menu for %s could not be read", backend.ErrMalformedResponse, date)
	}
	return out[0], nil
}

// BeginCreate opens the create form with a draft dated today.
func (c *Controller) BeginCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = ViewCreate
	c.selected = nil
	c.draft = menuform.New(c.refs.Today)
	c.err = ""
}

// SelectForEdit opens the edit form for record. A nil record is a no-op.
func (c *Controller) SelectForEdit(record *menu.Record) {
	if record == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	sel := *record
	c.selected = &sel
	c.draft = menuform.HydrateFrom(&sel, c.refs.Today)
	c.view = ViewEdit
	c.err = ""
}

// SelectForEditByID opens the edit form for a loaded menu.
func (c *Controller) SelectForEditByID(id string) error {
	c.mu.Lock()
	var found *menu.Record
	for i := range c.menus {
		if c.menus[i].ID == id {
			rec := c.menus[i]
			found = &rec
			break
		}
	}
	c.mu.Unlock()

	if found == nil {
		return ErrUnknownMenu
	}
	c.SelectForEdit(found)
	return nil
}

// Find returns a loaded menu by id.
func (c *Controller) Find(id string) (menu.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.menus {
		if m.ID == id {
			return m, true
		}
	}
	return menu.Record{}, false
}

// EditDraft stores an in-progress draft between form round trips.
func (c *Controller) EditDraft(draft menuform.Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = draft
}

// Cancel leaves the form and returns to the week view.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// DismissError clears the error banner.
func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = ""
}

// SetReferenceDates swaps in new reference dates and reclassifies loaded menus.
func (c *Controller) SetReferenceDates(refs menu.ReferenceDates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs = refs
	c.menus = menu.Reclassify(c.menus, refs)
	if c.selected != nil {
		sel := menu.Reclassify([]menu.Record{*c.selected}, refs)[0]
		c.selected = &sel
	}
}

// ReferenceDates returns the dates the controller classifies against.
func (c *Controller) ReferenceDates() menu.ReferenceDates {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs
}

// SubmitCreate validates draft and creates the menu.
// POST: on success the week list is reloaded, the draft is reset and View == ViewWeek
// POST: a blank date returns ErrValidation without a backend call
func (c *Controller) SubmitCreate(ctx context.Context, draft menuform.Draft) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.draft = draft
	if !draft.HasDate() {
		c.err = MsgDateRequired
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrValidation, MsgDateRequired)
	}
	c.loading = true
	c.err = ""
	c.mu.Unlock()
	defer c.finish()

	payload := draft.ToSubmissionPayload(true)
	created, err := c.api.Create(ctx, payload)
	if err != nil {
		c.fail(err)
		slog.Info("menu_event", "event", "create_failed", "date", payload.Date, "error", err.Error())
		return err
	}
	slog.Info("menu_event", "event", "menu_created", "id", created.ID, "date", payload.Date)
	c.notify(ctx, Change{Kind: ChangeCreated, ID: created.ID, Date: payload.Date, Payload: payload})

	c.afterMutation(ctx, ViewWeek)
	return nil
}

// SubmitUpdate saves draft over the selected menu. The date is never sent.
// POST: on success the week list is reloaded, the draft is reset and View == ViewWeek
// POST: without a selection returns ErrValidation without a backend call
func (c *Controller) SubmitUpdate(ctx context.Context, draft menuform.Draft) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.draft = draft
	if c.selected == nil || c.selected.ID == "" {
		c.err = MsgNoSelection
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrValidation, MsgNoSelection)
	}
	selected := *c.selected
	c.loading = true
	c.err = ""
	c.mu.Unlock()
	defer c.finish()

	payload := draft.ToSubmissionPayload(false)
	if _, err := c.api.Update(ctx, selected.ID, payload); err != nil {
		c.fail(err)
		slog.Info("menu_event", "event", "update_failed", "id", selected.ID, "error", err.Error())
		return err
	}
	slog.Info("menu_event", "event", "menu_updated", "id", selected.ID, "date", selected.Date)
	c.notify(ctx, Change{Kind: ChangeUpdated, ID: selected.ID, Date: selected.Date, Payload: payload})

	c.afterMutation(ctx, ViewWeek)
	return nil
}

// RequestDelete deletes a menu once the caller confirmed the intent.
// POST: without confirmation returns ErrNotConfirmed and changes nothing
// POST: on success the active list (week or all) is reloaded
func (c *Controller) RequestDelete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	if id == "" {
		c.err = MsgIDRequired
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrValidation, MsgIDRequired)
	}
	date := ""
	for _, m := range c.menus {
		if m.ID == id {
			date = m.Date
			break
		}
	}
	active := c.listView
	c.loading = true
	c.err = ""
	c.mu.Unlock()
	defer c.finish()

	if err := c.api.Delete(ctx, id); err != nil {
		c.fail(err)
		slog.Info("menu_event", "event", "delete_failed", "id", id, "error", err.Error())
		return err
	}
	slog.Info("menu_event", "event", "menu_deleted", "id", id, "date", date)
	c.notify(ctx, Change{Kind: ChangeDeleted, ID: id, Date: date})

	c.afterMutation(ctx, active)
	return nil
}

// afterMutation reloads list and resets the form. A failed reload only sets
// the banner; the mutation itself already succeeded.
func (c *Controller) afterMutation(ctx context.Context, list View) {
	_ = c.fetch(ctx, list)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.view = list
}

// reset returns to the week view with a fresh draft. Caller holds mu.
func (c *Controller) reset() {
	c.selected = nil
	c.draft = c.draft.Reset(c.refs.Today)
	c.view = ViewWeek
}

func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return ErrBusy
	}
	c.loading = true
	c.err = ""
	return nil
}

func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = Message(err)
}

func (c *Controller) notify(ctx context.Context, ch Change) {
	if c.observer != nil {
		c.observer.MenuChanged(ctx, ch)
	}
}

// Message turns an error into the text shown in the banner.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, backend.ErrMalformedResponse):
		return "Unexpected response from the menu service. Please try again."
	}
	return err.Error()
}
