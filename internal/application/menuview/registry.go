package menuview

import (
	"context"
	"sync"
	"time"

	"cumeal/internal/adapters/backend"
	"cumeal/internal/domain/menu"
)

// Credentials are the backend credentials a session's requests share.
type Credentials interface {
	backend.Credentials
	EnsureFresh(ctx context.Context) error
	Expired() bool
}

// Registry keeps one Controller and one set of Credentials per admin session token.
type Registry struct {
	api      MenuAPI
	observer Observer

	mu      sync.Mutex
	refs    menu.ReferenceDates
	entries map[string]*entry
}

type entry struct {
	ctrl     *Controller
	creds    Credentials
	lastUsed time.Time
}

// NewRegistry creates an empty registry classifying against refs.
func NewRegistry(api MenuAPI, refs menu.ReferenceDates, observer Observer) *Registry {
	return &Registry{
		api:      api,
		observer: observer,
		refs:     refs,
		entries:  make(map[string]*entry),
	}
}

// Get returns the controller for token, creating it on first use.
// PRE: token is non-empty
func (r *Registry) Get(token string, now time.Time) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touch(token, now).ctrl
}

// Credentials returns the credentials shared by token's requests, building
// them with create on first use.
// PRE: token is non-empty
func (r *Registry) Credentials(token string, now time.Time, create func() Credentials) Credentials {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.touch(token, now)
	if e.creds == nil {
		e.creds = create()
	}
	return e.creds
}

// PRE: r.mu is held
func (r *Registry) touch(token string, now time.Time) *entry {
	e, ok := r.entries[token]
	if !ok {
		e = &entry{ctrl: New(r.api, r.refs, r.observer)}
		r.entries[token] = e
	}
	e.lastUsed = now
	return e
}

// Drop forgets the controller and credentials for token (logout).
func (r *Registry) Drop(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, token)
}

// Len returns how many sessions hold a controller.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// ReferenceDates returns the dates new controllers start with.
func (r *Registry) ReferenceDates() menu.ReferenceDates {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs
}

// SetReferenceDates pushes refs into every controller.
func (r *Registry) SetReferenceDates(refs menu.ReferenceDates) {
	r.mu.Lock()
	r.refs = refs
	ctrls := make([]*Controller, 0, len(r.entries))
	for _, e := range r.entries {
		ctrls = append(ctrls, e.ctrl)
	}
	r.mu.Unlock()

	for _, c := range ctrls {
		c.SetReferenceDates(refs)
	}
}

// Sweep drops controllers unused for longer than idle and returns how many went.
func (r *Registry) Sweep(now time.Time, idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for tok, e := range r.entries {
		if now.Sub(e.lastUsed) > idle {
			delete(r.entries, tok)
			n++
		}
	}
	return n
}
