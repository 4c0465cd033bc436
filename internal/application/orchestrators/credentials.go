package orchestrators

import (
	"context"
	"sync"
	"time"

	"cumeal/internal/adapters/backend"
	"cumeal/internal/domain/session"
)

// RefreshSkew is how close to expiry an access token is refreshed ahead of use.
const RefreshSkew = 30 * time.Second

// SessionCredentials supplies a session's bearer token to the backend client
// and rotates it through ExecuteRefreshSession.
type SessionCredentials struct {
	deps AuthDeps

	mu      sync.Mutex
	sess    session.Session
	expired bool
}

var _ backend.Credentials = (*SessionCredentials)(nil)

// NewSessionCredentials wraps sess.
func NewSessionCredentials(sess session.Session, deps AuthDeps) *SessionCredentials {
	return &SessionCredentials{sess: sess, deps: deps}
}

// AccessToken returns the current bearer token.
func (c *SessionCredentials) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.AccessToken
}

// Session returns the latest state of the wrapped session.
func (c *SessionCredentials) Session() session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Expired reports whether a refresh failed and the session was dropped.
func (c *SessionCredentials) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Refresh rotates the tokens once.
func (c *SessionCredentials) Refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

// EnsureFresh refreshes ahead of time when the JWT access token expires
// within RefreshSkew. Opaque tokens are left alone. Concurrent callers
// sharing these credentials trigger a single refresh.
func (c *SessionCredentials) EnsureFresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expired {
		return backend.ErrSessionExpired
	}
	if c.sess.RefreshToken == "" || !backend.ExpiresWithin(c.sess.AccessToken, c.deps.now(), RefreshSkew) {
		return nil
	}
	_, err := c.refreshLocked(ctx)
	return err
}

// PRE: c.mu is held
func (c *SessionCredentials) refreshLocked(ctx context.Context) (string, error) {
	if c.expired {
		return "", backend.ErrSessionExpired
	}
	updated, err := ExecuteRefreshSession(ctx, c.sess, c.deps)
	if err != nil {
		c.expired = true
		return "", err
	}
	c.sess = updated
	return updated.AccessToken, nil
}
