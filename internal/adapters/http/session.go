package web

import (
	"context"
	"errors"
	"net/http"

	"cumeal/internal/adapters/backend"
	"cumeal/internal/adapters/http/middleware"
	"cumeal/internal/application/menuview"
	"cumeal/internal/application/orchestrators"
	"cumeal/internal/domain/audit"
	"cumeal/internal/domain/session"
)

// adminRequest bundles what a protected handler needs for one request.
type adminRequest struct {
	ctx   context.Context
	sess  session.Session
	creds menuview.Credentials
	ctrl  *menuview.Controller
}

func authDeps() orchestrators.AuthDeps {
	return orchestrators.AuthDeps{
		Backend:  api,
		Sessions: stores.Sessions,
		Audit:    stores.Audit,
		Now:      timeNow,
	}
}

// beginAdmin attaches the session's backend credentials and audit actor to the
// request context and refreshes a nearly expired access token. Credentials are
// shared by all requests of a session so a refresh happens once.
// Returns false after redirecting to /login when the session cannot continue.
func beginAdmin(w http.ResponseWriter, r *http.Request) (adminRequest, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return adminRequest{}, false
	}
	now := timeNow()
	creds := registry.Credentials(sess.Token, now, func() menuview.Credentials {
		return orchestrators.NewSessionCredentials(sess, authDeps())
	})
	ctx := backend.WithCredentials(r.Context(), creds)
	ctx = audit.WithActor(ctx, audit.Actor{
		ID:        sess.AccountID,
		Name:      sess.Username,
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	ar := adminRequest{ctx: ctx, sess: sess, creds: creds, ctrl: registry.Get(sess.Token, now)}
	if err := creds.EnsureFresh(ctx); err != nil {
		ar.sessionLost(w, r, err)
		return adminRequest{}, false
	}
	return ar, true
}

// sessionLost reports whether err ended the session, and if so drops the
// controller, clears the cookie and redirects to the login page.
func (ar adminRequest) sessionLost(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrSessionExpired) && !ar.creds.Expired() {
		return false
	}
	registry.Drop(ar.sess.Token)
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login?expired=1", http.StatusSeeOther)
	return true
}
