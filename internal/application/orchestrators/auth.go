package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cumeal/internal/adapters/backend"
	"cumeal/internal/domain/audit"
	"cumeal/internal/domain/session"
)

// AuthBackend is the slice of the backend client used for the session lifecycle.
type AuthBackend interface {
	Login(ctx context.Context, username, password string) (backend.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (backend.Tokens, error)
	Logout(ctx context.Context) error
}

// SessionStoreForAuth defines the store interface needed by the auth orchestrators.
type SessionStoreForAuth interface {
	Create(ctx context.Context, s session.Session) error
	Update(ctx context.Context, s session.Session) error
	Delete(ctx context.Context, token string) error
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Save(ctx context.Context, event audit.Event) error
}

// ErrMissingCredentials is returned before contacting the backend.
var ErrMissingCredentials = errors.New("Username and password are required")

// AuthDeps holds dependencies for the login, logout and refresh orchestrators.
type AuthDeps struct {
	Backend  AuthBackend
	Sessions SessionStoreForAuth
	Audit    AuditRecorder
	Now      func() time.Time
}

func (d AuthDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

// ExecuteLogin authenticates against the backend and opens a local session.
// PRE: none; blank input returns ErrMissingCredentials without a backend call
// POST: on success the session is persisted with the backend tokens
func ExecuteLogin(ctx context.Context, input LoginInput, deps AuthDeps) (session.Session, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return session.Session{}, ErrMissingCredentials
	}

	result, err := deps.Backend.Login(ctx, username, input.Password)
	if err != nil {
		event := "login_failed"
		if errors.Is(err, backend.ErrInvalidCredentials) {
			event = "login_rejected"
		}
		slog.Info("auth_event", "event", event, "username", username, "error", err.Error())
		recordAudit(ctx, deps.Audit, audit.NewEvent("", username, audit.CategorySession, audit.ActionLogin, deps.now()).
			WithSeverity(audit.SeverityWarning).
			WithRequest(input.IPAddress, input.UserAgent).
			WithDescription("Login failed: "+err.Error()))
		return session.Session{}, err
	}

	sess, err := session.New(result.Username, result.ID, result.AccessToken, result.RefreshToken, deps.now())
	if err != nil {
		return session.Session{}, err
	}
	if err := deps.Sessions.Create(ctx, sess); err != nil {
		return session.Session{}, err
	}

	slog.Info("auth_event", "event", "login_success", "username", sess.Username, "refreshable", sess.RefreshToken != "")
	recordAudit(ctx, deps.Audit, audit.NewEvent(sess.AccountID, sess.Username, audit.CategorySession, audit.ActionLogin, deps.now()).
		WithRequest(input.IPAddress, input.UserAgent).
		WithDescription("Logged in"))
	return sess, nil
}

// ExecuteLogout ends the backend session (best effort) and deletes the local one.
// POST: the local session no longer exists, whatever the backend answered
func ExecuteLogout(ctx context.Context, sess session.Session, deps AuthDeps) error {
	if err := deps.Backend.Logout(backend.WithToken(ctx, sess.AccessToken)); err != nil {
		slog.Info("auth_event", "event", "backend_logout_failed", "username", sess.Username, "error", err.Error())
	}
	if err := deps.Sessions.Delete(ctx, sess.Token); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "logout", "username", sess.Username)
	recordAudit(ctx, deps.Audit, audit.NewEventFor(ctx, audit.CategorySession, audit.ActionLogout, deps.now()).
		WithDescription("Logged out"))
	return nil
}

// ExecuteRefreshSession swaps the session's refresh token for a new access token.
// POST: on success the rotated tokens are persisted and returned
// POST: on failure the local session is deleted and backend.ErrSessionExpired returned
func ExecuteRefreshSession(ctx context.Context, sess session.Session, deps AuthDeps) (session.Session, error) {
	if sess.RefreshToken == "" {
		expire(ctx, sess, deps, "no refresh token")
		return session.Session{}, backend.ErrSessionExpired
	}

	tokens, err := deps.Backend.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		expire(ctx, sess, deps, err.Error())
		return session.Session{}, backend.ErrSessionExpired
	}

	updated := sess.WithTokens(tokens.AccessToken, tokens.RefreshToken, deps.now())
	if err := deps.Sessions.Update(ctx, updated); err != nil {
		return session.Session{}, err
	}
	slog.Info("auth_event", "event", "token_refreshed", "username", sess.Username)
	recordAudit(ctx, deps.Audit, audit.NewEvent(sess.AccountID, sess.Username, audit.CategorySession, audit.ActionRefresh, deps.now()).
		WithDescription("Access token refreshed"))
	return updated, nil
}

func expire(ctx context.Context, sess session.Session, deps AuthDeps, reason string) {
	_ = deps.Sessions.Delete(ctx, sess.Token)
	slog.Info("auth_event", "event", "session_expired", "username", sess.Username, "reason", reason)
	recordAudit(ctx, deps.Audit, audit.NewEvent(sess.AccountID, sess.Username, audit.CategorySession, audit.ActionLogout, deps.now()).
		WithSeverity(audit.SeverityWarning).
		WithDescription("Session expired: "+reason))
}

// recordAudit saves e, logging instead of failing the caller.
func recordAudit(ctx context.Context, rec AuditRecorder, e audit.Event) {
	if rec == nil {
		return
	}
	if err := rec.Save(ctx, e); err != nil {
		slog.Error("audit_save_failed", "category", string(e.Category), "action", string(e.Action), "error", err.Error())
	}
}
