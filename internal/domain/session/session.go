package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// Lifetime is how long a local admin session stays valid after login.
const Lifetime = 24 * time.Hour

// ErrNotFound is returned when no live session matches a token.
var ErrNotFound = errors.New("session not found")

// Session is a logged-in administrator. Token is the opaque cookie value;
// AccessToken and RefreshToken are the backend's bearer credentials.
type Session struct {
	Token        string
	Username     string
	AccountID    string
	AccessToken  string
	RefreshToken string
	CreatedAt    time.Time
	RefreshedAt  time.Time
}

// New creates a session with a fresh random token.
// PRE: accessToken is non-empty
// POST: Token is 64 hex chars, CreatedAt == RefreshedAt == now
func New(username, accountID, accessToken, refreshToken string, now time.Time) (Session, error) {
	tok, err := GenerateToken()
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:        tok,
		Username:     username,
		AccountID:    accountID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CreatedAt:    now,
		RefreshedAt:  now,
	}, nil
}

// Expired reports whether the session is older than Lifetime at now.
func (s Session) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > Lifetime
}

// WithTokens returns a copy holding rotated backend credentials.
// An empty refreshToken keeps the current one.
func (s Session) WithTokens(accessToken, refreshToken string, now time.Time) Session {
	s.AccessToken = accessToken
	if refreshToken != "" {
		s.RefreshToken = refreshToken
	}
	s.RefreshedAt = now
	return s
}

// DisplayName is the name shown in the page header.
func (s Session) DisplayName() string {
	if s.Username != "" {
		return s.Username
	}
	return "admin"
}

// GenerateToken returns 32 random bytes hex-encoded.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
