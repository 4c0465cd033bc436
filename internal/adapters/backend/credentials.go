package backend

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials supplies the bearer token for outbound calls and can rotate
// it once when the backend answers 401.
type Credentials interface {
	AccessToken() string
	// Refresh obtains a new access token. It is called at most once per request.
	Refresh(ctx context.Context) (string, error)
}

type credentialsKey struct{}

// WithCredentials attaches credentials to ctx for every call made with it.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// WithToken attaches a fixed bearer token that cannot be refreshed.
func WithToken(ctx context.Context, token string) context.Context {
	return WithCredentials(ctx, staticToken(token))
}

func credentialsFrom(ctx context.Context) Credentials {
	creds, _ := ctx.Value(credentialsKey{}).(Credentials)
	return creds
}

type staticToken string

func (t staticToken) AccessToken() string { return string(t) }

func (t staticToken) Refresh(context.Context) (string, error) {
	return "", ErrSessionExpired
}

// TokenExpiry reads the exp claim of a JWT access token without verifying
// its signature; only the backend can verify it. ok is false for opaque
// tokens or tokens without exp.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	t, err := claims.GetExpirationTime()
	if err != nil || t == nil {
		return time.Time{}, false
	}
	return t.Time, true
}

// ExpiresWithin reports whether a JWT access token expires before now+skew.
// Opaque tokens never report expiry.
func ExpiresWithin(token string, now time.Time, skew time.Duration) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return !exp.After(now.Add(skew))
}
