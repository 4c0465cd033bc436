package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedResponse means a 2xx body could not be decoded into the expected shape.
	ErrMalformedResponse = errors.New("malformed response from menu service")

	// ErrSessionExpired means the backend rejected the credentials and refreshing failed.
	ErrSessionExpired = errors.New("Session expired. Please login again.")

	// ErrInvalidCredentials matches a 400 or 401 answer to POST /auth/login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// APIError is a non-2xx answer from the backend.
// Message is the body's "message" field when present, else an operation default.
type APIError struct {
	Status  int
	Message string
	login   bool
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Is lets errors.Is match ErrInvalidCredentials for rejected logins.
func (e *APIError) Is(target error) bool {
	return target == ErrInvalidCredentials && e.login &&
		(e.Status == http.StatusUnauthorized || e.Status == http.StatusBadRequest)
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
