package api

import (
	"errors"
	"fmt"
)

// AuthError indicates that the backend rejected the session token. It
// is returned when a 401 response is received; the persisted token has
// already been cleared by then.
type AuthError struct {
	Method  string
	Path    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authentication failed (401) on %s %s", e.Method, e.Path)
	}
	return fmt.Sprintf("authentication failed (401) on %s %s: %s", e.Method, e.Path, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	// Message is the backend's "message" field, or the raw body.
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d) on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	if IsAuthError(err) {
		return 401
	}
	return 0
}

// Message returns the backend-provided message carried by err, falling
// back to err.Error().
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// errorResponse is the backend's error body.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
