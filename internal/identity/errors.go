package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/nhle/leave-management/internal/api"
)

// Kind classifies a sign-in failure by its cause.
type Kind int

const (
	// KindGeneric is any failure not covered by another kind.
	KindGeneric Kind = iota
	// KindInterrupted means the interactive sign-in was declined,
	// expired or cancelled.
	KindInterrupted
	// KindDomainNotAllowed means the account's email domain is refused.
	KindDomainNotAllowed
)

func (k Kind) String() string {
	switch k {
	case KindInterrupted:
		return "interrupted"
	case KindDomainNotAllowed:
		return "domain_not_allowed"
	default:
		return "generic"
	}
}

var (
	// ErrNotInitialized is returned by Login before Initialize succeeded.
	ErrNotInitialized = errors.New("identity: microsoft sign-in is not initialized")
	// ErrNotConfigured is returned by Initialize without a client ID.
	ErrNotConfigured = errors.New("identity: microsoft client id is not configured")
)

// Error is a classified sign-in failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("microsoft sign-in: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, KindGeneric when it is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneric
}

// UserMessage returns the text shown to the user for a sign-in failure.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotInitialized):
		return "Authentication service is still initializing. Please try again in a moment."
	case errors.Is(err, ErrNotConfigured):
		return "Microsoft sign-in is not configured."
	}

	switch KindOf(err) {
	case KindInterrupted:
		return "Microsoft sign-in was cancelled or timed out. Please try again."
	case KindDomainNotAllowed:
		return "Your email domain is not allowed in production. Please use a company email address."
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Authentication failed. Please try again."
}

// deviceFlowInterrupted lists the token endpoint error codes that mean
// the user did not finish signing in.
var deviceFlowInterrupted = map[string]bool{
	"authorization_declined": true,
	"access_denied":          true,
	"expired_token":          true,
	"bad_verification_code":  true,
}

// classify wraps err with the Kind that matches its cause.
func classify(op string, err error) *Error {
	kind := KindGeneric

	var retrieveErr *oauth2.RetrieveError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindInterrupted
	case errors.As(err, &retrieveErr) && deviceFlowInterrupted[retrieveErr.ErrorCode]:
		kind = KindInterrupted
	case mentionsDomain(api.Message(err)):
		kind = KindDomainNotAllowed
	}

	return &Error{Kind: kind, Op: op, Err: err}
}

// mentionsDomain matches the backend's domain-restriction messages.
func mentionsDomain(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "domain") || strings.Contains(msg, "email addresses are allowed")
}
