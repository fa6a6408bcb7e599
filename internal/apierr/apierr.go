// Package apierr defines the closed set of error kinds produced by the
// aggregation core and their mapping to HTTP status codes.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one of the failure classes the service can produce.
type Kind int

const (
	// KindUnknownChain is returned for registry lookups against a chain id
	// that is not configured.
	KindUnknownChain Kind = iota

	// KindUnknownAddressKey is returned when a chain is known but the
	// requested address key is not.
	KindUnknownAddressKey

	// KindContractRead covers RPC failures and ABI decode faults, including
	// flattened-array length mismatches.
	KindContractRead

	// KindUpstreamQuery covers subgraph transport and GraphQL-level errors.
	KindUpstreamQuery

	// KindValidation covers client-supplied parameters outside their
	// enumerated legal set.
	KindValidation
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnknownChain:
		return "UnknownChain"
	case KindUnknownAddressKey:
		return "UnknownAddressKey"
	case KindContractRead:
		return "ContractReadError"
	case KindUpstreamQuery:
		return "UpstreamQueryError"
	case KindValidation:
		return "ValidationError"
	}
	return "UnknownError"
}

// Status returns the HTTP status code the kind maps to at the API boundary.
func (k Kind) Status() int {
	if k == KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error is the single structured error type crossing package boundaries.
// Handlers resolve it to an HTTP response exactly once.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Status returns the HTTP status for this error.
func (e *Error) Status() int { return e.Kind.Status() }

// New creates an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind with an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// StatusOf resolves the HTTP status for an arbitrary error, defaulting to 500
// for anything outside the closed set.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status()
	}
	return http.StatusInternalServerError
}
