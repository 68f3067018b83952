package adapter

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies a failed server interaction. Every error produced by
// the request client is an [*APIError] carrying exactly one kind.
type ErrorKind string

const (
	// KindValidation marks request payloads the server rejected (HTTP 400/422).
	KindValidation ErrorKind = "validation"

	// KindNetwork marks transport failures: connection refused, DNS, timeouts.
	KindNetwork ErrorKind = "network"

	// KindAuth marks authentication failures (HTTP 401). AuthReason narrows
	// the cause.
	KindAuth ErrorKind = "auth"

	// KindServer marks server-side failures (HTTP 5xx).
	KindServer ErrorKind = "server"

	// KindConflict marks optimistic-concurrency rejections (HTTP 409).
	KindConflict ErrorKind = "conflict"

	// KindProtocol marks responses that violate the wire contract:
	// non-JSON bodies, envelope shape violations, unmapped statuses.
	KindProtocol ErrorKind = "protocol"
)

// AuthReason narrows a KindAuth error.
type AuthReason string

const (
	// AuthReasonInvalidCredentials: the email/password pair was rejected.
	AuthReasonInvalidCredentials AuthReason = "invalid-credentials"

	// AuthReasonTokenExpired: the access token is no longer accepted and a
	// refresh is required.
	AuthReasonTokenExpired AuthReason = "token-expired"

	// AuthReasonServer: the server reported an authentication failure
	// without a recognized code.
	AuthReasonServer AuthReason = "server"
)

// Kind sentinels. An [*APIError] unwraps to exactly one of these, so callers
// classify with [errors.Is] instead of inspecting the struct.
var (
	ErrValidation = errors.New("validation rejected")
	ErrNetwork    = errors.New("network unavailable")
	ErrAuth       = errors.New("authentication failed")
	ErrServer     = errors.New("server failure")
	ErrConflict   = errors.New("conflict")
	ErrProtocol   = errors.New("protocol violation")
)

// Realtime channel errors.
var (
	// ErrRequestTimeout: no correlated response frame arrived in time.
	ErrRequestTimeout = errors.New("realtime request timed out")

	// ErrTransportClosed: the transport was closed deliberately and accepts
	// no further frames.
	ErrTransportClosed = errors.New("realtime transport closed")
)

// APIError is the normalized form of every failed server interaction.
// The zero HTTPStatus means the request never reached the server.
type APIError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Message is the human-readable description, server-provided when
	// available.
	Message string

	// Details itemizes field-level problems for validation errors.
	Details []string

	// RequestID is the server-side correlation identifier, if reported.
	RequestID string

	// HTTPStatus is the response status code, 0 for transport failures.
	HTTPStatus int

	// Timestamp is when the server produced the error, or when the client
	// observed the failure.
	Timestamp time.Time

	// AuthReason is set only when Kind is KindAuth.
	AuthReason AuthReason
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.AuthReason != "" {
		b.WriteString("/" + string(e.AuthReason))
	}
	b.WriteString(": " + e.Message)
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&b, " (status %d)", e.HTTPStatus)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " (request %s)", e.RequestID)
	}

	return b.String()
}

// Unwrap maps Kind onto its sentinel so errors.Is works.
func (e *APIError) Unwrap() error {
	switch e.Kind {
	case KindValidation:
		return ErrValidation
	case KindNetwork:
		return ErrNetwork
	case KindAuth:
		return ErrAuth
	case KindServer:
		return ErrServer
	case KindConflict:
		return ErrConflict
	default:
		return ErrProtocol
	}
}

// Transient reports whether retrying the same request may succeed.
// Only network and server failures are transient; everything else is a
// property of the request itself.
func (e *APIError) Transient() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

// AsAPIError extracts the normalized error from err, if present.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)

	return apiErr, ok
}
