package adapter

import (
	"net/http"
	"strings"
	"time"

	"github.com/MKhiriev/go-chat-sync/models"
)

// networkError normalizes a transport-level failure (dial, DNS, timeout).
func networkError(err error) *APIError {
	return &APIError{
		Kind:      KindNetwork,
		Message:   err.Error(),
		Timestamp: time.Now(),
	}
}

// protocolError normalizes a response that violates the wire contract.
func protocolError(status int, message string) *APIError {
	return &APIError{
		Kind:       KindProtocol,
		Message:    message,
		HTTPStatus: status,
		Timestamp:  time.Now(),
	}
}

// mapEnvelopeError normalizes a failed response from its HTTP status and the
// error block of the envelope. body may be nil when the server omitted it;
// missing fields fall back to the HTTP status text.
func mapEnvelopeError(status int, body *models.APIErrorBody) *APIError {
	apiErr := &APIError{
		Kind:       kindFromStatus(status),
		HTTPStatus: status,
		Timestamp:  time.Now(),
	}

	if body != nil {
		apiErr.Message = body.Message
		apiErr.Details = body.Details
		apiErr.RequestID = body.RequestID
		if !body.Timestamp.IsZero() {
			apiErr.Timestamp = body.Timestamp
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
		if status < http.StatusBadRequest {
			// success=false on a 2xx: the status text would read "OK".
			apiErr.Message = "server reported failure"
		}
	}

	if apiErr.Kind == KindAuth {
		code := ""
		if body != nil {
			code = body.Code
		}
		apiErr.AuthReason = authReasonFromCode(code)
	}

	return apiErr
}

func kindFromStatus(status int) ErrorKind {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusConflict:
		return KindConflict
	case status >= http.StatusInternalServerError:
		return KindServer
	default:
		return KindProtocol
	}
}

func authReasonFromCode(code string) AuthReason {
	switch strings.ToUpper(code) {
	case "INVALID_CREDENTIALS":
		return AuthReasonInvalidCredentials
	case "TOKEN_EXPIRED":
		return AuthReasonTokenExpired
	default:
		return AuthReasonServer
	}
}
