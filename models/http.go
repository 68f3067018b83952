package models

import (
	"encoding/json"
	"time"
)

// APIEnvelope is the uniform wrapper of every HTTP response from the server.
// Data carries the endpoint-specific payload, Error is set when Success is
// false.
type APIEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Meta    json.RawMessage `json:"meta,omitempty"`
	Error   *APIErrorBody   `json:"error,omitempty"`
}

// APIErrorBody is the structured error block inside a failed APIEnvelope.
type APIErrorBody struct {
	// Code is the machine-readable error code (e.g. "INVALID_CREDENTIALS").
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Details lists field-level or otherwise itemized problems.
	Details []string `json:"details,omitempty"`

	// RequestID is the server-side correlation identifier.
	RequestID string `json:"requestId,omitempty"`

	// Timestamp is when the server produced the error.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// DeviceID is the stable identifier of this installation.
	DeviceID string `json:"deviceId"`

	// DeviceInfo is a short free-form description (OS, app version).
	DeviceInfo string `json:"deviceInfo,omitempty"`
}

// RefreshRequest is the body of POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest is the body of POST /api/auth/logout.
type LogoutRequest struct {
	DeviceID string `json:"deviceId"`
}

// AuthPayload is the data block returned by login and refresh.
type AuthPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`

	// TokenType is the authorization scheme, normally "Bearer".
	TokenType string `json:"tokenType,omitempty"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`

	// User is the authenticated account. Refresh responses may omit it.
	User *User `json:"user,omitempty"`
}

// UploadChangesRequest is the body of POST /api/sync/upload-changes.
// Changes are ordered by creation time; the server applies them in order.
type UploadChangesRequest struct {
	Changes  []LocalChange `json:"changes"`
	DeviceID string        `json:"deviceId"`
}

// UploadChangesResponse is the data block returned by upload-changes.
type UploadChangesResponse struct {
	// Processed acknowledges accepted changes by clientId.
	Processed []ChangeAck `json:"processed,omitempty"`

	// Conflicts lists changes the server refused because the record
	// diverged. Each entry carries both versions of the payload.
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// GetChangesQuery holds the query parameters of GET /api/sync/get-changes.
type GetChangesQuery struct {
	// Since is the opaque sync cursor; empty requests the full history.
	Since string

	// Types restricts the download to the listed entity types;
	// empty means all types.
	Types []EntityType

	// Token is the continuation token of the previous page.
	Token string
}

// GetChangesResponse is the data block returned by get-changes.
type GetChangesResponse struct {
	Changes []RemoteChange `json:"changes"`

	// HasMore signals that another page must be fetched with NextToken.
	HasMore bool `json:"hasMore"`

	// NextToken is the continuation token for the next page.
	NextToken string `json:"nextToken,omitempty"`
}
