// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides transport-layer access to the messaging server.
//
// Two transports live here:
//   - [RequestClient] + [ServerGateway]: resty-backed HTTP access with retry,
//     auth injection, and typed error normalization. Every failure surfaces
//     as an [*APIError] that unwraps to a kind sentinel, so callers classify
//     with [errors.Is] (e.g. [ErrAuth] for 401, [ErrConflict] for 409).
//   - [RealtimeTransport]: a persistent WebSocket channel with heartbeat,
//     reconnect backoff, an outbound queue that survives reconnects, and
//     request/response correlation.
//
// Both depend on a [CredentialSource] for tokens instead of holding them, so
// the session manager stays the single owner of credentials.
package adapter

import (
	"context"

	"github.com/MKhiriev/go-chat-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/adapter_mock.go -package=mock

// CredentialSource supplies the current authentication material for outbound
// calls. Implemented by the session manager.
type CredentialSource interface {
	// AccessToken returns a usable bearer token, refreshing it first when
	// the stored one is about to expire. Returns an error when no usable
	// session exists.
	AccessToken(ctx context.Context) (string, error)

	// DeviceID returns the stable identifier of this installation.
	DeviceID() string
}

// ConnectivityProbe reports the last known network reachability.
// Implemented by the netmon monitor.
type ConnectivityProbe interface {
	Online() bool
}

// ServerGateway is the typed API surface of the messaging server. It hides
// paths, envelopes, and retry behavior behind domain operations.
type ServerGateway interface {
	// Login exchanges credentials for a token pair. Unauthenticated call.
	Login(ctx context.Context, req models.LoginRequest) (models.AuthPayload, error)

	// Refresh exchanges a refresh token for a fresh token pair.
	// Unauthenticated and never retried: the session manager owns the retry
	// decision because a replayed refresh can invalidate the new pair.
	Refresh(ctx context.Context, refreshToken string) (models.AuthPayload, error)

	// Logout invalidates the server-side session of the given device.
	Logout(ctx context.Context, deviceID string) error

	// UploadChanges pushes a batch of journaled local changes. Never retried
	// here: the sync engine owns the per-batch retry policy.
	UploadChanges(ctx context.Context, req models.UploadChangesRequest) (models.UploadChangesResponse, error)

	// GetChanges fetches one page of remote changes after the sync cursor.
	GetChanges(ctx context.Context, query models.GetChangesQuery) (models.GetChangesResponse, error)
}
