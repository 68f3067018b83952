package service

import "errors"

var (
	// ErrLoginInProgress rejects a login started while another one is
	// still talking to the server.
	ErrLoginInProgress = errors.New("login already in progress")

	// ErrNotAuthenticated means no usable session exists: neither a live
	// access token nor a refresh token.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSyncInProgress rejects a sync pass while a previous one runs.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrSyncUnavailable means a pass cannot start: offline or no session.
	ErrSyncUnavailable = errors.New("sync unavailable")

	// ErrUnknownResolution marks a conflict verdict the engine does not know.
	ErrUnknownResolution = errors.New("unknown conflict resolution")

	// ErrMergedPayloadRequired marks a merged verdict without a document.
	ErrMergedPayloadRequired = errors.New("merged resolution requires a payload")
)
