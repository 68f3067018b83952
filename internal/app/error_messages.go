// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains shared application-layer constants used across the
// chat-sync client runtime.
//
// All Msg* constants are human-readable message strings shown to the user or
// written into log entries to describe the outcome of an operation. Keeping
// them in one place ensures consistent wording throughout the client.
package app

const (
	// MsgInvalidEmailOrPassword is shown when the supplied email/password
	// combination is rejected by the server.
	MsgInvalidEmailOrPassword = "invalid email or password"

	// MsgSessionExpired is shown when the refresh token was rejected and the
	// user has to authenticate again.
	MsgSessionExpired = "session expired, please sign in again"

	// MsgNotSignedIn is shown when an operation requires a session but no
	// usable one exists.
	MsgNotSignedIn = "not signed in"

	// MsgSignInInProgress is shown when a sign-in attempt starts while a
	// previous one is still talking to the server.
	MsgSignInInProgress = "sign-in already in progress"

	// MsgServerUnreachable is shown when the server cannot be reached.
	// Local edits are journaled and upload once connectivity returns.
	MsgServerUnreachable = "server unreachable, changes are kept locally"

	// MsgServerError is shown when the server reported an internal failure
	// the client cannot resolve.
	MsgServerError = "server error, try again later"

	// MsgSyncInProgress is shown when a sync pass is requested while a
	// previous one is still running.
	MsgSyncInProgress = "sync is already running"

	// MsgSyncUnavailable is shown when a sync pass cannot start because the
	// client is offline or signed out.
	MsgSyncUnavailable = "sync is unavailable while offline or signed out"

	// MsgInvalidDataProvided is shown when input fails basic validation
	// (e.g. a malformed email or a change with missing required fields).
	MsgInvalidDataProvided = "invalid data provided"

	// MsgRecordNotFound is shown when a read targets an entity that does not
	// exist in the local cache.
	MsgRecordNotFound = "record not found"

	// MsgConflictNotFound is shown when a resolution targets a conflict that
	// is not parked (already resolved or never existed).
	MsgConflictNotFound = "conflict not found"

	// MsgMergedDocumentRequired is shown when a merged resolution arrives
	// without the hand-merged document.
	MsgMergedDocumentRequired = "merged document is required"

	// MsgUnknownResolution is shown when a resolution names a choice the
	// client does not know.
	MsgUnknownResolution = "unknown conflict resolution choice"

	// MsgVersionConflict is shown when the server rejected an upload because
	// the entity changed remotely. The client should sync before retrying.
	MsgVersionConflict = "version conflict, sync before retrying"
)
