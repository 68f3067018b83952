// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"errors"

	"github.com/MKhiriev/go-chat-sync/internal/adapter"
	"github.com/MKhiriev/go-chat-sync/internal/app"
	"github.com/MKhiriev/go-chat-sync/internal/service"
	"github.com/MKhiriev/go-chat-sync/internal/store"
	"github.com/MKhiriev/go-chat-sync/internal/validators"
)

// Describe translates an error returned by the client API into the canonical
// user-facing message. Errors outside the known taxonomy keep their own text.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	// у auth-ошибок причина точнее, чем вид
	if apiErr, ok := adapter.AsAPIError(err); ok && apiErr.Kind == adapter.KindAuth {
		if apiErr.AuthReason == adapter.AuthReasonInvalidCredentials {
			return app.MsgInvalidEmailOrPassword
		}

		return app.MsgSessionExpired
	}

	switch {
	case errors.Is(err, service.ErrLoginInProgress):
		return app.MsgSignInInProgress
	case errors.Is(err, service.ErrNotAuthenticated):
		return app.MsgNotSignedIn
	case errors.Is(err, service.ErrSyncInProgress):
		return app.MsgSyncInProgress
	case errors.Is(err, service.ErrSyncUnavailable):
		return app.MsgSyncUnavailable
	case errors.Is(err, service.ErrMergedPayloadRequired):
		return app.MsgMergedDocumentRequired
	case errors.Is(err, service.ErrUnknownResolution):
		return app.MsgUnknownResolution

	case errors.Is(err, store.ErrConflictNotFound):
		return app.MsgConflictNotFound
	case errors.Is(err, store.ErrRecordNotFound):
		return app.MsgRecordNotFound

	case errors.Is(err, validators.ErrInvalidEmail),
		errors.Is(err, validators.ErrPasswordTooShort),
		errors.Is(err, validators.ErrInvalidEntityType),
		errors.Is(err, validators.ErrInvalidAction),
		errors.Is(err, validators.ErrEmptyPayload),
		errors.Is(err, validators.ErrUnexpectedPayload),
		errors.Is(err, adapter.ErrValidation):
		return app.MsgInvalidDataProvided

	case errors.Is(err, adapter.ErrConflict):
		return app.MsgVersionConflict
	case errors.Is(err, adapter.ErrNetwork):
		return app.MsgServerUnreachable
	case errors.Is(err, adapter.ErrServer):
		return app.MsgServerError
	}

	return err.Error()
}
