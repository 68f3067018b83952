package validators

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-chat-sync/models"
)

const (
	// FieldClientID targets the client-generated unique identifier of a change.
	FieldClientID = "client_id"

	// FieldEntityType targets the collection name of a change.
	FieldEntityType = "entity_type"

	// FieldAction targets the mutation verb of a change.
	FieldAction = "action"

	// FieldPayload targets the JSON body of a change.
	FieldPayload = "payload"

	// FieldChanges targets the list of changes in an upload batch.
	FieldChanges = "changes"

	// FieldStrategy targets a conflict resolution strategy value.
	FieldStrategy = "strategy"
)

type ChangeValidator struct {
}

func NewChangeValidator() Validator {
	return &ChangeValidator{}
}

func (v *ChangeValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.LocalChange:
		return v.validateLocalChange(ctx, value, fields...)
	case *models.LocalChange:
		return v.validateLocalChange(ctx, *value, fields...)

	case models.UploadChangesRequest:
		return v.validateUploadRequest(ctx, value, fields...)
	case *models.UploadChangesRequest:
		return v.validateUploadRequest(ctx, *value, fields...)

	case models.ResolutionStrategy:
		return v.validateStrategy(ctx, value, fields...)

	default:
		return ErrUnsupportedType
	}
}

// checked!
func (v *ChangeValidator) validateLocalChange(_ context.Context, change models.LocalChange, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldClientID, FieldEntityType, FieldAction, FieldPayload}
	}

	for _, f := range fields {
		switch f {
		case FieldClientID:
			if change.ClientID == "" {
				return ErrInvalidClientID
			}
		case FieldEntityType:
			if !change.EntityType.Valid() {
				return ErrInvalidEntityType
			}
		case FieldAction:
			if !change.Action.Valid() {
				return ErrInvalidAction
			}
		case FieldPayload:
			// deletes carry no body, everything else must
			if change.Action == models.ActionDelete {
				if len(change.Payload) != 0 {
					return ErrUnexpectedPayload
				}
				continue
			}
			if len(change.Payload) == 0 {
				return ErrEmptyPayload
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

// checked!
func (v *ChangeValidator) validateUploadRequest(ctx context.Context, request models.UploadChangesRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldDeviceID, FieldChanges}
	}

	for _, f := range fields {
		switch f {
		case FieldDeviceID:
			if request.DeviceID == "" {
				return ErrInvalidDeviceID
			}
		case FieldChanges:
			if len(request.Changes) == 0 {
				return ErrEmptyChanges
			}
			for i, change := range request.Changes {
				if err := v.validateLocalChange(ctx, change); err != nil {
					return fmt.Errorf("validation error at index %d: %w", i, err)
				}
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

// checked!
func (v *ChangeValidator) validateStrategy(_ context.Context, strategy models.ResolutionStrategy, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldStrategy}
	}

	for _, f := range fields {
		switch f {
		case FieldStrategy:
			if !strategy.Valid() {
				return ErrInvalidStrategy
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}
