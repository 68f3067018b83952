package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrInvalidDeviceID    = errors.New("invalid device id")

	ErrInvalidClientID   = errors.New("invalid change client id")
	ErrInvalidEntityType = errors.New("invalid entity type")
	ErrInvalidAction     = errors.New("invalid change action")
	ErrEmptyPayload      = errors.New("payload is required")
	ErrUnexpectedPayload = errors.New("payload must be empty for delete")
	ErrEmptyChanges      = errors.New("changes list cannot be empty")

	ErrInvalidStrategy = errors.New("invalid resolution strategy")
)
