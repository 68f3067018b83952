package validators

import (
	"context"
	"net/mail"

	"github.com/MKhiriev/go-chat-sync/models"
)

// Field name constants used to specify which fields should be validated.
// These constants are passed to Validate or internal validation methods
// to restrict validation to a subset of fields (field-level scoping).
const (
	// FieldEmail targets the login email of an authentication request.
	FieldEmail = "email"

	// FieldPassword targets the password of an authentication request.
	FieldPassword = "password"

	// FieldDeviceID targets the stable installation identifier.
	FieldDeviceID = "device_id"

	// FieldAccessToken targets the bearer token of a stored credential.
	FieldAccessToken = "access_token"

	// FieldRefreshToken targets the refresh token of a stored credential.
	FieldRefreshToken = "refresh_token"
)

// MinPasswordLength is the shortest password accepted by Login.
const MinPasswordLength = 6

type AuthValidator struct {
}

func NewAuthValidator() Validator {
	return &AuthValidator{}
}

func (v *AuthValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.LoginRequest:
		return v.validateLoginRequest(ctx, value, fields...)
	case *models.LoginRequest:
		return v.validateLoginRequest(ctx, *value, fields...)

	case models.Credential:
		return v.validateCredential(ctx, value, fields...)
	case *models.Credential:
		return v.validateCredential(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

// checked!
func (v *AuthValidator) validateLoginRequest(_ context.Context, request models.LoginRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldEmail, FieldPassword}
	}

	for _, f := range fields {
		switch f {
		case FieldEmail:
			if request.Email == "" {
				return ErrInvalidEmail
			}
			if _, err := mail.ParseAddress(request.Email); err != nil {
				return ErrInvalidEmail
			}
		case FieldPassword:
			if len(request.Password) < MinPasswordLength {
				return ErrPasswordTooShort
			}
		case FieldDeviceID:
			if request.DeviceID == "" {
				return ErrInvalidDeviceID
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

// checked!
func (v *AuthValidator) validateCredential(_ context.Context, credential models.Credential, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldAccessToken, FieldRefreshToken}
	}

	for _, f := range fields {
		switch f {
		case FieldAccessToken:
			if credential.AccessToken == "" {
				return ErrInvalidAccessToken
			}
		case FieldRefreshToken:
			if credential.RefreshToken == "" {
				return ErrInvalidAccessToken
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}
