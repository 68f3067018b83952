package models

import "time"

// Credential holds the token pair issued by the server after a successful
// login or refresh. It is persisted in the secure store between runs and is
// the single source of truth for the current session's tokens.
type Credential struct {
	// AccessToken is the short-lived bearer token attached to
	// authenticated requests.
	AccessToken string `json:"accessToken"`

	// RefreshToken is the long-lived token exchanged for a new pair
	// when the access token nears expiry.
	RefreshToken string `json:"refreshToken"`

	// TokenType is the authorization scheme, normally "Bearer".
	TokenType string `json:"tokenType"`

	// ExpiresAt is the absolute expiry instant of AccessToken,
	// derived from the server-reported lifetime at issue time.
	ExpiresAt time.Time `json:"expiresAt"`
}

// Usable reports whether the access token is still good for at least
// buffer more time. A token inside the buffer window is treated as
// expired so that in-flight requests do not race the real expiry.
func (c Credential) Usable(now time.Time, buffer time.Duration) bool {
	if c.AccessToken == "" {
		return false
	}

	return now.Before(c.ExpiresAt.Add(-buffer))
}

// Refreshable reports whether a refresh attempt makes sense.
func (c Credential) Refreshable() bool {
	return c.RefreshToken != ""
}
