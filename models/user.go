package models

import "time"

// User represents a messenger account as reported by the server.
// It carries identity attributes only; credentials never live here.
type User struct {
	// ID is the server-side unique identifier of the user.
	ID string `json:"id"`

	// Email is the unique sign-in identifier.
	// Typically used during authentication.
	Email string `json:"email"`

	// Name is the display name of the user.
	// It is non-sensitive and may be shown in UI.
	Name string `json:"name"`

	// AvatarURL points to the user's avatar image, if any.
	AvatarURL string `json:"avatarUrl,omitempty"`

	// DepartmentID links the user to an organizational department.
	DepartmentID string `json:"departmentId,omitempty"`

	// Role is the access role assigned by the server (e.g. "member", "admin").
	Role string `json:"role,omitempty"`

	// Status is the presence state last reported for the user
	// (e.g. "online", "away", "offline").
	Status string `json:"status,omitempty"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// TableName returns the name of the local database table
// associated with the User model.
func (u User) TableName() string {
	return "users"
}
