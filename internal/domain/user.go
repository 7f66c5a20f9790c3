// Package domain contains the core business entities for the sentiment dashboard.
// These are pure Go structs with no external dependencies, representing
// users, their access control and the per-client session.
package domain

import (
	"strings"
	"time"
)

// AccessControl is the role attached to a user.
// It governs which dashboard screens and operations are reachable.
type AccessControl string

const (
	// AccessAdmin can manage every user in the directory.
	AccessAdmin AccessControl = "Admin"

	// AccessUser can only edit its own profile.
	AccessUser AccessControl = "User"
)

// AccessControls lists every valid access control in display order.
var AccessControls = []AccessControl{AccessAdmin, AccessUser}

// ParseAccessControl converts form or config input into an AccessControl.
// Matching is case-insensitive; the returned value is always canonical.
func ParseAccessControl(s string) (AccessControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return AccessAdmin, nil
	case "user":
		return AccessUser, nil
	default:
		return "", NewValidationError("access_control")
	}
}

// IsValid reports whether a is one of the known access controls.
func (a AccessControl) IsValid() bool {
	return a == AccessAdmin || a == AccessUser
}

// String returns the canonical name.
func (a AccessControl) String() string {
	return string(a)
}

// Capabilities describes what a role may do.
type Capabilities struct {
	// ManageUsers allows add, delete and edit of any user.
	ManageUsers bool

	// EditOwnProfile allows changing the caller's own name and password.
	EditOwnProfile bool
}

// Capabilities returns the capability set for the access control.
// Unknown values get no capabilities.
func (a AccessControl) Capabilities() Capabilities {
	switch a {
	case AccessAdmin:
		return Capabilities{ManageUsers: true, EditOwnProfile: true}
	case AccessUser:
		return Capabilities{ManageUsers: false, EditOwnProfile: true}
	default:
		return Capabilities{}
	}
}

// User represents a record in the user store.
// Username is the natural key and never changes once the user is created.
type User struct {
	// Username is the unique login name.
	Username string `json:"username"`

	// AccessControl is the user's role.
	AccessControl AccessControl `json:"access_control"`

	// Name is the mutable display name.
	Name string `json:"name"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in responses.
	PasswordHash string `json:"-"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with timestamps set.
func NewUser(username string, access AccessControl, name, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Username:      username,
		AccessControl: access,
		Name:          name,
		PasswordHash:  passwordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// DirectoryEntry returns the public projection of the user.
func (u *User) DirectoryEntry() DirectoryEntry {
	return DirectoryEntry{
		Username:      u.Username,
		AccessControl: u.AccessControl,
		Name:          u.Name,
	}
}

// SessionUser returns the snapshot stored in a session after login.
func (u *User) SessionUser() SessionUser {
	return SessionUser{
		Username:      u.Username,
		AccessControl: u.AccessControl,
		Name:          u.Name,
	}
}

// DirectoryEntry is a user without its password, as shown in the users table.
type DirectoryEntry struct {
	Username      string        `json:"username" bson:"username"`
	AccessControl AccessControl `json:"access_control" bson:"access_control"`
	Name          string        `json:"name" bson:"name"`
}
