package domain

import "time"

// SessionUser is the identity held by a logged-in session.
type SessionUser struct {
	Username      string        `json:"username"`
	AccessControl AccessControl `json:"access_control"`
	Name          string        `json:"name"`
}

// Can returns the capabilities of the session user.
func (u SessionUser) Can() Capabilities {
	return u.AccessControl.Capabilities()
}

// FlashKind is the style of a transient notification.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a notification shown once on the next rendered page.
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

// Session is the per-client state of one browser.
// A session without a User is logged out.
type Session struct {
	// Token identifies the session; it is the cookie value.
	Token string `json:"token"`

	// User is the authenticated identity, nil when logged out.
	User *SessionUser `json:"user,omitempty"`

	// Flash is the pending notification, if any.
	Flash *Flash `json:"flash,omitempty"`

	// CreatedAt is when the session was established.
	CreatedAt time.Time `json:"created_at"`
}

// LoggedIn reports whether the session carries an authenticated user.
func (s *Session) LoggedIn() bool {
	return s != nil && s.User != nil
}
