// Package auth provides password hashing and the session middleware of the dashboard.
package auth

// HTTP constants used by the session gate.
const (
	// RequestIDHeader carries the per-request ID set by the router.
	RequestIDHeader = "X-Request-ID"

	// LoginPath is where unauthenticated requests are redirected.
	LoginPath = "/login"

	// HomePath is where authenticated users land.
	HomePath = "/about"
)

// Password hashing defaults.
const (
	// MaxPasswordBytes is the bcrypt input limit; longer inputs are rejected.
	MaxPasswordBytes = 72
)
