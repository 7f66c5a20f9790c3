package auth

import "errors"

var (
	// ErrPasswordMismatch indicates the password does not match the hash.
	ErrPasswordMismatch = errors.New("password mismatch")

	// ErrPasswordTooLong indicates the password exceeds MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)
