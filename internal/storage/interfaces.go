// Package storage loads read-only artifacts (the classifier model and the
// labelled dataset) from the local filesystem or S3-compatible storage.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates the artifact does not exist at the location.
var ErrNotFound = errors.New("artifact not found")

// Backend opens artifacts by location.
// Implementations include the local filesystem and S3.
type Backend interface {
	// Open returns a stream of the artifact content (caller must close).
	// Returns ErrNotFound if nothing exists at location.
	Open(ctx context.Context, loc Location) (io.ReadCloser, error)
}
