package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// FilesystemBackend opens artifacts from the local filesystem.
type FilesystemBackend struct{}

// Open opens a local file.
func (FilesystemBackend) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if loc.Scheme != SchemeFile {
		return nil, fmt.Errorf("filesystem backend cannot open %s", loc)
	}

	f, err := os.Open(loc.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
		}
		return nil, fmt.Errorf("failed to open %s: %w", loc, err)
	}
	return f, nil
}

var _ Backend = FilesystemBackend{}
