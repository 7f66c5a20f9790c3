package storage

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Scheme identifies where an artifact lives.
type Scheme string

const (
	// SchemeFile is a path on the local filesystem.
	SchemeFile Scheme = "file"

	// SchemeS3 is an object in an S3-compatible bucket.
	SchemeS3 Scheme = "s3"
)

// Location is a parsed artifact location.
//
// Examples:
//
//	"./data/model.json"          -> {file, "", "data/model.json"}
//	"file:///srv/model.json"     -> {file, "", "/srv/model.json"}
//	"s3://models/v3/model.json"  -> {s3, "models", "v3/model.json"}
type Location struct {
	Scheme Scheme
	Bucket string
	Path   string
}

// ParseLocation parses a configured artifact location.
// Anything without a scheme is treated as a local path.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("empty artifact location")
	}

	if !strings.Contains(raw, "://") {
		return Location{Scheme: SchemeFile, Path: filepath.Clean(raw)}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("invalid artifact location %q: %w", raw, err)
	}

	switch Scheme(u.Scheme) {
	case SchemeFile:
		if u.Path == "" {
			return Location{}, fmt.Errorf("invalid artifact location %q: missing path", raw)
		}
		return Location{Scheme: SchemeFile, Path: filepath.Clean(u.Path)}, nil
	case SchemeS3:
		key := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("invalid artifact location %q: want s3://bucket/key", raw)
		}
		return Location{Scheme: SchemeS3, Bucket: u.Host, Path: key}, nil
	default:
		return Location{}, fmt.Errorf("unsupported artifact scheme %q", u.Scheme)
	}
}

// Ext returns the lower-case file extension of the location, including the dot.
func (l Location) Ext() string {
	return strings.ToLower(path.Ext(l.Path))
}

// Base returns the last element of the path.
func (l Location) Base() string {
	return path.Base(filepath.ToSlash(l.Path))
}

// String returns the location in URI form for logs.
func (l Location) String() string {
	if l.Scheme == SchemeS3 {
		return "s3://" + l.Bucket + "/" + l.Path
	}
	return l.Path
}
