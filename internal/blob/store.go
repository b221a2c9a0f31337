// Package blob stores scraped artefacts (card images, HTML archives, event and
// deck JSON) on the local filesystem or in an S3-compatible bucket.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// ErrNotFound is returned by Get, Head and Delete for missing keys
var ErrNotFound = errors.New("blob: not found")

// Info describes a stored object. Keys always use forward slashes.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

// Store is implemented by every driver. Put overwrites existing objects.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) error
	// List returns every object under prefix, sorted by key
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}
