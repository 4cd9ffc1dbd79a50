// Package storage is the object-storage layer: bucketed blobs with
// upsert uploads and public URLs.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectExists   = errors.New("object already exists")
)

type UploadOptions struct {
	ContentType string
	// Upsert overwrites an existing object instead of failing with ErrObjectExists.
	Upsert bool
}

type BlobStore interface {
	Upload(ctx context.Context, bucket, path string, r io.Reader, size int64, opts UploadOptions) error
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	PublicURL(bucket, path string) string
}
