// Package blob stores the artifact payloads behind record file
// references. Keys are "recordID/filename" paths; each driver reports a
// URI for a stored payload that callers place in the record's file list.
package blob

import (
	"context"
	"errors"
	"io"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem is the local filesystem implementation (default).
	DriverFilesystem Driver = "fs"
	// DriverS3 is an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3"
	// DriverMemory is the in-memory implementation used in tests.
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
}

// Info describes a stored payload.
type Info struct {
	Key         string `json:"key"`
	Size        int64  `json:"size_bytes"`
	ContentType string `json:"content_type,omitempty"`
	URI         string `json:"uri"`
}

// Store is the thin storage abstraction consumed by the service layer.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// ErrNotExist is returned when a key has no stored payload.
var ErrNotExist = errors.New("blob: key does not exist")
