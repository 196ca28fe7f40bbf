// Package storage defines the gateway to the blob store that holds uploaded files.
// Drivers live next to it: the MinIO driver here, the AWS S3 driver in internal/s3.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNoCredentials is returned by drivers constructed without credentials.
var ErrNoCredentials = errors.New("no storage credentials provided")

// Object is a named blob handed to a Gateway.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// Gateway stores blobs with public read access and hands back their URL.
type Gateway interface {
	// Put stores obj and returns the publicly resolvable URL of the blob.
	Put(ctx context.Context, obj Object) (string, error)
	// Ping checks that the bucket is reachable.
	Ping(ctx context.Context) error
}
