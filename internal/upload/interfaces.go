package upload

import (
	"context"

	"blobdrop/internal/storage"
)

// Gateway is the blob store the service forwards files to.
type Gateway = storage.Gateway

// UploadService is what the Handler needs from Service.
type UploadService interface {
	Store(ctx context.Context, up Upload) (*Result, error)
	Configured() bool
	Policy() Policy
}
