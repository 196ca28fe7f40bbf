package upload

import (
	"errors"
	"fmt"
	"io"
)

// StorageKind records where an uploaded file's bytes actually live.
type StorageKind string

const (
	StorageRemote StorageKind = "remote" // gateway URL
	StorageInline StorageKind = "inline" // data URI carrying the whole payload
)

// FallbackMessage accompanies every inline result.
const FallbackMessage = "Storage unavailable, file embedded inline as a data URL"

// Upload is a single file received by the endpoint.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// Result of a successful Store.
type Result struct {
	URL     string
	Storage StorageKind
	Message string
}

// Policy holds the endpoint's size limits.
type Policy struct {
	MaxSizeBytes         int64
	InlineThresholdBytes int64
	KeyPrefix            string
}

// UploadResponse is the 200 body of POST /api/upload.
type UploadResponse struct {
	URL      string      `json:"url"`
	Fallback bool        `json:"fallback,omitempty"`
	Message  string      `json:"message,omitempty"`
	Storage  StorageKind `json:"storage"`
}

// HealthResponse is the body of GET /api/upload.
type HealthResponse struct {
	Status         string `json:"status"`
	BlobConfigured bool   `json:"blobConfigured"`
	Timestamp      string `json:"timestamp"`
	Environment    string `json:"environment"`
}

var (
	ErrNoFile               = errors.New("no file provided")
	ErrFileTooLarge         = errors.New("file too large")
	ErrStorageNotConfigured = errors.New("storage not configured")
)

// StorageError is a gateway failure the inline fallback could not absorb.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage upload failed: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Client-facing messages.
const (
	msgNoFile        = "No file provided"
	msgNotConfigured = "Storage not configured"
	msgUploadFailed  = "Upload failed"
	msgHealthy       = "API is working"
)

// tooLargeMessage renders the limit the way users know it, e.g. "File too large (max 50MB)".
func tooLargeMessage(maxBytes int64) string {
	const mib = 1024 * 1024
	if maxBytes >= mib && maxBytes%mib == 0 {
		return fmt.Sprintf("File too large (max %dMB)", maxBytes/mib)
	}
	return fmt.Sprintf("File too large (max %d bytes)", maxBytes)
}
