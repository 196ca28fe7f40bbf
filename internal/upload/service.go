package upload

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	utils "blobdrop/internal"
	"blobdrop/internal/datauri"
	"blobdrop/internal/logging"
	"blobdrop/internal/storage"
)

type Service struct {
	gateway Gateway
	policy  Policy
	log     logging.Logger
	newID   func() string
}

// NewService wires the decision logic. A nil gateway means storage credentials
// were absent at startup: every Store then fails with ErrStorageNotConfigured.
func NewService(gateway Gateway, policy Policy, log logging.Logger) *Service {
	return &Service{
		gateway: gateway,
		policy:  policy,
		log:     log,
		newID:   uuid.NewString,
	}
}

func (s *Service) Configured() bool {
	return s.gateway != nil
}

func (s *Service) Policy() Policy {
	return s.policy
}

// Store forwards the upload to the gateway. When the gateway fails and the file
// is below the inline threshold, the file comes back embedded as a data URI.
func (s *Service) Store(ctx context.Context, up Upload) (*Result, error) {
	if s.gateway == nil {
		return nil, ErrStorageNotConfigured
	}
	if up.Body == nil {
		return nil, ErrNoFile
	}
	if up.Size > s.policy.MaxSizeBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrFileTooLarge, up.Size, s.policy.MaxSizeBytes)
	}

	key := s.buildObjectKey(up.Name)
	url, err := s.gateway.Put(ctx, storage.Object{
		Key:         key,
		ContentType: up.ContentType,
		Size:        up.Size,
		Body:        up.Body,
	})
	if err == nil {
		s.log.Info(ctx, "stored upload", "key", key, "size", up.Size, "content_type", up.ContentType)
		return &Result{URL: url, Storage: StorageRemote}, nil
	}

	if up.Size >= s.policy.InlineThresholdBytes {
		s.log.Error(ctx, "storage upload failed", "key", key, "size", up.Size, "error", err)
		return nil, &StorageError{Err: err}
	}

	s.log.Warn(ctx, "storage upload failed, embedding inline", "key", key, "size", up.Size, "error", err)
	return s.inline(up, err)
}

func (s *Service) inline(up Upload, cause error) (*Result, error) {
	// the gateway may have consumed part of the body
	if _, err := up.Body.Seek(0, io.SeekStart); err != nil {
		return nil, &StorageError{Err: cause}
	}
	uri, err := datauri.Encode(up.ContentType, up.Body)
	if err != nil {
		return nil, &StorageError{Err: fmt.Errorf("%v; inline encoding failed: %w", cause, err)}
	}
	return &Result{URL: uri, Storage: StorageInline, Message: FallbackMessage}, nil
}

// buildObjectKey gives every upload a unique key so equal names never collide.
func (s *Service) buildObjectKey(name string) string {
	objectKey := s.newID() + "-" + utils.BaseName(name)
	if prefix := strings.Trim(s.policy.KeyPrefix, "/"); prefix != "" {
		objectKey = prefix + "/" + objectKey
	}
	return objectKey
}
