package upload

import (
	"errors"
	"net/http"
	"time"

	"blobdrop/internal/logging"
	"blobdrop/internal/response"
)

const (
	// room for the multipart envelope around the file itself
	multipartSlack = 1 << 20
	maxFormMemory  = 32 << 20
)

type Handler struct {
	uploadService UploadService
	environment   string
	log           logging.Logger
	now           func() time.Time
}

func NewHandler(uploadService UploadService, environment string, log logging.Logger) *Handler {
	return &Handler{
		uploadService: uploadService,
		environment:   environment,
		log:           log,
		now:           time.Now,
	}
}

// ServeHTTP serves the upload path: POST uploads, GET reports health.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.HandleUpload(w, r)
	case http.MethodGet:
		h.HandleHealth(w, r)
	default:
		response.MethodNotAllowed(w)
	}
}

// HandleUpload handles POST /api/upload
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.MethodNotAllowed(w)
		return
	}

	// Missing credentials are fatal for every upload, whatever its size
	if !h.uploadService.Configured() {
		h.log.Error(r.Context(), "upload rejected: storage credentials not set")
		response.ErrorWithDetails(w, http.StatusInternalServerError, msgNotConfigured,
			"storage credentials are not set in the server environment", h.now())
		return
	}

	policy := h.uploadService.Policy()
	tooLarge := tooLargeMessage(policy.MaxSizeBytes)

	r.Body = http.MaxBytesReader(w, r.Body, policy.MaxSizeBytes+multipartSlack)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeStoreError(w, ErrFileTooLarge, tooLarge)
			return
		}
		h.writeStoreError(w, ErrNoFile, tooLarge)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeStoreError(w, ErrNoFile, tooLarge)
		return
	}
	defer file.Close()

	if header.Size > policy.MaxSizeBytes {
		h.writeStoreError(w, ErrFileTooLarge, tooLarge)
		return
	}

	up := Upload{
		Name:        header.Filename,
		ContentType: resolveContentType(header.Header.Get("Content-Type"), file),
		Size:        header.Size,
		Body:        file,
	}

	result, err := h.uploadService.Store(r.Context(), up)
	if err != nil {
		h.writeStoreError(w, err, tooLarge)
		return
	}

	response.OK(w, UploadResponse{
		URL:      result.URL,
		Fallback: result.Storage == StorageInline,
		Message:  result.Message,
		Storage:  result.Storage,
	})
}

// HandleHealth handles GET /api/upload
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.MethodNotAllowed(w)
		return
	}

	response.OK(w, HealthResponse{
		Status:         msgHealthy,
		BlobConfigured: h.uploadService.Configured(),
		Timestamp:      h.now().UTC().Format(time.RFC3339),
		Environment:    h.environment,
	})
}

// writeStoreError maps upload errors to status codes. Nothing is swallowed:
// every branch answers with a JSON error.
func (h *Handler) writeStoreError(w http.ResponseWriter, err error, tooLarge string) {
	var storageErr *StorageError
	switch {
	case errors.Is(err, ErrNoFile):
		response.BadRequest(w, msgNoFile)
	case errors.Is(err, ErrFileTooLarge):
		response.BadRequest(w, tooLarge)
	case errors.Is(err, ErrStorageNotConfigured):
		response.ErrorWithDetails(w, http.StatusInternalServerError, msgNotConfigured, err.Error(), h.now())
	case errors.As(err, &storageErr):
		response.ErrorWithDetails(w, http.StatusInternalServerError, msgUploadFailed, storageErr.Err.Error(), h.now())
	default:
		response.ErrorWithDetails(w, http.StatusInternalServerError, msgUploadFailed, err.Error(), h.now())
	}
}
