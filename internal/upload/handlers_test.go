package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"blobdrop/internal/logging"
	"blobdrop/internal/response"
	"blobdrop/internal/storage"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestHandler(service UploadService) *Handler {
	h := NewHandler(service, "test", logging.Discard())
	h.now = func() time.Time { return fixedNow }
	return h
}

// newUploadRequest builds a multipart POST with a single part named field.
func newUploadRequest(t *testing.T, field, fileName, contentType string, payload []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+fileName+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var errorResp response.ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &errorResp); err != nil {
		t.Fatalf("Failed to parse error response: %v. Body: %s", err, rr.Body.String())
	}
	return errorResp
}

func TestHandler_Upload_Success(t *testing.T) {
	gateway := &MockGateway{}
	handler := newTestHandler(newTestService(gateway))

	req := newUploadRequest(t, "file", "hello.txt", "text/plain", []byte("0123456789"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d. Body: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var resp UploadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.URL != "https://blob.example.com/uploads/fixed-id-hello.txt" {
		t.Errorf("Unexpected URL %s", resp.URL)
	}
	if resp.Fallback {
		t.Errorf("Expected no fallback")
	}
	if resp.Storage != StorageRemote {
		t.Errorf("Expected remote storage, got %s", resp.Storage)
	}
	if strings.Contains(rr.Body.String(), "fallback") {
		t.Errorf("fallback must be omitted on the primary path: %s", rr.Body.String())
	}
	if gateway.objects[0].Size != 10 {
		t.Errorf("Expected 10 bytes forwarded, got %d", gateway.objects[0].Size)
	}
}

func TestHandler_Upload_ValidationErrors(t *testing.T) {
	smallPolicy := Policy{MaxSizeBytes: 1024, InlineThresholdBytes: 512, KeyPrefix: "uploads"}

	tests := []struct {
		name          string
		request       func(t *testing.T) *http.Request
		expectedError string
	}{
		{
			name: "Missing file field",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "attachment", "a.txt", "text/plain", []byte("hi"))
			},
			expectedError: "No file provided",
		},
		{
			name: "Not a multipart body",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{"file":"x"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			expectedError: "No file provided",
		},
		{
			name: "File over the limit",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "file", "a.bin", "application/octet-stream", bytes.Repeat([]byte("x"), 1025))
			},
			expectedError: "File too large (max 1024 bytes)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &MockGateway{}
			handler := newTestHandler(NewService(gateway, smallPolicy, logging.Discard()))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, tt.request(t))

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected status %d, got %d. Body: %s", http.StatusBadRequest, rr.Code, rr.Body.String())
			}
			if got := decodeError(t, rr).Error; got != tt.expectedError {
				t.Errorf("Expected error %q, got %q", tt.expectedError, got)
			}
			if gateway.calls != 0 {
				t.Errorf("Expected no gateway call, got %d", gateway.calls)
			}
		})
	}
}

func TestHandler_Upload_SixtyMiBRejected(t *testing.T) {
	gateway := &MockGateway{}
	handler := newTestHandler(newTestService(gateway))

	req := newUploadRequest(t, "file", "huge.bin", "application/octet-stream", make([]byte, 60*1024*1024))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if got := decodeError(t, rr).Error; got != "File too large (max 50MB)" {
		t.Errorf("Unexpected error %q", got)
	}
	if gateway.calls != 0 {
		t.Errorf("Expected no gateway call, got %d", gateway.calls)
	}
}

func TestHandler_Upload_NotConfigured(t *testing.T) {
	sizes := []int{10, 2 * 1024 * 1024}

	for _, size := range sizes {
		handler := newTestHandler(newTestService(nil))

		req := newUploadRequest(t, "file", "a.txt", "text/plain", bytes.Repeat([]byte("a"), size))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("size %d: expected status %d, got %d", size, http.StatusInternalServerError, rr.Code)
		}
		errorResp := decodeError(t, rr)
		if errorResp.Error != "Storage not configured" {
			t.Errorf("Unexpected error %q", errorResp.Error)
		}
		if strings.HasPrefix(rr.Body.String(), `{"url"`) {
			t.Errorf("Must never fall back when storage is not configured")
		}
	}
}

func TestHandler_Upload_InlineFallback(t *testing.T) {
	handler := newTestHandler(newTestService(failingGateway(errors.New("storage unreachable"))))

	req := newUploadRequest(t, "file", "notes.txt", "text/plain", bytes.Repeat([]byte("z"), 500*1024))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d. Body: %.200s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var resp UploadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !resp.Fallback {
		t.Errorf("Expected fallback: true")
	}
	if resp.Storage != StorageInline {
		t.Errorf("Expected inline storage, got %s", resp.Storage)
	}
	if !strings.HasPrefix(resp.URL, "data:text/plain;base64,") {
		t.Errorf("Expected data URI, got %.40s", resp.URL)
	}
	if resp.Message == "" {
		t.Errorf("Expected a fallback message")
	}
}

func TestHandler_Upload_InlineFallbackSniffsType(t *testing.T) {
	handler := newTestHandler(newTestService(failingGateway(errors.New("storage unreachable"))))

	req := newUploadRequest(t, "file", "notes", "", []byte("plain words"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var resp UploadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !strings.HasPrefix(resp.URL, "data:text/plain;base64,") {
		t.Errorf("Expected sniffed text/plain data URI, got %.40s", resp.URL)
	}
}

func TestHandler_Upload_StorageFailureAboveThreshold(t *testing.T) {
	handler := newTestHandler(newTestService(failingGateway(errors.New("dial tcp: connection refused"))))

	req := newUploadRequest(t, "file", "video.mp4", "video/mp4", make([]byte, 1024*1024))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	errorResp := decodeError(t, rr)
	if errorResp.Error != "Upload failed" {
		t.Errorf("Unexpected error %q", errorResp.Error)
	}
	if errorResp.Details != "dial tcp: connection refused" {
		t.Errorf("Expected gateway error in details, got %q", errorResp.Details)
	}
	if errorResp.Timestamp != "2026-10-19T12:00:00Z" {
		t.Errorf("Unexpected timestamp %q", errorResp.Timestamp)
	}
}

func TestHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		gateway    Gateway
		configured bool
	}{
		{name: "Configured", gateway: &MockGateway{}, configured: true},
		{name: "Not configured", gateway: nil, configured: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(newTestService(tt.gateway))

			req := httptest.NewRequest(http.MethodGet, "/api/upload", nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
			}

			var resp HealthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			expected := HealthResponse{
				Status:         "API is working",
				BlobConfigured: tt.configured,
				Timestamp:      "2026-10-19T12:00:00Z",
				Environment:    "test",
			}
			if resp != expected {
				t.Errorf("Expected %+v, got %+v", expected, resp)
			}
			if mock, ok := tt.gateway.(*MockGateway); ok && mock.calls != 0 {
				t.Errorf("Health must not touch storage")
			}
		})
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	handler := newTestHandler(newTestService(&MockGateway{}))

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		req := httptest.NewRequest(method, "/api/upload", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rr.Code)
		}
	}
}

// MockUploadService lets the error mapping be checked without a real Service.
type MockUploadService struct {
	storeFunc func(ctx context.Context, up Upload) (*Result, error)
}

func (m *MockUploadService) Store(ctx context.Context, up Upload) (*Result, error) {
	return m.storeFunc(ctx, up)
}

func (m *MockUploadService) Configured() bool { return true }

func (m *MockUploadService) Policy() Policy { return testPolicy() }

func TestHandler_writeStoreError(t *testing.T) {
	tests := []struct {
		name           string
		serviceError   error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "No file",
			serviceError:   ErrNoFile,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "No file provided",
		},
		{
			name:           "Too large",
			serviceError:   ErrFileTooLarge,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "File too large (max 50MB)",
		},
		{
			name:           "Not configured",
			serviceError:   ErrStorageNotConfigured,
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Storage not configured",
		},
		{
			name:           "Storage failure",
			serviceError:   &StorageError{Err: errors.New("boom")},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Upload failed",
		},
		{
			name:           "Unexpected error",
			serviceError:   errors.New("something else"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Upload failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(&MockUploadService{
				storeFunc: func(ctx context.Context, up Upload) (*Result, error) {
					return nil, tt.serviceError
				},
			})

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, newUploadRequest(t, "file", "a.txt", "text/plain", []byte("a")))

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if got := decodeError(t, rr).Error; got != tt.expectedError {
				t.Errorf("Expected error %q, got %q", tt.expectedError, got)
			}
		})
	}
}

var _ storage.Gateway = (*MockGateway)(nil)
