package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"blobdrop/internal/logging"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantLevel string
		wantCode  string
	}{
		{
			name:      "implicit ok",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("hi")) },
			wantLevel: "level=INFO",
			wantCode:  "status=200",
		},
		{
			name:      "client error",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) },
			wantLevel: "level=INFO",
			wantCode:  "status=400",
		},
		{
			name:      "server error",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantLevel: "level=ERROR",
			wantCode:  "status=500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

			h := chimw.RequestID(Logger(log)(tt.handler))
			req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
			h.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, tt.wantCode)
			assert.Contains(t, out, "method=POST")
			assert.Contains(t, out, "path=/api/upload")
			assert.Contains(t, out, "request_id=")
		})
	}
}
