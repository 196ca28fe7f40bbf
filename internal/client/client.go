// Package client talks to the upload endpoint on behalf of the widget.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// Progress checkpoints reported around the request lifecycle.
const (
	ProgressStarted  = 10
	ProgressSending  = 30
	ProgressReceived = 70
	ProgressDone     = 100
)

// ProgressFunc receives a percentage between 0 and 100. It may be nil.
type ProgressFunc func(percent float64)

type StorageKind string

const (
	StorageRemote StorageKind = "remote"
	StorageInline StorageKind = "inline"
)

// Result of a successful upload.
type Result struct {
	URL      string
	Fallback bool
	Message  string
	Storage  StorageKind
}

// Health is the endpoint's self-report.
type Health struct {
	Status         string    `json:"status"`
	BlobConfigured bool      `json:"blobConfigured"`
	Timestamp      time.Time `json:"timestamp"`
	Environment    string    `json:"environment"`
}

// Error is any failed upload. Message is meant for the user.
type Error struct {
	StatusCode int // 0 when the request never got a response
	Message    string
	Details    string
	Err        error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New returns a client for the upload endpoint URL, e.g. "http://localhost:8080/api/upload".
// A nil httpClient means http.DefaultClient.
func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

type uploadResponse struct {
	URL      string `json:"url"`
	Fallback bool   `json:"fallback"`
	Message  string `json:"message"`
	Storage  string `json:"storage"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Upload posts f as the single "file" field. Progress is synthetic: it moves
// through fixed checkpoints and reaches 100 only on success.
func (c *Client) Upload(ctx context.Context, f File, onProgress ProgressFunc) (*Result, error) {
	report := func(p float64) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	report(ProgressStarted)

	src, err := f.Open()
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("cannot read %s", f.Name), Err: err}
	}
	defer src.Close()

	body, contentType := multipartBody(f, src)
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, &Error{Message: "invalid upload endpoint", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	report(ProgressSending)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: "upload request failed", Details: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	report(ProgressReceived)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: "failed to read upload response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(resp, raw)
	}

	var out uploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: "malformed upload response", Details: string(raw), Err: err}
	}
	if out.URL == "" {
		return nil, &Error{StatusCode: resp.StatusCode, Message: "upload response has no url"}
	}

	report(ProgressDone)

	return &Result{
		URL:      out.URL,
		Fallback: out.Fallback,
		Message:  out.Message,
		Storage:  storageKind(out),
	}, nil
}

// Health calls GET on the endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned %d", resp.StatusCode)
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &h, nil
}

// multipartBody streams a one-part form through a pipe so the file is never
// held in memory twice.
func multipartBody(f File, src io.Reader) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(f.Name)))
		mimeType := f.MIMEType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		header.Set("Content-Type", mimeType)

		part, err := mw.CreatePart(header)
		if err == nil {
			_, err = io.Copy(part, src)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// responseError turns a non-2xx response into an Error, preferring the JSON
// "error" field and falling back to the raw body text.
func responseError(resp *http.Response, raw []byte) *Error {
	e := &Error{StatusCode: resp.StatusCode}

	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		e.Message = body.Error
		e.Details = body.Details
		return e
	}

	if text := strings.TrimSpace(string(raw)); text != "" {
		e.Message = text
		return e
	}

	e.Message = fmt.Sprintf("Upload failed: %s", http.StatusText(resp.StatusCode))
	return e
}

func storageKind(out uploadResponse) StorageKind {
	switch {
	case out.Storage == string(StorageInline), out.Fallback:
		return StorageInline
	default:
		return StorageRemote
	}
}
