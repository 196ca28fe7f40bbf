// Package datauri encodes and decodes base64 data URIs
// (data:<mime>;base64,<payload>).
package datauri

import (
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

const (
	Scheme       = "data:"
	base64Marker = ";base64,"
)

var ErrMalformed = errors.New("malformed data URI")

// Encode reads r to the end and returns it as a base64 data URI.
func Encode(mimeType string, r io.Reader) (string, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteString(mimeType)
	b.WriteString(base64Marker)

	enc := base64.NewEncoder(base64.StdEncoding, &b)
	if _, err := io.Copy(enc, r); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// IsDataURI reports whether s uses the data: scheme.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// Decode splits a base64 data URI into its media type and payload.
func Decode(uri string) (string, []byte, error) {
	if !IsDataURI(uri) {
		return "", nil, ErrMalformed
	}
	head, payload, ok := strings.Cut(strings.TrimPrefix(uri, Scheme), ",")
	if !ok || !strings.HasSuffix(head, ";base64") {
		return "", nil, ErrMalformed
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ErrMalformed
	}
	return strings.TrimSuffix(head, ";base64"), data, nil
}
