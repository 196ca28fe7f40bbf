package widget

import (
	"fmt"
	"path/filepath"
	"strings"

	"blobdrop/internal/client"
)

// Filter decides which dropped files may be uploaded at all.
type Filter struct {
	MaxFileSize int64 // 0 disables the check
	// AcceptedTypes holds MIME types ("text/plain"), wildcards ("image/*")
	// or extensions (".pdf"). Empty accepts everything.
	AcceptedTypes []string
}

// Split separates acceptable files from rejected ones, keeping drop order.
func (f Filter) Split(files []client.File) ([]client.File, []Rejection) {
	var accepted []client.File
	var rejected []Rejection

	for _, file := range files {
		if reason := f.check(file); reason != "" {
			rejected = append(rejected, Rejection{Name: file.Name, Size: file.Size, Reason: reason})
			continue
		}
		accepted = append(accepted, file)
	}
	return accepted, rejected
}

func (f Filter) check(file client.File) string {
	if f.MaxFileSize > 0 && file.Size > f.MaxFileSize {
		return fmt.Sprintf("File is larger than %s", FormatSize(f.MaxFileSize))
	}
	if len(f.AcceptedTypes) > 0 && !f.accepts(file) {
		mimeType := file.MIMEType
		if mimeType == "" {
			mimeType = "unknown"
		}
		return fmt.Sprintf("File type %s is not accepted", mimeType)
	}
	return ""
}

func (f Filter) accepts(file client.File) bool {
	mimeType := strings.ToLower(file.MIMEType)
	ext := strings.ToLower(filepath.Ext(file.Name))

	for _, pattern := range f.AcceptedTypes {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		switch {
		case strings.HasPrefix(pattern, "."):
			if ext == pattern {
				return true
			}
		case strings.HasSuffix(pattern, "/*"):
			if strings.HasPrefix(mimeType, strings.TrimSuffix(pattern, "*")) {
				return true
			}
		case pattern == mimeType:
			return true
		}
	}
	return false
}
