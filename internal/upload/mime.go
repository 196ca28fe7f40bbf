package upload

import (
	"io"
	"mime"
	"net/http"
	"strings"
)

const octetStream = "application/octet-stream"

// DetermineMimeType sniffs the first 512 bytes and rewinds the file.
func DetermineMimeType(file io.ReadSeeker) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return http.DetectContentType(buf[:n]), nil
}

// resolveContentType prefers the type the client declared for the part and
// falls back to sniffing. Parameters such as charset are dropped so the type
// can go straight into a data URI.
func resolveContentType(declared string, file io.ReadSeeker) string {
	contentType := normalizeMediaType(declared)
	if contentType != "" && contentType != octetStream {
		return contentType
	}

	sniffed, err := DetermineMimeType(file)
	if err != nil {
		return octetStream
	}
	return normalizeMediaType(sniffed)
}

func normalizeMediaType(v string) string {
	if v == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}
