package client

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// File is one file picked by the user.
type File struct {
	Name     string
	Size     int64
	MIMEType string
	Open     func() (io.ReadCloser, error)
}

// FromBytes wraps an in-memory payload.
func FromBytes(name, mimeType string, data []byte) File {
	return File{
		Name:     name,
		Size:     int64(len(data)),
		MIMEType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromPath describes a file on disk. The MIME type comes from the extension,
// falling back to sniffing the first bytes.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType, err = sniff(path)
		if err != nil {
			return File{}, err
		}
	}
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}

	return File{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MIMEType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
