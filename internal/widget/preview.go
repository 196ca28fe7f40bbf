package widget

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"blobdrop/internal/datauri"
)

// Icon is the file-type glyph shown next to a list entry.
type Icon string

const (
	IconImage Icon = "image"
	IconVideo Icon = "video"
	IconAudio Icon = "audio"
	IconFile  Icon = "file"
)

// PreviewKind is how a file is previewed.
type PreviewKind string

const (
	PreviewImage    PreviewKind = "image"
	PreviewVideo    PreviewKind = "video"
	PreviewAudio    PreviewKind = "audio"
	PreviewExternal PreviewKind = "external" // no inline preview, offer "open externally"
)

type Preview struct {
	Kind PreviewKind
	URL  string
	Name string
}

func IconFor(mimeType string) Icon {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return IconImage
	case strings.HasPrefix(mimeType, "video/"):
		return IconVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return IconAudio
	default:
		return IconFile
	}
}

func PreviewFor(f UploadedFile) Preview {
	p := Preview{URL: f.URL, Name: f.Name}
	switch IconFor(f.MIMEType) {
	case IconImage:
		p.Kind = PreviewImage
	case IconVideo:
		p.Kind = PreviewVideo
	case IconAudio:
		p.Kind = PreviewAudio
	default:
		p.Kind = PreviewExternal
	}
	return p
}

// FormatSize renders a byte count for the file list, e.g. "10 B" or "1.5 KiB".
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// fetch copies the file's content into dst. Inline files are decoded locally;
// remote ones are downloaded from their public URL.
func fetch(ctx context.Context, httpClient *http.Client, f UploadedFile, dst io.Writer) error {
	if f.Inline() {
		_, data, err := datauri.Decode(f.URL)
		if err != nil {
			return fmt.Errorf("decode %s: %w", f.Name, err)
		}
		_, err = dst.Write(data)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", f.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %d", f.Name, resp.StatusCode)
	}
	_, err = io.Copy(dst, resp.Body)
	return err
}
