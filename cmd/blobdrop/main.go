package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"blobdrop/internal/client"
	"blobdrop/internal/config"
	"blobdrop/internal/widget"
)

const defaultEndpoint = "http://localhost:8080/api/upload"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "upload":
		err = runUpload(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("🚨 %v", err)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  blobdrop upload [-endpoint URL] [-timeout D] file...")
	fmt.Println("  blobdrop health [-endpoint URL] [-timeout D] [-probe]")
}

func runUpload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	endpoint := fs.String("endpoint", defaultEndpoint, "Upload endpoint URL")
	timeout := fs.Duration("timeout", 0, "Timeout for the whole batch (0 means none)")
	fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("no files given")
	}

	uploadConfig, err := config.LoadUploadConfig()
	if err != nil {
		return err
	}

	files := make([]client.File, 0, fs.NArg())
	for _, path := range fs.Args() {
		f, err := client.FromPath(path)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	httpClient := &http.Client{}
	w := widget.New(client.New(*endpoint, httpClient), widget.Options{
		Filter: widget.Filter{
			MaxFileSize:   uploadConfig.Widget.MaxFileSizeBytes,
			AcceptedTypes: uploadConfig.Widget.AcceptedTypes,
		},
		OnChange:   renderProgress,
		HTTPClient: httpClient,
	})

	ctx, cancel := withTimeout(ctx, *timeout)
	defer cancel()

	report, err := w.Drop(ctx, files)
	if err != nil {
		return err
	}

	printBanner(w.State().Banner)
	for _, f := range report.Uploaded {
		fmt.Printf("  %-8s %-32s %10s  %s\n", widget.IconFor(f.MIMEType), f.Name, widget.FormatSize(f.Size), displayURL(f))
	}
	if len(report.Uploaded) == 0 {
		return fmt.Errorf("nothing was uploaded")
	}
	return nil
}

func runHealth(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	endpoint := fs.String("endpoint", defaultEndpoint, "Upload endpoint URL")
	probe := fs.Bool("probe", false, "Also upload a small test file")
	timeout := fs.Duration("timeout", 0, "Timeout for the check (0 means none)")
	fs.Parse(args)

	ctx, cancel := withTimeout(ctx, *timeout)
	defer cancel()

	c := client.New(*endpoint, &http.Client{})

	h, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	fmt.Printf("✅ %s (environment: %s, storage configured: %t, at %s)\n",
		h.Status, h.Environment, h.BlobConfigured, h.Timestamp.Format(time.RFC3339))

	if !*probe {
		return nil
	}

	payload := fmt.Sprintf("blobdrop probe %s\n", time.Now().UTC().Format(time.RFC3339))
	res, err := c.Upload(ctx, client.FromBytes("test.txt", "text/plain", []byte(payload)), nil)
	if err != nil {
		return fmt.Errorf("probe upload failed: %w", err)
	}
	if res.Storage == client.StorageInline {
		fmt.Printf("⚠️  Probe stored inline: %s\n", res.Message)
		return nil
	}
	fmt.Printf("✅ Probe uploaded: %s\n", res.URL)
	return nil
}

// withTimeout applies d only when it is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func renderProgress(s widget.State) {
	if s.Phase != widget.PhaseUploading {
		return
	}
	width := 40
	completed := int(float64(width) * s.Progress / 100)
	bar := strings.Repeat("█", completed) + strings.Repeat("░", width-completed)
	fmt.Printf("\r⬆️  Uploading %d file(s)... [%s] %.0f%%", len(s.Tasks), bar, s.Progress)
}

func printBanner(b *widget.Banner) {
	if b == nil {
		return
	}
	fmt.Println()
	switch b.Kind {
	case widget.BannerSuccess:
		fmt.Printf("✅ %s\n", b.Text)
	case widget.BannerPartial:
		fmt.Printf("⚠️  %s\n", b.Text)
	default:
		fmt.Printf("🚨 %s\n", b.Text)
	}
	for _, note := range b.Notes {
		fmt.Printf("   note: %s\n", note)
	}
	for _, f := range b.Failures {
		fmt.Printf("   failed:   %s: %s\n", f.Name, f.Message)
	}
	for _, r := range b.Rejected {
		fmt.Printf("   rejected: %s: %s\n", r.Name, r.Reason)
	}
}

// data URIs are too long to print in full
func displayURL(f widget.UploadedFile) string {
	if f.Inline() {
		return "(stored inline)"
	}
	return f.URL
}
