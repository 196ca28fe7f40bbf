// Package widget holds the upload widget's state machine: it filters dropped
// files, uploads each batch concurrently, tracks progress and keeps the list
// of uploaded files. It is front-end agnostic; a UI renders the State
// snapshots it publishes.
package widget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"blobdrop/internal/client"
)

var (
	ErrBatchInProgress = errors.New("a batch is already uploading")
	ErrFileNotFound    = errors.New("file not found")
)

// Uploader is satisfied by *client.Client.
type Uploader interface {
	Upload(ctx context.Context, f client.File, onProgress client.ProgressFunc) (*client.Result, error)
}

type Options struct {
	Filter Filter
	// OnChange receives a snapshot after every transition. It is called with
	// the widget locked, one call at a time, so it must not call back into the widget.
	OnChange   func(State)
	HTTPClient *http.Client // used by Download, defaults to http.DefaultClient
	Now        func() time.Time
}

type Widget struct {
	uploader Uploader
	opts     Options

	mu     sync.Mutex
	phase  Phase
	tasks  []*UploadTask
	files  []UploadedFile
	banner *Banner
}

func New(uploader Uploader, opts Options) *Widget {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Widget{
		uploader: uploader,
		opts:     opts,
		phase:    PhaseIdle,
	}
}

// Drop runs one batch: rejected files are reported without touching the
// network, accepted files upload concurrently and the call returns once every
// upload has settled. A failed file never cancels its siblings, and every
// success lands in the file list.
func (w *Widget) Drop(ctx context.Context, files []client.File) (*Report, error) {
	accepted, rejected := w.opts.Filter.Split(files)

	w.mu.Lock()
	if w.phase == PhaseUploading {
		w.mu.Unlock()
		return nil, ErrBatchInProgress
	}

	if len(accepted) == 0 {
		report := &Report{Rejected: rejected}
		if len(rejected) > 0 {
			w.banner = newBanner(report, len(files))
			w.emit()
		}
		w.mu.Unlock()
		return report, nil
	}

	w.tasks = make([]*UploadTask, len(accepted))
	for i, f := range accepted {
		w.tasks[i] = &UploadTask{File: f, Outcome: OutcomePending}
	}
	w.phase = PhaseUploading
	w.banner = nil
	w.emit()
	w.mu.Unlock()

	var g errgroup.Group
	results := make([]*client.Result, len(accepted))
	for i := range accepted {
		i := i
		g.Go(func() error {
			res, err := w.uploader.Upload(ctx, accepted[i], func(p float64) {
				w.setProgress(i, p)
			})
			results[i] = res
			w.settleTask(i, err)
			// failures stay on the task so siblings are unaffected
			return nil
		})
	}
	_ = g.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	report := &Report{Rejected: rejected}
	for i, task := range w.tasks {
		if task.Outcome == OutcomeFailed {
			report.Failed = append(report.Failed, Failure{Name: task.File.Name, Message: task.Err.Error()})
			continue
		}
		report.Uploaded = append(report.Uploaded, w.newUploadedFile(task.File, results[i]))
	}
	w.files = append(w.files, report.Uploaded...)

	w.phase = PhaseSettled
	w.banner = newBanner(report, len(files))
	for _, res := range results {
		if res != nil && res.Message != "" {
			w.banner.Notes = append(w.banner.Notes, res.Message)
		}
	}
	w.emit()

	w.phase = PhaseIdle
	w.tasks = nil
	w.emit()

	return report, nil
}

func (w *Widget) setProgress(i int, p float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	task := w.tasks[i]
	// checkpoints only ever move forward
	if p <= task.Progress || task.Outcome != OutcomePending {
		return
	}
	if p > 100 {
		p = 100
	}
	task.Progress = p
	w.emit()
}

func (w *Widget) settleTask(i int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	task := w.tasks[i]
	if err != nil {
		task.Outcome = OutcomeFailed
		task.Err = err
	} else {
		task.Outcome = OutcomeSuccess
		task.Progress = 100
	}
	w.emit()
}

func (w *Widget) newUploadedFile(f client.File, res *client.Result) UploadedFile {
	return UploadedFile{
		ID:         uuid.New(),
		Name:       f.Name,
		Size:       f.Size,
		MIMEType:   f.MIMEType,
		URL:        res.URL,
		Storage:    res.Storage,
		UploadedAt: w.opts.Now(),
	}
}

// Remove drops a file from the list. The blob itself stays where it is.
func (w *Widget) Remove(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, f := range w.files {
		if f.ID == id {
			w.files = append(w.files[:i:i], w.files[i+1:]...)
			w.emit()
			return true
		}
	}
	return false
}

// DismissBanner clears the message left by the last batch.
func (w *Widget) DismissBanner() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.banner != nil {
		w.banner = nil
		w.emit()
	}
}

func (w *Widget) Files() []UploadedFile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]UploadedFile(nil), w.files...)
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

// Preview returns how file id should be previewed.
func (w *Widget) Preview(id uuid.UUID) (Preview, error) {
	f, err := w.lookup(id)
	if err != nil {
		return Preview{}, err
	}
	return PreviewFor(f), nil
}

// Download writes the content of file id to dst.
func (w *Widget) Download(ctx context.Context, id uuid.UUID, dst io.Writer) error {
	f, err := w.lookup(id)
	if err != nil {
		return err
	}
	return fetch(ctx, w.opts.HTTPClient, f, dst)
}

func (w *Widget) lookup(id uuid.UUID) (UploadedFile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, f := range w.files {
		if f.ID == id {
			return f, nil
		}
	}
	return UploadedFile{}, fmt.Errorf("%w: %s", ErrFileNotFound, id)
}

// progress is the mean of per-task progress, every file weighted equally.
func (w *Widget) progress() float64 {
	if len(w.tasks) == 0 {
		return 0
	}
	var sum float64
	for _, t := range w.tasks {
		sum += t.Progress
	}
	return sum / float64(len(w.tasks))
}

// snapshot must be called with w.mu held.
func (w *Widget) snapshot() State {
	s := State{
		Phase:    w.phase,
		Progress: w.progress(),
		Files:    append([]UploadedFile(nil), w.files...),
	}
	for _, t := range w.tasks {
		ts := TaskState{Name: t.File.Name, Progress: t.Progress, Outcome: t.Outcome}
		if t.Err != nil {
			ts.Error = t.Err.Error()
		}
		s.Tasks = append(s.Tasks, ts)
	}
	if w.banner != nil {
		b := *w.banner
		s.Banner = &b
	}
	return s
}

// emit must be called with w.mu held.
func (w *Widget) emit() {
	if w.opts.OnChange != nil {
		w.opts.OnChange(w.snapshot())
	}
}

func newBanner(r *Report, dropped int) *Banner {
	b := &Banner{Failures: r.Failed, Rejected: r.Rejected}
	ok := len(r.Uploaded)

	switch {
	case ok > 0 && ok == dropped:
		b.Kind = BannerSuccess
		b.Text = fmt.Sprintf("Uploaded %d %s", ok, plural(ok, "file", "files"))
	case ok > 0:
		b.Kind = BannerPartial
		b.Text = fmt.Sprintf("Uploaded %d of %d files", ok, dropped)
	case len(r.Failed) > 0:
		b.Kind = BannerError
		b.Text = "Upload failed: " + r.Failed[0].Message
	default:
		b.Kind = BannerError
		b.Text = "No files were accepted: " + r.Rejected[0].Reason
	}
	return b
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
