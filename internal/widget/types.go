package widget

import (
	"time"

	"github.com/google/uuid"

	"blobdrop/internal/client"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseUploading Phase = "uploading"
	PhaseSettled   Phase = "settled"
)

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// UploadedFile is an entry of the file list. It is never mutated after creation.
type UploadedFile struct {
	ID         uuid.UUID
	Name       string
	Size       int64
	MIMEType   string
	URL        string
	Storage    client.StorageKind
	UploadedAt time.Time
}

// Inline reports whether the file lives in its URL rather than in blob storage.
func (f UploadedFile) Inline() bool {
	return f.Storage == client.StorageInline
}

// UploadTask tracks one file of the active batch.
type UploadTask struct {
	File     client.File
	Progress float64
	Outcome  Outcome
	Err      error
}

// Rejection is a file turned away before any network call.
type Rejection struct {
	Name   string
	Size   int64
	Reason string
}

// Failure is a file whose upload reached the network and failed.
type Failure struct {
	Name    string
	Message string
}

type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerPartial BannerKind = "partial"
	BannerError   BannerKind = "error"
)

// Banner is what the widget shows once a batch settles.
type Banner struct {
	Kind     BannerKind
	Text     string
	Notes    []string // e.g. inline fallback messages
	Failures []Failure
	Rejected []Rejection
}

// TaskState is the read-only view of an UploadTask.
type TaskState struct {
	Name     string
	Progress float64
	Outcome  Outcome
	Error    string
}

// State is a snapshot handed to listeners.
type State struct {
	Phase    Phase
	Progress float64
	Tasks    []TaskState
	Files    []UploadedFile
	Banner   *Banner
}

// Report is the outcome of one Drop.
type Report struct {
	Uploaded []UploadedFile
	Failed   []Failure
	Rejected []Rejection
}
