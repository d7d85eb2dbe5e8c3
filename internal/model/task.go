package model

import "github.com/google/uuid"

// TaskKind distinguishes the four asset kinds a manifest can yield.
type TaskKind int

const (
	KindPreviewPackage TaskKind = iota
	KindThumbnail
	KindPreviewImage
	KindExportPackage
)

// String returns the kind name used in the failure log and progress
// messages.
func (k TaskKind) String() string {
	switch k {
	case KindPreviewPackage:
		return "preview_file"
	case KindThumbnail:
		return "thumbnail"
	case KindPreviewImage:
		return "preview_image"
	case KindExportPackage:
		return "export_file"
	default:
		return "unknown"
	}
}

// Method is the HTTP method a task starts with. Export tasks POST to the
// catalog first to obtain a short-lived direct URL.
type Method int

const (
	MethodGet Method = iota
	MethodPost
)

// DownloadTask is one file download. It is created by the assets manager
// and owned by exactly one download worker for its lifetime.
type DownloadTask struct {
	// ID identifies the task in logs and outcomes.
	ID uuid.UUID

	ItemID ItemID
	Kind   TaskKind
	Method Method

	// URL is the primary download (or export POST) endpoint.
	URL string

	// FallbackURL, if set, replaces URL after a terminal 404/410.
	FallbackURL string

	// TargetRelPath is where the raw payload is archived inside the
	// item's staging tree.
	TargetRelPath string
}

// TaskOutcome is the terminal result of one DownloadTask.
type TaskOutcome struct {
	Task DownloadTask

	// Data holds the downloaded payload on success, nil on failure.
	Data []byte

	// Err is the terminal error, nil on success.
	Err error

	// Attempts is how many network attempts were made.
	Attempts int
}

// OK reports whether the task produced a payload.
func (o TaskOutcome) OK() bool {
	return o.Err == nil
}
