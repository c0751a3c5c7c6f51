package selection

import "github.com/MimeLyc/qtube-dashboard/internal/jobs"

// DefaultFormatID is the synthetic format meaning "let the server pick".
const DefaultFormatID = "best"

// Phase of the preview-to-submit workflow.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePreviewing Phase = "previewing"
	PhasePreviewed  Phase = "previewed"
)

// RequestStatus tracks one user-triggered request.
type RequestStatus string

const (
	RequestIdle    RequestStatus = "idle"
	RequestLoading RequestStatus = "loading"
	RequestSuccess RequestStatus = "success"
	RequestError   RequestStatus = "error"
)

type RequestState struct {
	Status  RequestStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}

type PreviewMeta struct {
	Title    *string  `json:"title"`
	Uploader *string  `json:"uploader"`
	Duration *float64 `json:"duration"`
}

// RemoveError is the last failed removal, shown next to its job.
type RemoveError struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// Snapshot is an immutable copy of the selection state.
type Snapshot struct {
	SelectedJobID    string              `json:"selected_job_id"`
	URL              string              `json:"url"`
	PreviewedURL     string              `json:"previewed_url"`
	Formats          []jobs.FormatOption `json:"formats"`
	SelectedFormatID string              `json:"selected_format_id"`
	PreviewMeta      *PreviewMeta        `json:"preview_meta"`
	Preview          RequestState        `json:"preview"`
	Submit           RequestState        `json:"submit"`
	RemoveError      *RemoveError        `json:"remove_error,omitempty"`
	Phase            Phase               `json:"phase"`
}

// PreviewTicket identifies one preview request. Only the latest ticket may
// apply its result.
type PreviewTicket struct {
	URL string
	seq uint64
}
