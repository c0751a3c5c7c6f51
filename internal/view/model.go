package view

import "github.com/MimeLyc/qtube-dashboard/internal/selection"

// Model is everything a dashboard renders. It is derived, never stored.
type Model struct {
	Stats    Stats       `json:"stats"`
	Queue    QueuePanel  `json:"queue"`
	Jobs     []JobCard   `json:"jobs"`
	Selected *JobDetail  `json:"selected"`
	Cookies  CookieInfo  `json:"cookies"`
	Compose  ComposeForm `json:"compose"`
}

// Stats partitions the jobs list by status.
type Stats struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Queued     int `json:"queued"`
	Downloaded int `json:"downloaded"`
	Canceled   int `json:"canceled"`
	Unknown    int `json:"unknown"`
}

type QueuePanel struct {
	Loading      bool   `json:"loading"`
	Error        string `json:"error,omitempty"`
	Empty        bool   `json:"empty"`
	RefreshLabel string `json:"refresh_label"`
}

type JobCard struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Status       string `json:"status"`
	StatusLabel  string `json:"status_label"`
	KnownStatus  bool   `json:"known_status"`
	Progress     int    `json:"progress"`
	BatchLabel   string `json:"batch_label"`
	CreatedLabel string `json:"created_label"`
	Active       bool   `json:"active"`
	CanRemove    bool   `json:"can_remove"`
	RemoveError  string `json:"remove_error,omitempty"`
}

type MediaKind string

const (
	MediaNone  MediaKind = ""
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

type TranscriptState string

const (
	TranscriptNone    TranscriptState = "none"
	TranscriptLoading TranscriptState = "loading"
	TranscriptPending TranscriptState = "pending"
	TranscriptReady   TranscriptState = "ready"
	TranscriptError   TranscriptState = "error"
)

type TranscriptView struct {
	State    TranscriptState `json:"state"`
	Text     string          `json:"text,omitempty"`
	Message  string          `json:"message,omitempty"`
	Language string          `json:"language,omitempty"`
	URL      string          `json:"url,omitempty"`
}

type TimelineRow struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	TimeLabel string `json:"time_label"`
	Progress  *int   `json:"progress,omitempty"`
}

type JobDetail struct {
	ID          string         `json:"id"`
	ShortID     string         `json:"short_id"`
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle"`
	Status      string         `json:"status"`
	StatusLabel string         `json:"status_label"`
	KnownStatus bool           `json:"known_status"`
	Error       string         `json:"error,omitempty"`
	Progress    int            `json:"progress"`
	ShortBatch  string         `json:"short_batch"`
	Source      string         `json:"source"`
	Format      string         `json:"format"`
	MediaURL    string         `json:"media_url,omitempty"`
	MediaKind   MediaKind      `json:"media_kind,omitempty"`
	Transcript  TranscriptView `json:"transcript"`
	Timeline    []TimelineRow  `json:"timeline"`
	CanRemove   bool           `json:"can_remove"`
}

type CookieInfo struct {
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

type FormatChoice struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type ComposeForm struct {
	URL            string          `json:"url"`
	Phase          selection.Phase `json:"phase"`
	CanPreview     bool            `json:"can_preview"`
	CanSubmit      bool            `json:"can_submit"`
	Previewing     bool            `json:"previewing"`
	Submitting     bool            `json:"submitting"`
	Formats        []FormatChoice  `json:"formats"`
	FormatsEnabled bool            `json:"formats_enabled"`
	PreviewTitle   string          `json:"preview_title,omitempty"`
	PreviewByline  string          `json:"preview_byline,omitempty"`
	PreviewError   string          `json:"preview_error,omitempty"`
	SubmitStatus   string          `json:"submit_status"`
	SubmitMessage  string          `json:"submit_message,omitempty"`
}
