package jobs

// Job is one requested download + transcription task as reported by the job
// store. Nullable server fields are pointers.
type Job struct {
	ID              string     `json:"id"`
	BatchID         *string    `json:"batch_id"`
	SourceURL       string     `json:"source_url"`
	VideoURL        *string    `json:"video_url"`
	VideoID         *string    `json:"video_id"`
	Title           *string    `json:"title"`
	Uploader        *string    `json:"uploader"`
	RequestedFormat *string    `json:"requested_format"`
	Status          Status     `json:"status"`
	Progress        float64    `json:"progress"`
	DownloadPath    *string    `json:"download_path"`
	TranscriptPath  *string    `json:"transcript_path"`
	Error           *string    `json:"error"`
	CreatedAt       Timestamp  `json:"created_at"`
	UpdatedAt       Timestamp  `json:"updated_at"`
	StartedAt       *Timestamp `json:"started_at"`
	FinishedAt      *Timestamp `json:"finished_at"`
}

// HasMedia reports whether a downloaded file exists for the job.
func (j Job) HasMedia() bool {
	return j.DownloadPath != nil && *j.DownloadPath != ""
}

// HasTranscript reports whether a transcript exists for the job.
func (j Job) HasTranscript() bool {
	return j.TranscriptPath != nil && *j.TranscriptPath != ""
}

// Removable reports whether the job may be removed from the queue. Only failed
// jobs qualify so in-flight or finished work is never deleted from here.
func (j Job) Removable() bool {
	return j.Status == StatusFailed
}

// Event is an append-only timeline entry of a job.
type Event struct {
	ID        int64     `json:"id"`
	JobID     string    `json:"job_id"`
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	Progress  *float64  `json:"progress"`
	CreatedAt Timestamp `json:"created_at"`
}

type JobList struct {
	Jobs  []Job `json:"jobs"`
	Total int   `json:"total"`
}

// Settings is the global job store configuration visible to the dashboard.
type Settings struct {
	CookiesConfigured bool    `json:"cookies_configured"`
	CookiesPath       *string `json:"cookies_path"`
}

// FormatOption is one downloadable variant returned by a preview.
type FormatOption struct {
	FormatID       string   `json:"format_id"`
	Ext            *string  `json:"ext"`
	Resolution     *string  `json:"resolution"`
	Width          *int     `json:"width"`
	Height         *int     `json:"height"`
	FPS            *float64 `json:"fps"`
	Filesize       *int64   `json:"filesize"`
	FilesizeApprox *int64   `json:"filesize_approx"`
	VCodec         *string  `json:"vcodec"`
	ACodec         *string  `json:"acodec"`
	FormatNote     *string  `json:"format_note"`
	TBR            *float64 `json:"tbr"`
	AudioChannels  *int     `json:"audio_channels"`
	HasAudio       bool     `json:"has_audio"`
	HasVideo       bool     `json:"has_video"`
}

// Preview is the read-only format listing for a URL.
type Preview struct {
	Title      *string        `json:"title"`
	Uploader   *string        `json:"uploader"`
	Duration   *float64       `json:"duration"`
	WebpageURL *string        `json:"webpage_url"`
	Thumbnail  *string        `json:"thumbnail"`
	Formats    []FormatOption `json:"formats"`
}

type CreateRequest struct {
	URL      string  `json:"url"`
	FormatID *string `json:"format_id,omitempty"`
}

type CreateResponse struct {
	BatchID string `json:"batch_id"`
	Message string `json:"message"`
}

type DeleteResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}
