package view

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/MimeLyc/qtube-dashboard/internal/jobs"
	"github.com/MimeLyc/qtube-dashboard/internal/remote"
	"github.com/MimeLyc/qtube-dashboard/internal/selection"
)

const timeLayout = "2006-01-02 15:04:05"

// Transcript is the cached state of the selected job's transcript key.
type Transcript struct {
	Text string
	// Language is detected once per fetched text, see DetectLanguage.
	Language string
	Loaded   bool
	Loading  bool
	Err      error
}

// Input is a consistent read of the cache and selection state. Either side
// may be momentarily stale relative to the other.
type Input struct {
	Jobs        []jobs.Job
	JobsLoading bool
	JobsErr     error

	Selection  selection.Snapshot
	Events     []jobs.Event
	Transcript Transcript
	Settings   *jobs.Settings

	// APIBaseURL prefixes media and transcript links.
	APIBaseURL      string
	RefreshInterval time.Duration
}

// EffectiveJob resolves the selection against list: the selected job when
// still listed, otherwise the first job, otherwise nil.
func EffectiveJob(list []jobs.Job, selectedID string) *jobs.Job {
	if selectedID != "" {
		for i := range list {
			if list[i].ID == selectedID {
				return &list[i]
			}
		}
	}
	if len(list) == 0 {
		return nil
	}
	return &list[0]
}

// CountStatuses partitions list by status.
func CountStatuses(list []jobs.Job) Stats {
	stats := Stats{Total: len(list)}
	for _, job := range list {
		switch job.Status {
		case jobs.StatusDownloading, jobs.StatusTranscribing:
			stats.Active++
		case jobs.StatusCompleted:
			stats.Completed++
		case jobs.StatusFailed:
			stats.Failed++
		case jobs.StatusQueued:
			stats.Queued++
		case jobs.StatusDownloaded:
			stats.Downloaded++
		case jobs.StatusCanceled:
			stats.Canceled++
		default:
			stats.Unknown++
		}
	}
	return stats
}

// Build derives the view model. It has no side effects and reads no clock.
func Build(in Input) Model {
	sel := in.Selection
	effective := EffectiveJob(in.Jobs, sel.SelectedJobID)

	model := Model{
		Stats: CountStatuses(in.Jobs),
		Queue: QueuePanel{
			Loading:      in.JobsLoading,
			Empty:        !in.JobsLoading && len(in.Jobs) == 0,
			RefreshLabel: refreshLabel(in.RefreshInterval),
		},
		Jobs: make([]JobCard, 0, len(in.Jobs)),
		Cookies: CookieInfo{
			Label:   CookieStatus(in.Settings),
			Enabled: in.Settings != nil && in.Settings.CookiesConfigured,
		},
		Compose: buildCompose(sel),
	}
	if in.JobsErr != nil {
		model.Queue.Error = "Failed to load queue."
	}

	for _, job := range in.Jobs {
		card := buildCard(job)
		card.Active = effective != nil && effective.ID == job.ID
		if sel.RemoveError != nil && sel.RemoveError.JobID == job.ID {
			card.RemoveError = sel.RemoveError.Message
		}
		model.Jobs = append(model.Jobs, card)
	}

	if effective != nil {
		model.Selected = buildDetail(*effective, in)
	}
	return model
}

func refreshLabel(interval time.Duration) string {
	if interval <= 0 {
		return "Auto-refresh off"
	}
	return fmt.Sprintf("Auto-refreshes every %s", interval.Round(100*time.Millisecond))
}

func cardTitle(job jobs.Job) string {
	if t := deref(job.Title); t != "" {
		return t
	}
	if id := deref(job.VideoID); id != "" {
		return "Video " + id
	}
	return job.SourceURL
}

func cardSubtitle(job jobs.Job) string {
	if u := deref(job.Uploader); u != "" {
		return u
	}
	if u := deref(job.VideoURL); u != "" {
		return u
	}
	return job.SourceURL
}

func buildCard(job jobs.Job) JobCard {
	batch := "Single"
	if b := deref(job.BatchID); b != "" {
		batch = "Batch " + shorten(b, 8)
	}
	return JobCard{
		ID:           job.ID,
		Title:        cardTitle(job),
		Subtitle:     cardSubtitle(job),
		Status:       string(job.Status),
		StatusLabel:  job.Status.Label(),
		KnownStatus:  job.Status.Known(),
		Progress:     roundPercent(job.Progress),
		BatchLabel:   batch,
		CreatedLabel: timeLabel(job.CreatedAt),
		CanRemove:    job.Removable(),
	}
}

func buildDetail(job jobs.Job, in Input) *JobDetail {
	title := deref(job.Title)
	if title == "" {
		title = "Untitled video"
	}
	subtitle := deref(job.Uploader)
	if subtitle == "" {
		subtitle = job.SourceURL
	}
	source := deref(job.VideoURL)
	if source == "" {
		source = job.SourceURL
	}
	format := deref(job.RequestedFormat)
	if format == "" {
		format = selection.DefaultFormatID
	}
	shortBatch := "-"
	if b := deref(job.BatchID); b != "" {
		shortBatch = shorten(b, 12)
	}

	detail := &JobDetail{
		ID:          job.ID,
		ShortID:     shorten(job.ID, 12),
		Title:       title,
		Subtitle:    subtitle,
		Status:      string(job.Status),
		StatusLabel: job.Status.Label(),
		KnownStatus: job.Status.Known(),
		Error:       deref(job.Error),
		Progress:    roundPercent(job.Progress),
		ShortBatch:  shortBatch,
		Source:      source,
		Format:      format,
		Transcript:  buildTranscript(job, in),
		Timeline:    buildTimeline(job.ID, in.Events),
		CanRemove:   job.Removable(),
	}
	if job.HasMedia() {
		detail.MediaURL = jobLink(in.APIBaseURL, job.ID, "media")
		detail.MediaKind = MediaVideo
		if IsAudioFile(*job.DownloadPath) {
			detail.MediaKind = MediaAudio
		}
	}
	return detail
}

func buildTranscript(job jobs.Job, in Input) TranscriptView {
	if !job.HasTranscript() {
		return TranscriptView{State: TranscriptNone}
	}
	tv := TranscriptView{URL: jobLink(in.APIBaseURL, job.ID, "transcript")}
	t := in.Transcript
	switch {
	case t.Loaded && t.Text != "":
		tv.State = TranscriptReady
		tv.Text = t.Text
		tv.Language = t.Language
	case t.Err != nil && remote.IsNotFound(t.Err):
		tv.State = TranscriptPending
		tv.Message = "Transcript not available yet."
	case t.Err != nil:
		tv.State = TranscriptError
		tv.Message = errorText(t.Err)
	case t.Loading:
		tv.State = TranscriptLoading
	default:
		tv.State = TranscriptPending
		tv.Message = "No transcript yet."
	}
	return tv
}

func buildTimeline(jobID string, events []jobs.Event) []TimelineRow {
	ordered := make([]jobs.Event, 0, len(events))
	for _, ev := range events {
		if ev.JobID == "" || ev.JobID == jobID {
			ordered = append(ordered, ev)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	rows := make([]TimelineRow, 0, len(ordered))
	for _, ev := range ordered {
		row := TimelineRow{
			ID:        ev.ID,
			Type:      ev.EventType,
			Message:   ev.Message,
			TimeLabel: timeLabel(ev.CreatedAt),
		}
		if ev.Progress != nil {
			p := roundPercent(*ev.Progress)
			row.Progress = &p
		}
		rows = append(rows, row)
	}
	return rows
}

func buildCompose(sel selection.Snapshot) ComposeForm {
	previewing := sel.Phase == selection.PhasePreviewing
	submitting := sel.Submit.Status == selection.RequestLoading
	hasURL := strings.TrimSpace(sel.URL) != ""

	form := ComposeForm{
		URL:            sel.URL,
		Phase:          sel.Phase,
		CanPreview:     hasURL && !previewing,
		CanSubmit:      hasURL && !submitting,
		Previewing:     previewing,
		Submitting:     submitting,
		FormatsEnabled: len(sel.Formats) > 0,
		SubmitStatus:   string(sel.Submit.Status),
		SubmitMessage:  sel.Submit.Message,
	}

	form.Formats = make([]FormatChoice, 0, len(sel.Formats)+1)
	form.Formats = append(form.Formats, FormatChoice{
		ID:       selection.DefaultFormatID,
		Label:    "Default (best)",
		Selected: sel.SelectedFormatID == selection.DefaultFormatID,
	})
	for _, option := range sel.Formats {
		form.Formats = append(form.Formats, FormatChoice{
			ID:       option.FormatID,
			Label:    FormatOptionLabel(option),
			Selected: sel.SelectedFormatID == option.FormatID,
		})
	}

	if meta := sel.PreviewMeta; meta != nil {
		form.PreviewTitle = deref(meta.Title)
		if form.PreviewTitle == "" {
			form.PreviewTitle = "Untitled video"
		}
		uploader := deref(meta.Uploader)
		if uploader == "" {
			uploader = "Unknown uploader"
		}
		form.PreviewByline = uploader + " · " + FormatDuration(meta.Duration)
	}
	if sel.Preview.Status == selection.RequestError {
		form.PreviewError = sel.Preview.Message
	}
	return form
}

func timeLabel(ts jobs.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format(timeLayout)
}

func jobLink(base, jobID, suffix string) string {
	return strings.TrimRight(base, "/") + "/jobs/" + url.PathEscape(jobID) + "/" + suffix
}

// errorText prefers an operator-facing message carried by err.
func errorText(err error) string {
	var m interface{ UserMessage() string }
	if errors.As(err, &m) {
		return m.UserMessage()
	}
	return err.Error()
}
