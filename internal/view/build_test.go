package view

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MimeLyc/qtube-dashboard/internal/jobs"
	"github.com/MimeLyc/qtube-dashboard/internal/remote"
	"github.com/MimeLyc/qtube-dashboard/internal/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func job(id string, status jobs.Status) jobs.Job {
	return jobs.Job{
		ID:        id,
		SourceURL: "https://www.youtube.com/watch?v=" + id,
		Status:    status,
		CreatedAt: jobs.Timestamp{Time: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
	}
}

func idleSelection() selection.Snapshot {
	return selection.New().Snapshot()
}

func TestCountStatuses_Partition(t *testing.T) {
	list := []jobs.Job{
		job("a", jobs.StatusQueued),
		job("b", jobs.StatusDownloading),
		job("c", jobs.StatusDownloaded),
		job("d", jobs.StatusTranscribing),
		job("e", jobs.StatusCompleted),
		job("f", jobs.StatusFailed),
		job("g", jobs.StatusCanceled),
		job("h", jobs.Status("paused")),
	}
	s := CountStatuses(list)

	assert.Equal(t, 8, s.Total)
	assert.Equal(t, 2, s.Active)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Unknown)
	assert.Equal(t, s.Total, s.Active+s.Completed+s.Failed+s.Queued+s.Downloaded+s.Canceled+s.Unknown)
}

func TestEffectiveJob_FallsBackToFirst(t *testing.T) {
	list := []jobs.Job{job("a", jobs.StatusQueued), job("b", jobs.StatusQueued)}

	require.NotNil(t, EffectiveJob(list, "b"))
	assert.Equal(t, "b", EffectiveJob(list, "b").ID)

	for i := 0; i < 3; i++ {
		got := EffectiveJob(list, "gone")
		require.NotNil(t, got)
		assert.Equal(t, "a", got.ID)
	}
	assert.Equal(t, "a", EffectiveJob(list, "").ID)
	assert.Nil(t, EffectiveJob(nil, "gone"))
}

func TestBuild_RemoveOnlyForFailed(t *testing.T) {
	model := Build(Input{
		Jobs:      []jobs.Job{job("f", jobs.StatusFailed), job("d", jobs.StatusDownloading)},
		Selection: idleSelection(),
	})

	require.Len(t, model.Jobs, 2)
	assert.True(t, model.Jobs[0].CanRemove)
	assert.False(t, model.Jobs[1].CanRemove)
	assert.True(t, model.Jobs[0].Active, "first job is the effective selection")
}

func TestBuild_AudioWithoutTranscript(t *testing.T) {
	j := job("t1", jobs.StatusTranscribing)
	j.DownloadPath = strPtr("clip.mp3")

	model := Build(Input{
		Jobs:       []jobs.Job{j},
		Selection:  idleSelection(),
		APIBaseURL: "http://api:8000/",
	})

	require.NotNil(t, model.Selected)
	assert.Equal(t, MediaAudio, model.Selected.MediaKind)
	assert.Equal(t, "http://api:8000/jobs/t1/media", model.Selected.MediaURL)
	assert.Equal(t, TranscriptNone, model.Selected.Transcript.State)
}

func TestBuild_VideoMediaKind(t *testing.T) {
	j := job("v1", jobs.StatusDownloaded)
	j.DownloadPath = strPtr("/data/clip.mp4")

	model := Build(Input{Jobs: []jobs.Job{j}, Selection: idleSelection()})

	require.NotNil(t, model.Selected)
	assert.Equal(t, MediaVideo, model.Selected.MediaKind)
}

func TestBuild_TranscriptStates(t *testing.T) {
	j := job("c1", jobs.StatusCompleted)
	j.TranscriptPath = strPtr("/data/c1.txt")
	base := Input{Jobs: []jobs.Job{j}, Selection: idleSelection()}

	tests := []struct {
		name       string
		transcript Transcript
		want       TranscriptState
	}{
		{"loading", Transcript{Loading: true}, TranscriptLoading},
		{"not found is pending", Transcript{Err: fmt.Errorf("get transcript: %w", &remote.HTTPError{StatusCode: 404, Message: "nope"})}, TranscriptPending},
		{"server error", Transcript{Err: errors.New("boom")}, TranscriptError},
		{"ready", Transcript{Loaded: true, Text: "hello"}, TranscriptReady},
		{"stale text wins over error", Transcript{Loaded: true, Text: "hello", Err: errors.New("boom")}, TranscriptReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			in.Transcript = tt.transcript
			model := Build(in)
			require.NotNil(t, model.Selected)
			assert.Equal(t, tt.want, model.Selected.Transcript.State)
		})
	}
}

func TestBuild_TranscriptLanguagePassedThrough(t *testing.T) {
	j := job("c1", jobs.StatusCompleted)
	j.TranscriptPath = strPtr("/data/c1.txt")

	model := Build(Input{
		Jobs:       []jobs.Job{j},
		Selection:  idleSelection(),
		Transcript: Transcript{Loaded: true, Text: "bonjour", Language: "French"},
	})

	require.NotNil(t, model.Selected)
	assert.Equal(t, TranscriptReady, model.Selected.Transcript.State)
	assert.Equal(t, "French", model.Selected.Transcript.Language)
}

func TestBuild_CardFallbacks(t *testing.T) {
	withVideoID := job("a", jobs.StatusQueued)
	withVideoID.VideoID = strPtr("abc")
	withVideoID.VideoURL = strPtr("https://youtu.be/abc")
	withVideoID.BatchID = strPtr("0123456789abcdef")

	bare := job("b", jobs.StatusQueued)

	model := Build(Input{Jobs: []jobs.Job{withVideoID, bare}, Selection: idleSelection()})

	assert.Equal(t, "Video abc", model.Jobs[0].Title)
	assert.Equal(t, "https://youtu.be/abc", model.Jobs[0].Subtitle)
	assert.Equal(t, "Batch 01234567", model.Jobs[0].BatchLabel)
	assert.Equal(t, "2024-05-01 10:30:00", model.Jobs[0].CreatedLabel)

	assert.Equal(t, bare.SourceURL, model.Jobs[1].Title)
	assert.Equal(t, "Single", model.Jobs[1].BatchLabel)
}

func TestBuild_UnknownStatusLabel(t *testing.T) {
	model := Build(Input{Jobs: []jobs.Job{job("x", jobs.Status("exploded"))}, Selection: idleSelection()})

	assert.Equal(t, "Unknown", model.Jobs[0].StatusLabel)
	assert.False(t, model.Jobs[0].KnownStatus)
}

func TestBuild_TimelineOrderedByID(t *testing.T) {
	p := 42.4
	events := []jobs.Event{
		{ID: 3, JobID: "a", EventType: "progress", Progress: &p},
		{ID: 1, JobID: "a", EventType: "created"},
		{ID: 2, JobID: "a", EventType: "started"},
	}
	model := Build(Input{Jobs: []jobs.Job{job("a", jobs.StatusDownloading)}, Events: events, Selection: idleSelection()})

	require.NotNil(t, model.Selected)
	rows := model.Selected.Timeline
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{rows[0].ID, rows[1].ID, rows[2].ID})
	require.NotNil(t, rows[2].Progress)
	assert.Equal(t, 42, *rows[2].Progress)
}

func TestBuild_QueuePanel(t *testing.T) {
	stale := []jobs.Job{job("a", jobs.StatusQueued)}
	model := Build(Input{
		Jobs:            stale,
		JobsErr:         errors.New("offline"),
		Selection:       idleSelection(),
		RefreshInterval: 4 * time.Second,
	})

	assert.Equal(t, "Failed to load queue.", model.Queue.Error)
	assert.Len(t, model.Jobs, 1, "stale data stays visible")
	assert.Equal(t, "Auto-refreshes every 4s", model.Queue.RefreshLabel)

	empty := Build(Input{Selection: idleSelection()})
	assert.True(t, empty.Queue.Empty)
	assert.Nil(t, empty.Selected)
}

func TestBuild_ComposeForm(t *testing.T) {
	state := selection.New()
	state.SetURL("https://example.com/v")
	ticket, ok := state.BeginPreview()
	require.True(t, ok)
	title := "Clip"
	state.CompletePreview(ticket, &jobs.Preview{
		Title:   &title,
		Formats: []jobs.FormatOption{{FormatID: "18"}},
	})

	model := Build(Input{Selection: state.Snapshot()})
	form := model.Compose

	assert.Equal(t, selection.PhasePreviewed, form.Phase)
	assert.True(t, form.CanSubmit)
	assert.True(t, form.FormatsEnabled)
	require.Len(t, form.Formats, 2)
	assert.Equal(t, "Default (best)", form.Formats[0].Label)
	assert.True(t, form.Formats[0].Selected)
	assert.Equal(t, "Clip", form.PreviewTitle)
	assert.Equal(t, "Unknown uploader · Unknown duration", form.PreviewByline)
}

func TestBuild_RemoveErrorShownOnCard(t *testing.T) {
	state := selection.New()
	state.FailRemove("f", "locked")

	model := Build(Input{Jobs: []jobs.Job{job("f", jobs.StatusFailed)}, Selection: state.Snapshot()})

	assert.Equal(t, "locked", model.Jobs[0].RemoveError)
}

func TestBuild_Deterministic(t *testing.T) {
	j := job("a", jobs.StatusCompleted)
	j.TranscriptPath = strPtr("a.txt")
	in := Input{
		Jobs:       []jobs.Job{j, job("b", jobs.StatusFailed)},
		Selection:  idleSelection(),
		Transcript: Transcript{Loaded: true, Text: "hello there"},
		Settings:   &jobs.Settings{CookiesConfigured: true},
	}

	assert.Equal(t, Build(in), Build(in))
}
