package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MimeLyc/qtube-dashboard/internal/jobs"
	"github.com/MimeLyc/qtube-dashboard/internal/view"
	"github.com/stretchr/testify/assert"
)

func TestRenderModel_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderModel(&buf, view.Model{
		Queue:   view.QueuePanel{Empty: true, RefreshLabel: "Auto-refreshes every 4s"},
		Cookies: view.CookieInfo{Label: view.CookiesNotConfigured},
	})

	out := buf.String()
	assert.Contains(t, out, "No jobs.")
	assert.Contains(t, out, "Auto-refreshes every 4s")
	assert.Contains(t, out, "cookies: Not configured")
}

func TestRenderModel_StaleQueueWithError(t *testing.T) {
	var buf bytes.Buffer
	renderModel(&buf, view.Model{
		Queue: view.QueuePanel{Error: "Failed to load queue."},
		Jobs: []view.JobCard{
			{ID: "f1", StatusLabel: "Failed", Title: "Broken", Active: true, RemoveError: "locked"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Failed to load queue.")
	assert.Contains(t, out, "Broken")
	assert.Contains(t, out, "remove failed: locked")
	assert.True(t, strings.Contains(out, ">"), "active job is marked")
}

func TestRenderModel_Detail(t *testing.T) {
	p := 40
	var buf bytes.Buffer
	renderModel(&buf, view.Model{
		Selected: &view.JobDetail{
			Title:      "Clip",
			ShortID:    "abc",
			MediaURL:   "http://store/jobs/abc/media",
			MediaKind:  view.MediaAudio,
			Transcript: view.TranscriptView{State: view.TranscriptPending, Message: "Transcript not available yet."},
			Timeline:   []view.TimelineRow{{Type: "progress", Message: "downloading", Progress: &p}},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Clip (abc)")
	assert.Contains(t, out, "http://store/jobs/abc/media (audio)")
	assert.Contains(t, out, "Transcript not available yet.")
	assert.Contains(t, out, "40%")
}

func TestPromptConfirm(t *testing.T) {
	title := "Clip"
	tests := []struct {
		answer string
		want   bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		confirm := promptConfirm(strings.NewReader(tt.answer), &out)
		assert.Equal(t, tt.want, confirm(jobs.Job{ID: "f1", Title: &title}), "answer %q", tt.answer)
		assert.Contains(t, out.String(), "Remove Clip (f1)")
	}
}

func TestShortText(t *testing.T) {
	assert.Equal(t, "short", shortText("short", 10))
	assert.Equal(t, "abcdefg...", shortText("abcdefghijklmnop", 10))
}
