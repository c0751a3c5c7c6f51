package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/MimeLyc/qtube-dashboard/internal/jobs"
	"github.com/MimeLyc/qtube-dashboard/internal/view"
)

const clearScreen = "\033[H\033[2J"

func renderModel(w io.Writer, model view.Model) {
	s := model.Stats
	fmt.Fprintf(w, "Jobs %d  active %d  completed %d  failed %d  cookies: %s\n",
		s.Total, s.Active, s.Completed, s.Failed, model.Cookies.Label)
	if model.Queue.RefreshLabel != "" {
		fmt.Fprintln(w, model.Queue.RefreshLabel)
	}
	fmt.Fprintln(w)

	switch {
	case model.Queue.Loading && len(model.Jobs) == 0:
		fmt.Fprintln(w, "Loading queue...")
	case model.Queue.Empty:
		fmt.Fprintln(w, "No jobs.")
	default:
		renderJobs(w, model.Jobs)
	}
	if model.Queue.Error != "" {
		fmt.Fprintln(w, model.Queue.Error)
	}

	if d := model.Selected; d != nil {
		fmt.Fprintln(w)
		renderDetail(w, d)
	}
}

func renderJobs(w io.Writer, cards []view.JobCard) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " \tID\tSTATUS\tPROGRESS\tBATCH\tCREATED\tTITLE")
	for _, c := range cards {
		marker := " "
		if c.Active {
			marker = ">"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\t%s\t%s\n",
			marker, c.ID, c.StatusLabel, c.Progress, c.BatchLabel, c.CreatedLabel, shortText(c.Title, 64))
		if c.RemoveError != "" {
			fmt.Fprintf(tw, " \t \t \t \t \t \t  remove failed: %s\n", c.RemoveError)
		}
	}
	_ = tw.Flush()
}

func renderDetail(w io.Writer, d *view.JobDetail) {
	fmt.Fprintf(w, "%s (%s)\n", d.Title, d.ShortID)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Status\t%s %d%%\n", d.StatusLabel, d.Progress)
	fmt.Fprintf(tw, "By\t%s\n", d.Subtitle)
	fmt.Fprintf(tw, "Batch\t%s\n", d.ShortBatch)
	fmt.Fprintf(tw, "Source\t%s\n", d.Source)
	fmt.Fprintf(tw, "Format\t%s\n", d.Format)
	if d.Error != "" {
		fmt.Fprintf(tw, "Error\t%s\n", d.Error)
	}
	if d.MediaURL != "" {
		fmt.Fprintf(tw, "Media\t%s (%s)\n", d.MediaURL, d.MediaKind)
	}
	switch d.Transcript.State {
	case view.TranscriptReady:
		lang := d.Transcript.Language
		if lang == "" {
			lang = "language unknown"
		}
		fmt.Fprintf(tw, "Transcript\t%s (%s)\n", d.Transcript.URL, lang)
	case view.TranscriptLoading:
		fmt.Fprintf(tw, "Transcript\tloading...\n")
	case view.TranscriptPending, view.TranscriptError:
		fmt.Fprintf(tw, "Transcript\t%s\n", d.Transcript.Message)
	}
	_ = tw.Flush()

	if len(d.Timeline) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tPROGRESS\tMESSAGE")
	for _, row := range d.Timeline {
		progress := "-"
		if row.Progress != nil {
			progress = fmt.Sprintf("%d%%", *row.Progress)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.TimeLabel, row.Type, progress, row.Message)
	}
	_ = tw.Flush()
}

func renderPreview(w io.Writer, preview *jobs.Preview) {
	title := "Untitled video"
	if preview.Title != nil && *preview.Title != "" {
		title = *preview.Title
	}
	uploader := "Unknown uploader"
	if preview.Uploader != nil && *preview.Uploader != "" {
		uploader = *preview.Uploader
	}
	fmt.Fprintf(w, "%s\n%s · %s\n\n", title, uploader, view.FormatDuration(preview.Duration))

	if len(preview.Formats) == 0 {
		fmt.Fprintln(w, "No formats.")
		return
	}
	for _, option := range preview.Formats {
		fmt.Fprintln(w, view.FormatOptionLabel(option))
	}
}

func shortText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-3]) + "..."
}
