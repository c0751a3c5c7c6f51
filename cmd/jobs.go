package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MimeLyc/qtube-dashboard/internal/dashboard"
	"github.com/MimeLyc/qtube-dashboard/internal/jobs"
	"github.com/MimeLyc/qtube-dashboard/internal/remote"
	"github.com/MimeLyc/qtube-dashboard/internal/selection"
	"github.com/MimeLyc/qtube-dashboard/internal/view"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newJobsCmd(a *app) *cobra.Command {
	var jobID string

	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Print the queue once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.remoteClient()
			if err != nil {
				return err
			}
			model, err := snapshotModel(cmd.Context(), client, a.cfg.Poll.JobsLimit, jobID)
			if err != nil {
				return err
			}
			renderModel(cmd.OutOrStdout(), model)
			return nil
		},
	}
	jobsCmd.Flags().StringVarP(&jobID, "job", "j", "", "Job to show in detail (default: most recent)")
	return jobsCmd
}

// snapshotModel fetches everything the view needs once, without the polling
// cache.
func snapshotModel(ctx context.Context, client *remote.Client, limit int, jobID string) (view.Model, error) {
	var (
		list     *jobs.JobList
		settings *jobs.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = client.ListJobs(gctx, limit)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = client.GetSettings(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return view.Model{}, err
	}

	sel := selection.New()
	sel.Select(jobID)
	sel.Reconcile(list.Jobs)

	in := view.Input{
		Jobs:       list.Jobs,
		Selection:  sel.Snapshot(),
		Settings:   settings,
		APIBaseURL: client.BaseURL(),
	}
	if effective := view.EffectiveJob(list.Jobs, sel.SelectedJobID()); effective != nil {
		events, err := client.ListEvents(ctx, effective.ID)
		if err != nil {
			return view.Model{}, err
		}
		in.Events = events
		if effective.HasTranscript() {
			text, err := client.GetTranscript(ctx, effective.ID)
			in.Transcript = view.Transcript{Text: text, Loaded: err == nil, Err: err}
			if err == nil {
				in.Transcript.Language = view.DetectLanguage(text)
			}
		}
	}
	return view.Build(in), nil
}

func newSubmitCmd(a *app) *cobra.Command {
	var formatID string

	submitCmd := &cobra.Command{
		Use:   "submit URL",
		Short: "Submit a video, playlist or channel URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.remoteClient()
			if err != nil {
				return err
			}
			dash := dashboard.New(cmd.Context(), client)
			defer dash.Close()

			var format *string
			if f := strings.TrimSpace(formatID); f != "" && f != selection.DefaultFormatID {
				format = &f
			}
			resp, err := dash.SubmitJob(cmd.Context(), args[0], format)
			if err != nil {
				return errors.New(dashboard.UserMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (batch %s)\n", resp.Message, resp.BatchID)
			return nil
		},
	}
	submitCmd.Flags().StringVarP(&formatID, "format", "f", "", "Format id listed by qtube preview (default: best)")
	return submitCmd
}

func newPreviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview URL",
		Short: "List the downloadable formats of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.remoteClient()
			if err != nil {
				return err
			}
			dash := dashboard.New(cmd.Context(), client)
			defer dash.Close()

			preview, err := dash.PreviewFormats(cmd.Context(), args[0])
			if err != nil {
				return errors.New(dashboard.UserMessage(err))
			}
			renderPreview(cmd.OutOrStdout(), preview)
			return nil
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	var yes bool

	removeCmd := &cobra.Command{
		Use:   "remove JOB_ID",
		Short: "Remove a failed job from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.remoteClient()
			if err != nil {
				return err
			}
			dash := dashboard.New(cmd.Context(), client, dashboard.WithJobsLimit(a.cfg.Poll.JobsLimit))
			defer dash.Close()

			startCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := dash.Start(startCtx); err != nil {
				return err
			}

			confirm := dashboard.Confirmed
			if !yes {
				confirm = promptConfirm(cmd.InOrStdin(), cmd.OutOrStdout())
			}
			resp, err := dash.DeleteJob(cmd.Context(), args[0], confirm)
			if err != nil {
				if dashboard.IsKind(err, dashboard.ErrNotConfirmed) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
				return errors.New(dashboard.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
	removeCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return removeCmd
}

// promptConfirm asks on out and reads a y/yes answer from in.
func promptConfirm(in io.Reader, out io.Writer) dashboard.ConfirmFunc {
	return func(job jobs.Job) bool {
		name := job.ID
		if job.Title != nil && *job.Title != "" {
			name = fmt.Sprintf("%s (%s)", *job.Title, job.ID)
		}
		fmt.Fprintf(out, "Remove %s from the queue? This cannot be undone. [y/N] ", name)
		answer, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && answer == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}
