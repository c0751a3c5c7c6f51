package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/MimeLyc/qtube-dashboard/internal/dashboard"
	"github.com/spf13/cobra"
)

// minRedraw coalesces bursts of cache notifications into one redraw.
const minRedraw = 200 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	var jobID string

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the queue in the terminal",
		Long:  "Poll the job store and redraw the queue and the selected job whenever anything changes. Stop with Ctrl-C.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := a.remoteClient()
			if err != nil {
				return err
			}
			dash := dashboard.New(ctx, client,
				dashboard.WithRefreshInterval(a.refreshInterval()),
				dashboard.WithJobsLimit(a.cfg.Poll.JobsLimit),
			)
			defer dash.Close()
			return watch(ctx, dash, jobID, cmd.OutOrStdout())
		},
	}
	watchCmd.Flags().StringVarP(&jobID, "job", "j", "", "Job to show in detail (default: most recent)")
	return watchCmd
}

func watch(ctx context.Context, dash *dashboard.Dashboard, jobID string, out io.Writer) error {
	if jobID != "" {
		dash.Select(jobID)
	}

	changed := make(chan struct{}, 1)
	unsubscribe := dash.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	if err := dash.Start(ctx); err != nil {
		return err
	}

	var last []byte
	draw := func() {
		var buf bytes.Buffer
		renderModel(&buf, dash.View())
		if bytes.Equal(buf.Bytes(), last) {
			return
		}
		last = buf.Bytes()
		fmt.Fprint(out, clearScreen)
		_, _ = out.Write(last)
	}
	draw()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			draw()
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(minRedraw):
			}
		}
	}
}
