package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MimeLyc/qtube-dashboard/internal/config"
	"github.com/MimeLyc/qtube-dashboard/internal/dashboard"
	"github.com/MimeLyc/qtube-dashboard/internal/httpapi"
	"github.com/MimeLyc/qtube-dashboard/internal/persistence"
	"github.com/MimeLyc/qtube-dashboard/pkg/log"
	"github.com/spf13/cobra"
)

const sessionRetention = 30 * 24 * time.Hour

type dashboardRunner interface {
	Start(ctx context.Context) error
	Close()
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser dashboard",
		Long:  "Poll the job store and serve the dashboard view model, its live stream and the browser UI over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	return serveCmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	client, err := a.remoteClient()
	if err != nil {
		return err
	}

	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	if n, err := store.DeleteSessionsBefore(ctx, time.Now().Add(-sessionRetention)); err != nil {
		log.Warn("Failed to prune sessions: %v", err)
	} else if n > 0 {
		log.Info("Pruned %d stale sessions", n)
	}

	dash := dashboard.New(ctx, client,
		dashboard.WithRefreshInterval(cfg.Poll.RefreshInterval()),
		dashboard.WithJobsLimit(cfg.Poll.JobsLimit),
		dashboard.WithSessionStore(store),
	)

	settingsStore, err := config.NewClientSettingsStore(cfg.System.SettingsFile, cfg.ClientSettings(), func(next config.ClientSettings) {
		log.Info("Applying client settings: refresh=%dms limit=%d", next.RefreshIntervalMS, next.JobsLimit)
		dash.ApplySettings(time.Duration(next.RefreshIntervalMS)*time.Millisecond, next.JobsLimit)
	})
	if err != nil {
		return err
	}

	srv := httpapi.NewServer(dash,
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled),
		httpapi.WithClientSettingsStore(settingsStore),
	)
	return runWithComponents(ctx, cfg, dash, srv)
}

// runWithComponents starts the dashboard and the HTTP server and blocks until
// ctx is done or the server fails.
func runWithComponents(ctx context.Context, cfg *config.Config, dash dashboardRunner, httpSrv httpServer) error {
	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := dash.Start(startCtx)
	cancel()
	if err != nil {
		dash.Close()
		return fmt.Errorf("start dashboard: %w", err)
	}
	defer dash.Close()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		errCh <- httpSrv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info("HTTP server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
