package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MimeLyc/qtube-dashboard/internal/config"
	"github.com/MimeLyc/qtube-dashboard/internal/remote"
	"github.com/MimeLyc/qtube-dashboard/pkg/log"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	envFile  string
	apiBase  string
	logLevel string
	logFile  string

	cfg     *config.Config
	closers []func() error
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "qtube",
		Short:         "Dashboard for the qtube download and transcription queue",
		Long:          "Submit video URLs to the job store, watch job progress and open finished media and transcripts.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "Optional .env file to load before reading the environment")
	flags.StringVar(&a.apiBase, "api", "", "Job store base URL (overrides API_BASE)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	flags.StringVar(&a.logFile, "log-file", "", "Append logs to this file instead of stderr")

	rootCmd.AddCommand(
		newServeCmd(a),
		newWatchCmd(a),
		newJobsCmd(a),
		newSubmitCmd(a),
		newPreviewCmd(a),
		newRemoveCmd(a),
	)
	return rootCmd
}

func (a *app) init() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	opts := []config.Option{config.WithAPIBase(a.apiBase)}
	if saved, err := config.LoadClientSettingsFile(settingsFilePath()); err == nil {
		opts = append(opts, config.WithClientSettings(saved))
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("load client settings: %w", err)
	}

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	level := cfg.System.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	if a.logFile != "" {
		fileLogger, err := log.NewFileLogger(a.logFile, log.ParseLevel(level))
		if err != nil {
			return err
		}
		log.SetLogger(fileLogger.Logger)
		a.closers = append(a.closers, fileLogger.Close)
	} else {
		logger := log.NewLogger(log.ParseLevel(level))
		logger.SetOutput(os.Stderr)
		log.SetLogger(logger)
	}
	return nil
}

func (a *app) close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func (a *app) remoteClient() (*remote.Client, error) {
	return remote.NewClient(&remote.Config{
		BaseURL:       a.cfg.Remote.BaseURL,
		Timeout:       a.cfg.Remote.Timeout,
		RatePerSecond: a.cfg.Remote.RatePerSecond,
		Burst:         a.cfg.Remote.Burst,
	})
}

func (a *app) refreshInterval() time.Duration {
	return a.cfg.Poll.RefreshInterval()
}

// settingsFilePath resolves SETTINGS_FILE before the config is built, since
// saved client settings feed into it.
func settingsFilePath() string {
	if path := strings.TrimSpace(os.Getenv("SETTINGS_FILE")); path != "" {
		return path
	}
	return config.DefaultClientSettingsFile
}
