package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/aipfetch/internal/logger"
	"github.com/glorpus-work/aipfetch/pkg/auth"
	"github.com/glorpus-work/aipfetch/pkg/config"
	"github.com/glorpus-work/aipfetch/pkg/download"
	"github.com/glorpus-work/aipfetch/pkg/hooks"
	"github.com/glorpus-work/aipfetch/pkg/manifest"
	"github.com/glorpus-work/aipfetch/pkg/orchestrator"
	"github.com/glorpus-work/aipfetch/pkg/progress"
)

// ErrPartialFailure is returned by fetch --fail-on-error when some AIPs failed.
var ErrPartialFailure = errors.New("some AIPs failed to download")

// ErrInterrupted is returned when the batch was stopped before its last AIP.
var ErrInterrupted = errors.New("batch interrupted")

type fetchOptions struct {
	manifestFile    string
	credentialsFile string
	downloadDir     string
	baseURL         string
	verification    string
	timeout         time.Duration
	dryRun          bool
	failOnError     bool
	atomic          bool
	noProgress      bool
}

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	var opts fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the AIPs listed in the manifest",
		Long: `Download every AIP listed in the manifest from the storage service.

Each AIP is reconciled against the download directory first: complete files
are skipped, stale or partial ones are downloaded again (or resumed with
--verification resume). A failed AIP is logged and the batch moves on.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.manifestFile, "manifest", "m", "", "Manifest JSON file (defaults to config)")
	cmd.Flags().StringVarP(&opts.credentialsFile, "credentials", "c", "", "Credentials JSON file (defaults to config)")
	cmd.Flags().StringVarP(&opts.downloadDir, "dir", "d", "", "Download directory (defaults to config)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Storage service base URL (defaults to config)")
	cmd.Flags().StringVar(&opts.verification, "verification", "", "Verification strategy: size or resume (defaults to config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout, e.g. 30m (defaults to config)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report what would be downloaded without transferring")
	cmd.Flags().BoolVar(&opts.failOnError, "fail-on-error", false, "Exit non-zero when any AIP fails")
	cmd.Flags().BoolVar(&opts.atomic, "atomic", false, "Write to a .part file and rename on success")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")

	return cmd
}

func runFetch(ctx context.Context, cmd *cobra.Command, opts fetchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFetchOverrides(cfg, cmd, opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := newLogger(cfg, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	// Both inputs are checked before any request is made.
	creds, err := auth.LoadCredentials(cfg.Settings.CredentialsFile)
	if err != nil {
		log.Error("Cannot load credentials", logger.Fields{"path": cfg.Settings.CredentialsFile, "error": err})
		return err
	}
	creds.Scheme = cfg.Settings.AuthScheme

	m, err := manifest.Load(cfg.Settings.ManifestFile)
	if err != nil {
		log.Error("Cannot load manifest", logger.Fields{"path": cfg.Settings.ManifestFile, "error": err})
		return err
	}

	scripts, err := loadHooks(cfg)
	if err != nil {
		return err
	}

	var tracker download.TrackerFunc
	if !opts.noProgress && !opts.dryRun {
		tracker = progressTracker(cmd.ErrOrStderr())
	}

	client, err := download.NewClient(download.ClientOptions{
		BaseURL:      cfg.Settings.BaseURL,
		APIVersion:   cfg.Settings.APIVersion,
		Auth:         creds,
		Timeout:      cfg.Settings.HTTPTimeout,
		UserAgent:    cfg.Settings.UserAgent,
		ChunkSize:    cfg.Settings.ChunkSize,
		AtomicWrites: cfg.Settings.AtomicWrites,
		Progress:     tracker,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	log.Info("Starting batch", logger.Fields{
		"aips":         m.Len(),
		"base_url":     cfg.Settings.BaseURL,
		"download_dir": cfg.Settings.DownloadDir,
		"verification": cfg.Settings.Verification,
		"dry_run":      opts.dryRun,
	})

	orch := &orchestrator.Orchestrator{
		Reconciler: download.NewReconciler(client, client, download.ReconcilerOptions{
			Dir:      cfg.Settings.DownloadDir,
			Strategy: download.Strategy(cfg.Settings.Verification),
			DryRun:   opts.dryRun,
			Logger:   log,
		}),
		Scripts: scripts,
		Logger:  log,
	}
	if opts.dryRun {
		orch.Hooks = orchestrator.Hooks{OnEvent: planPrinter(cmd.OutOrStdout())}
	}

	summary, err := orch.Run(ctx, m.Objects)
	if err != nil {
		return err
	}
	if summary.Canceled {
		return ErrInterrupted
	}
	if opts.failOnError && summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrPartialFailure, summary.Failed, summary.Total)
	}
	return nil
}

func applyFetchOverrides(cfg *config.Config, cmd *cobra.Command, opts fetchOptions) {
	stringOverride(&cfg.Settings.ManifestFile, opts.manifestFile)
	stringOverride(&cfg.Settings.CredentialsFile, opts.credentialsFile)
	stringOverride(&cfg.Settings.DownloadDir, opts.downloadDir)
	stringOverride(&cfg.Settings.BaseURL, opts.baseURL)
	stringOverride(&cfg.Settings.Verification, opts.verification)
	if cmd.Flags().Changed("timeout") {
		cfg.Settings.HTTPTimeout = opts.timeout
	}
	if opts.atomic {
		cfg.Settings.AtomicWrites = true
	}
}

func loadHooks(cfg *config.Config) (orchestrator.HookRunner, error) {
	if cfg.Settings.PostDownloadHook == "" && cfg.Settings.HooksDir == "" {
		return nil, nil
	}
	manager := hooks.NewHookManager()
	if cfg.Settings.HooksDir != "" {
		if err := hooks.LoadHooksFromDir(manager, cfg.Settings.HooksDir); err != nil {
			return nil, err
		}
	}
	if cfg.Settings.PostDownloadHook != "" {
		if err := hooks.LoadHookFile(manager, hooks.PostDownload, cfg.Settings.PostDownloadHook); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

func progressTracker(w io.Writer) download.TrackerFunc {
	return func(label string, total, initial int64) download.Tracker {
		return progress.NewReporter(progress.Options{
			Label:   label,
			Total:   total,
			Initial: initial,
			Output:  w,
		})
	}
}

// planPrinter prints one line per reconciliation decision for --dry-run.
func planPrinter(w io.Writer) func(orchestrator.Event) {
	return func(e orchestrator.Event) {
		switch e.Phase {
		case orchestrator.PhaseDownloaded:
			_, _ = fmt.Fprintf(w, "[%d/%d] download %s -> %s\n", e.Index, e.Total, e.ID, e.Msg)
		case orchestrator.PhaseSkipped:
			_, _ = fmt.Fprintf(w, "[%d/%d] skip     %s (%s)\n", e.Index, e.Total, e.ID, e.Msg)
		case orchestrator.PhaseFailed:
			_, _ = fmt.Fprintf(w, "[%d/%d] error    %s: %v\n", e.Index, e.Total, e.ID, e.Err)
		}
	}
}
