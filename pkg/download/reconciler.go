package download

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/glorpus-work/aipfetch/internal/logger"
	pkgerrors "github.com/glorpus-work/aipfetch/pkg/errors"
	"github.com/glorpus-work/aipfetch/pkg/fsutil"
	"github.com/glorpus-work/aipfetch/pkg/manifest"
)

// Reconciler brings the local copy of one AIP in line with the remote one.
type Reconciler struct {
	prober      Prober
	transferrer Transferrer
	dir         string
	strategy    Strategy
	dryRun      bool
	log         *logger.Logger
}

// ReconcilerOptions configure a Reconciler.
type ReconcilerOptions struct {
	Dir      string   // storage root for downloaded files
	Strategy Strategy // defaults to StrategySize
	DryRun   bool     // decide only, never transfer
	Logger   *logger.Logger
}

// NewReconciler creates a Reconciler. The Client returned by NewClient serves
// as both prober and transferrer.
func NewReconciler(prober Prober, transferrer Transferrer, opts ReconcilerOptions) *Reconciler {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategySize
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{
		prober:      prober,
		transferrer: transferrer,
		dir:         opts.Dir,
		strategy:    strategy,
		dryRun:      opts.DryRun,
		log:         log,
	}
}

// Plan inspects local and remote state and decides what Reconcile would do.
// It performs at most one probe and never writes.
func (r *Reconciler) Plan(ctx context.Context, entry manifest.Entry) (Decision, error) {
	name, err := entry.Filename()
	if err != nil {
		return Decision{Action: ActionFailed}, err
	}
	path := filepath.Join(r.dir, name)

	local, exists, err := fsutil.LocalSize(path)
	if err != nil {
		return Decision{Action: ActionFailed, Path: path}, err
	}
	if !exists {
		return Decision{Action: ActionFresh, Path: path}, nil
	}

	remote, known := r.prober.Probe(ctx, entry.UUID)
	d := Decision{
		Action:     ActionRestart,
		Path:       path,
		LocalSize:  local,
		RemoteSize: remote,
		SizeKnown:  known,
	}
	if !known {
		return d, nil
	}

	switch {
	case local == remote:
		d.Action = ActionSkip
	case r.strategy == StrategyResume && local < remote:
		d.Action = ActionResume
		d.Offset = local
	}
	return d, nil
}

// Reconcile plans and, unless the local copy is already complete, transfers
// the entry. Every failure is reported in the Result.
func (r *Reconciler) Reconcile(ctx context.Context, entry manifest.Entry) (res Result) {
	res = Result{ID: entry.UUID}
	defer func() {
		if p := recover(); p != nil {
			res.Action = ActionFailed
			res.Err = fmt.Errorf("%w: %s: panic: %v", pkgerrors.ErrDownloadFailed, entry.UUID, p)
			r.log.Error("Download failed", logger.Fields{"uuid": entry.UUID, "error": res.Err})
		}
	}()

	d, err := r.Plan(ctx, entry)
	res.Path = d.Path
	if err != nil {
		return r.fail(res, err)
	}

	fields := logger.Fields{
		"uuid":   entry.UUID,
		"path":   d.Path,
		"action": string(d.Action),
	}
	if d.SizeKnown {
		fields["local_size"] = d.LocalSize
		fields["remote_size"] = d.RemoteSize
	}

	res.Action = d.Action
	res.DryRun = r.dryRun
	switch d.Action {
	case ActionSkip:
		res.Size = d.LocalSize
		r.log.Info("Already downloaded, skipping", fields)
		return res
	case ActionRestart:
		if d.SizeKnown {
			r.log.Info("Local size differs from remote, re-downloading", fields)
		} else {
			r.log.Info("Remote size unknown, re-downloading", fields)
		}
	case ActionResume:
		fields["offset"] = d.Offset
		r.log.Info("Resuming partial download", fields)
	default:
		r.log.Debug("Starting download", fields)
	}

	if r.dryRun {
		return res
	}

	if err := fsutil.EnsureDir(r.dir); err != nil {
		return r.fail(res, pkgerrors.Wrap(err, "could not create download dir"))
	}

	name, _ := entry.Filename()
	written, err := r.transferrer.Transfer(ctx, Request{
		ID:     entry.UUID,
		Path:   d.Path,
		Offset: d.Offset,
		Total:  d.RemoteSize,
		Label:  name,
	})
	res.Bytes = written
	if err != nil {
		return r.fail(res, err)
	}

	if size, _, err := fsutil.LocalSize(d.Path); err == nil {
		res.Size = size
	}
	return res
}

func (r *Reconciler) fail(res Result, err error) Result {
	res.Action = ActionFailed
	res.Err = fmt.Errorf("%s: %w", res.ID, err)
	r.log.Error("Download failed", logger.Fields{"uuid": res.ID, "error": err})
	return res
}
