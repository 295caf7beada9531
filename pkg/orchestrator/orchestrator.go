package orchestrator

import (
	"context"
	"fmt"

	"github.com/glorpus-work/aipfetch/internal/logger"
	"github.com/glorpus-work/aipfetch/pkg/download"
	"github.com/glorpus-work/aipfetch/pkg/hooks"
	"github.com/glorpus-work/aipfetch/pkg/manifest"
)

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// Run reconciles every entry in order. A failed entry never stops the ones
// after it; a canceled context stops the loop before the next entry starts.
func (o *Orchestrator) Run(ctx context.Context, entries []manifest.Entry) (Summary, error) {
	if o.Reconciler == nil {
		return Summary{}, fmt.Errorf("reconciler is not configured")
	}
	log := o.Logger
	if log == nil {
		log = logger.Nop()
	}

	total := len(entries)
	summary := Summary{Total: total, Results: make([]download.Result, 0, total)}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			summary.Canceled = true
			log.Warn("Batch interrupted", logger.Fields{"processed": i, "total": total, "error": err})
			break
		}

		idx := i + 1
		log.Infof("Processing AIP %d/%d", idx, total)
		emit(o.Hooks, Event{Phase: PhaseProcessing, ID: entry.UUID, Index: idx, Total: total, Msg: entry.CurrentPath})

		res := o.Reconciler.Reconcile(ctx, entry)
		if res.OK() && !res.DryRun {
			if err := o.runPostDownload(ctx, res); err != nil {
				res.Action = download.ActionFailed
				res.Err = err
				log.Error("Post-download hook failed", logger.Fields{"uuid": res.ID, "error": res.Err})
			}
		}
		summary.Results = append(summary.Results, res)

		switch {
		case !res.OK():
			summary.Failed++
			log.Error("Failed to process AIP", logger.Fields{"uuid": entry.UUID, "index": idx, "error": res.Err})
			emit(o.Hooks, Event{Phase: PhaseFailed, ID: entry.UUID, Index: idx, Total: total, Msg: res.Path, Err: res.Err})
		case res.Action == download.ActionSkip:
			summary.Skipped++
			emit(o.Hooks, Event{Phase: PhaseSkipped, ID: entry.UUID, Index: idx, Total: total, Msg: res.Path})
		default:
			summary.Succeeded++
			fields := logger.Fields{"uuid": entry.UUID, "path": res.Path, "action": string(res.Action)}
			if res.DryRun {
				log.Info("Would download AIP", fields)
			} else {
				fields["bytes"] = res.Bytes
				log.Success("Downloaded AIP", fields)
			}
			emit(o.Hooks, Event{Phase: PhaseDownloaded, ID: entry.UUID, Index: idx, Total: total, Msg: res.Path})
		}
	}

	log.Info("All AIPs processed", logger.Fields{
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	})
	if err := o.runPostBatch(ctx, summary); err != nil {
		log.Error("Post-batch hook failed", logger.Fields{"error": err})
		emit(o.Hooks, Event{Phase: PhaseDone, Total: total, Err: err})
		return summary, err
	}
	emit(o.Hooks, Event{Phase: PhaseDone, Total: total})
	return summary, nil
}

func (o *Orchestrator) runPostDownload(ctx context.Context, res download.Result) error {
	if o.Scripts == nil {
		return nil
	}
	err := o.Scripts.Execute(ctx, hooks.PostDownload, hooks.HookContext{
		UUID:   res.ID,
		Path:   res.Path,
		Size:   res.Size,
		Action: string(res.Action),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", res.ID, err)
	}
	return nil
}

func (o *Orchestrator) runPostBatch(ctx context.Context, s Summary) error {
	if o.Scripts == nil || s.Canceled {
		return nil
	}
	return o.Scripts.Execute(ctx, hooks.PostBatch, hooks.HookContext{
		Vars: map[string]interface{}{
			"total":     s.Total,
			"succeeded": s.Succeeded,
			"skipped":   s.Skipped,
			"failed":    s.Failed,
		},
	})
}
