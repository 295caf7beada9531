//go:generate mockgen -destination=./mocks/orchestrator.go . Reconciler,HookRunner

package orchestrator

import (
	"context"

	"github.com/glorpus-work/aipfetch/internal/logger"
	"github.com/glorpus-work/aipfetch/pkg/download"
	"github.com/glorpus-work/aipfetch/pkg/hooks"
	"github.com/glorpus-work/aipfetch/pkg/manifest"
)

// Reconciler is the subset of the download reconciler used by the orchestrator.
type Reconciler interface {
	Reconcile(ctx context.Context, entry manifest.Entry) download.Result
}

// HookRunner runs user scripts after items and after the batch.
type HookRunner interface {
	Execute(ctx context.Context, hookType hooks.HookType, hc hooks.HookContext) error
}

// Orchestrator drives a batch of manifest entries through the reconciler, one at a time.
type Orchestrator struct {
	Reconciler Reconciler
	Scripts    HookRunner     // optional post-download and post-batch scripts
	Hooks      Hooks          // Hooks for progress and event notifications
	Logger     *logger.Logger // nil logs nowhere
}

// Phase names an event in the batch lifecycle.
type Phase string

// Batch phases.
const (
	PhaseProcessing Phase = "processing"
	PhaseDownloaded Phase = "downloaded"
	PhaseSkipped    Phase = "skipped"
	PhaseFailed     Phase = "failed"
	PhaseDone       Phase = "done"
)

// Event represents a simple progress notification.
type Event struct {
	Phase Phase
	ID    string // AIP UUID; empty for done
	Index int    // 1-based position in the batch
	Total int
	Msg   string
	Err   error
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// Summary is the outcome of a batch.
type Summary struct {
	Total     int
	Succeeded int // downloaded, resumed or restarted
	Skipped   int // already complete
	Failed    int
	Canceled  bool // stopped before every entry was attempted
	Results   []download.Result
}

// OK reports whether every attempted entry ended in a good state and the batch ran to the end.
func (s Summary) OK() bool {
	return s.Failed == 0 && !s.Canceled
}
