//go:generate mockgen -destination=./mocks/download.go . Prober,Transferrer

package download

import (
	"context"
)

// Prober learns the declared size of a remote AIP without fetching its body.
type Prober interface {
	// Probe returns the remote byte length. known is false on any network or
	// HTTP failure; callers treat that as "size unverifiable", not as an error.
	Probe(ctx context.Context, id string) (size int64, known bool)
}

// Transferrer streams a remote AIP body to local storage.
type Transferrer interface {
	// Transfer writes the body of req.ID to req.Path starting at req.Offset and
	// returns the number of bytes written by this call.
	Transfer(ctx context.Context, req Request) (int64, error)
}

// Tracker receives progress as chunks are written.
type Tracker interface {
	Add(n int64)
	Finish()
}

// TrackerFunc builds a Tracker for one transfer. total <= 0 means unknown.
type TrackerFunc func(label string, total, initial int64) Tracker

// Request describes one transfer.
type Request struct {
	ID     string // AIP UUID
	Path   string // destination file
	Offset int64  // resume offset; 0 truncates
	Total  int64  // expected full size if already probed, else 0
	Label  string // display name for progress
}

// Strategy selects how an existing local file is verified.
type Strategy string

// Verification strategies.
const (
	// StrategySize skips when local and remote sizes match and otherwise
	// replaces the local file from offset zero.
	StrategySize Strategy = "size"
	// StrategyResume appends the missing tail of a shorter local file with a
	// range request, and restarts only when that is impossible.
	StrategyResume Strategy = "resume"
)

// Action is the reconciliation decision for one entry.
type Action string

// Reconciliation actions.
const (
	ActionSkip    Action = "skip"    // local copy already complete
	ActionFresh   Action = "fresh"   // no local file; full download
	ActionRestart Action = "restart" // stale local file replaced from offset zero
	ActionResume  Action = "resume"  // local prefix kept; tail appended
	ActionFailed  Action = "failed"  // could not decide or transfer failed
)

// Decision is what the reconciler intends to do before any transfer happens.
type Decision struct {
	Action     Action
	Path       string
	Offset     int64
	LocalSize  int64
	RemoteSize int64
	SizeKnown  bool
}

// Result reports the outcome of reconciling one entry.
type Result struct {
	ID     string
	Path   string
	Action Action
	Bytes  int64 // bytes transferred by this run
	Size   int64 // final local size on success
	DryRun bool
	Err    error
}

// OK reports whether the entry ended in a good state.
func (r Result) OK() bool {
	return r.Err == nil
}
