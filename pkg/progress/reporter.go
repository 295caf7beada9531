package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// Options configures the progress reporter.
type Options struct {
	// Label names the transfer, usually the target filename.
	Label string

	// Total is the declared size in bytes. <= 0 means unknown.
	Total int64

	// Initial is the number of bytes already on disk when resuming.
	Initial int64

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// Interactive forces line redrawing on or off. Nil means detect a terminal.
	Interactive *bool
}

// Reporter outputs human-readable progress information.
// It is not safe for concurrent use; transfers are sequential.
type Reporter struct {
	opts        Options
	interactive bool
	current     int64
	startTime   time.Time
	lastUpdate  time.Time
	finished    bool
	now         func() time.Time
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}
	interactive := IsTerminal(opts.Output)
	if opts.Interactive != nil {
		interactive = *opts.Interactive
	}

	r := &Reporter{
		opts:        opts,
		interactive: interactive,
		current:     opts.Initial,
		now:         time.Now,
	}
	r.startTime = r.now()
	r.lastUpdate = r.startTime
	return r
}

// Add records n more bytes written and redraws if the interval elapsed.
func (r *Reporter) Add(n int64) {
	r.current += n
	now := r.now()
	if now.Sub(r.lastUpdate) < r.opts.UpdateInterval {
		return
	}
	r.lastUpdate = now
	r.render(now, false)
}

// Transferred returns the byte count so far, including Initial.
func (r *Reporter) Transferred() int64 {
	return r.current
}

// Finish prints the final state once.
func (r *Reporter) Finish() {
	if r.finished {
		return
	}
	r.finished = true
	r.render(r.now(), true)
}

func (r *Reporter) render(now time.Time, final bool) {
	line := r.line(now)
	switch {
	case r.interactive && final:
		_, _ = fmt.Fprintf(r.opts.Output, "\r%s\n", line)
	case r.interactive:
		_, _ = fmt.Fprintf(r.opts.Output, "\r%s", line)
	default:
		_, _ = fmt.Fprintln(r.opts.Output, line)
	}
}

func (r *Reporter) line(now time.Time) string {
	var b strings.Builder
	b.WriteString("Downloading ")
	b.WriteString(r.opts.Label)
	b.WriteString(": ")

	if r.opts.Total > 0 {
		pct := float64(r.current) / float64(r.opts.Total) * 100
		if pct > 100 {
			pct = 100
		}
		fmt.Fprintf(&b, "%5.1f%% %s %s/%s", pct, bar(pct, 20), FormatBytes(r.current), FormatBytes(r.opts.Total))
	} else {
		fmt.Fprintf(&b, "%s/?", FormatBytes(r.current))
	}

	elapsed := now.Sub(r.startTime).Seconds()
	if elapsed > 0 {
		rate := float64(r.current-r.opts.Initial) / elapsed
		fmt.Fprintf(&b, " (%s/s)", FormatBytes(int64(rate)))
	}
	return b.String()
}

func bar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// FormatBytes formats a byte count using binary units.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// Discard is a Tracker that ignores everything.
type Discard struct{}

// Add implements the tracker interface.
func (Discard) Add(int64) {}

// Finish implements the tracker interface.
func (Discard) Finish() {}
