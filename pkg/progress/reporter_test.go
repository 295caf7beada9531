package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestReporter(buf *bytes.Buffer, interactive bool, total, initial int64) (*Reporter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewReporter(Options{
		Label:          "aip.7z",
		Total:          total,
		Initial:        initial,
		Output:         buf,
		UpdateInterval: time.Second,
		Interactive:    &interactive,
	})
	r.now = clock.now
	r.startTime = clock.t
	r.lastUpdate = clock.t
	return r, clock
}

func TestReporter_ThrottlesUpdates(t *testing.T) {
	buf := &bytes.Buffer{}
	r, clock := newTestReporter(buf, false, 4096, 0)

	r.Add(1024)
	assert.Empty(t, buf.String(), "no output before the interval elapses")

	clock.advance(time.Second)
	r.Add(1024)
	assert.Contains(t, buf.String(), "50.0%")
	assert.Contains(t, buf.String(), "2.0 KiB/4.0 KiB")
	assert.Equal(t, int64(2048), r.Transferred())
}

func TestReporter_FinishOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	r, clock := newTestReporter(buf, false, 100, 0)
	r.Add(100)
	clock.advance(time.Second)
	r.Finish()
	r.Finish()

	assert.Equal(t, 1, strings.Count(buf.String(), "Downloading aip.7z"))
	assert.Contains(t, buf.String(), "100.0%")
}

func TestReporter_UnknownTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	r, clock := newTestReporter(buf, false, 0, 0)
	r.Add(2048)
	clock.advance(2 * time.Second)
	r.Finish()

	out := buf.String()
	assert.Contains(t, out, "2.0 KiB/?")
	assert.NotContains(t, out, "%")
	assert.Contains(t, out, "1.0 KiB/s")
}

func TestReporter_ResumeStartsAtInitial(t *testing.T) {
	buf := &bytes.Buffer{}
	r, _ := newTestReporter(buf, false, 200, 100)
	r.Add(50)
	assert.Equal(t, int64(150), r.Transferred())
	r.Finish()
	assert.Contains(t, buf.String(), "75.0%")
}

func TestReporter_InteractiveRedraws(t *testing.T) {
	buf := &bytes.Buffer{}
	r, clock := newTestReporter(buf, true, 10, 0)
	clock.advance(time.Second)
	r.Add(5)
	r.Finish()

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\r"))
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		var d Discard
		d.Add(10)
		d.Finish()
	})
}
