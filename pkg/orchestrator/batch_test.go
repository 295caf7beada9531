package orchestrator_test

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/aipfetch/internal/logger"
	"github.com/glorpus-work/aipfetch/pkg/auth"
	"github.com/glorpus-work/aipfetch/pkg/download"
	"github.com/glorpus-work/aipfetch/pkg/manifest"
	"github.com/glorpus-work/aipfetch/pkg/orchestrator"
	"github.com/glorpus-work/aipfetch/test/testutil"
)

const (
	id1 = "11111111-1111-4111-8111-111111111111"
	id2 = "22222222-2222-4222-8222-222222222222"
	id3 = "33333333-3333-4333-8333-333333333333"
)

func newBatch(t *testing.T, srv *testutil.StorageServer, dir string, log *logger.Logger) *orchestrator.Orchestrator {
	t.Helper()
	client, err := download.NewClient(download.ClientOptions{
		BaseURL:    srv.URL,
		APIVersion: "2",
		Auth:       auth.APIKeyAuth{Scheme: auth.DefaultScheme, Username: "demo", APIKey: "key"},
		Logger:     log,
	})
	require.NoError(t, err)
	return &orchestrator.Orchestrator{
		Reconciler: download.NewReconciler(client, client, download.ReconcilerOptions{Dir: dir, Logger: log}),
		Logger:     log,
	}
}

func batchEntries() []manifest.Entry {
	return []manifest.Entry{
		{UUID: id1, CurrentPath: "/var/aips/one-" + id1 + ".7z"},
		{UUID: id2, CurrentPath: "/var/aips/two-" + id2 + ".7z"},
		{UUID: id3, CurrentPath: "three.7z"},
	}
}

func TestBatch_UnknownProbeOnAbsentFileDownloads(t *testing.T) {
	srv := testutil.NewStorageServer(t)
	srv.AddFile(id1, bytes.Repeat([]byte{1}, 300))
	srv.AddFile(id2, bytes.Repeat([]byte{2}, 20000))
	srv.HideSize(id2)
	// id3 is not served at all.

	dir := filepath.Join(t.TempDir(), "downloads")
	var buf bytes.Buffer
	orch := newBatch(t, srv, dir, logger.NewWithWriter(&buf, "debug", logger.FormatText))

	summary, err := orch.Run(context.Background(), batchEntries())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, download.ActionFresh, summary.Results[1].Action)

	info, err := os.Stat(filepath.Join(dir, "two-"+id2+".7z"))
	require.NoError(t, err)
	assert.Equal(t, int64(20000), info.Size())

	assert.False(t, summary.Results[2].OK())
	assert.Contains(t, summary.Results[2].Err.Error(), id3)
	assert.Contains(t, buf.String(), "All AIPs processed")
}

func TestBatch_RerunIsIdempotent(t *testing.T) {
	srv := testutil.NewStorageServer(t)
	srv.AddFile(id1, []byte("first archive"))
	srv.AddFile(id2, []byte("second archive"))
	srv.AddFile(id3, []byte("third archive"))

	dir := t.TempDir()
	orch := newBatch(t, srv, dir, logger.Nop())

	summary, err := orch.Run(context.Background(), batchEntries())
	require.NoError(t, err)
	require.True(t, summary.OK())
	assert.Equal(t, 3, srv.Requests(http.MethodGet))
	assert.Zero(t, srv.Requests(http.MethodHead), "absent files are never probed")

	summary, err = orch.Run(context.Background(), batchEntries())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Skipped)
	assert.Equal(t, 3, srv.Requests(http.MethodGet), "second run must not transfer")
	assert.Equal(t, 3, srv.Requests(http.MethodHead))
}

func TestBatch_WrongSizeIsReplaced(t *testing.T) {
	srv := testutil.NewStorageServer(t)
	body := bytes.Repeat([]byte("x"), 5000)
	srv.AddFile(id3, body)

	dir := t.TempDir()
	path := filepath.Join(dir, "three.7z")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("y"), 7000), 0o600))

	orch := newBatch(t, srv, dir, logger.Nop())
	summary, err := orch.Run(context.Background(), batchEntries()[2:])
	require.NoError(t, err)
	require.True(t, summary.OK())
	assert.Equal(t, download.ActionRestart, summary.Results[0].Action)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}
