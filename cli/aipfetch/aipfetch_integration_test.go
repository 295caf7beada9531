//go:build integration

package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/mholt/archives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/aipfetch/internal/cli"
	"github.com/glorpus-work/aipfetch/test/testutil"
)

const (
	uuidA = "11111111-1111-4111-8111-111111111111"
	uuidB = "22222222-2222-4222-8222-222222222222"
	uuidC = "33333333-3333-4333-8333-333333333333"
)

const testManifest = `{"objects": [
  {"uuid": "` + uuidA + `", "current_path": "/var/archivematica/aips/a-` + uuidA + `.7z"},
  {"uuid": "` + uuidB + `", "current_path": "/var/archivematica/aips/b-` + uuidB + `.7z"},
  {"uuid": "` + uuidC + `", "current_path": "/var/archivematica/aips/c-` + uuidC + `.7z"}
]}`

type fixture struct {
	srv        *testutil.StorageServer
	configPath string
	dir        string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	srv := testutil.NewStorageServer(t)
	srv.AddFile(uuidA, bytes.Repeat([]byte("a"), 100))
	srv.AddFile(uuidB, bytes.Repeat([]byte("b"), 2048))
	srv.AddFile(uuidC, bytes.Repeat([]byte("c"), 10))

	creds := testutil.WriteJSON(t, "api_creds.json", `{"username": "demo", "api_key": "s3cr3t"}`)
	manifestPath := testutil.WriteJSON(t, "uploaded.json", testManifest)
	dir := filepath.Join(t.TempDir(), "aips")

	return fixture{
		srv:        srv,
		configPath: testutil.SetupTestConfig(t, srv.URL, creds, manifestPath, dir),
		dir:        dir,
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "aipfetch version")
	assert.Contains(t, out, ">= 2, < 3")
}

func TestFetchCommand_DownloadsBatch(t *testing.T) {
	f := newFixture(t)

	// A complete local copy of B must be left alone.
	require.NoError(t, os.MkdirAll(f.dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "b-"+uuidB+".7z"), bytes.Repeat([]byte("b"), 2048), 0o600))

	_, _, err := execute(t, "--config", f.configPath, "fetch", "--no-progress")
	require.NoError(t, err)

	for name, size := range map[string]int64{
		"a-" + uuidA + ".7z": 100,
		"b-" + uuidB + ".7z": 2048,
		"c-" + uuidC + ".7z": 10,
	} {
		info, err := os.Stat(filepath.Join(f.dir, name))
		require.NoError(t, err, name)
		assert.Equal(t, size, info.Size(), name)
	}
	assert.Equal(t, 2, f.srv.Requests(http.MethodGet))
	assert.Equal(t, 1, f.srv.Requests(http.MethodHead))
	for _, h := range f.srv.AuthHeaders() {
		assert.Equal(t, "ApiKey demo:s3cr3t", h)
	}
}

func TestFetchCommand_RerunIsIdempotent(t *testing.T) {
	f := newFixture(t)

	_, _, err := execute(t, "--config", f.configPath, "fetch", "--no-progress")
	require.NoError(t, err)
	_, _, err = execute(t, "--config", f.configPath, "fetch", "--no-progress")
	require.NoError(t, err)

	assert.Equal(t, 3, f.srv.Requests(http.MethodGet))
	assert.Equal(t, 3, f.srv.Requests(http.MethodHead))
}

func TestFetchCommand_BadCredentialsStopBeforeNetwork(t *testing.T) {
	f := newFixture(t)
	creds := testutil.WriteJSON(t, "api_creds.json", `{"username": "demo"}`)

	_, _, err := execute(t, "--config", f.configPath, "fetch", "--credentials", creds)
	require.Error(t, err)
	assert.Zero(t, f.srv.Requests(http.MethodHead))
	assert.Zero(t, f.srv.Requests(http.MethodGet))
	assert.NoDirExists(t, f.dir)
}

func TestFetchCommand_BadManifestStopsBeforeNetwork(t *testing.T) {
	f := newFixture(t)
	manifestPath := testutil.WriteJSON(t, "uploaded.json", `{"objects": [`)

	_, _, err := execute(t, "--config", f.configPath, "fetch", "--manifest", manifestPath)
	require.Error(t, err)
	assert.Zero(t, f.srv.Requests(http.MethodHead))
	assert.Zero(t, f.srv.Requests(http.MethodGet))
}

func TestFetchCommand_DryRun(t *testing.T) {
	f := newFixture(t)

	out, _, err := execute(t, "--config", f.configPath, "fetch", "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "[1/3] download "+uuidA)
	assert.Contains(t, out, "[3/3] download "+uuidC)
	assert.Zero(t, f.srv.Requests(http.MethodGet))
	assert.NoDirExists(t, f.dir)
}

func TestFetchCommand_FailOnError(t *testing.T) {
	f := newFixture(t)
	f.srv.FailWith(uuidB, http.StatusInternalServerError)

	_, _, err := execute(t, "--config", f.configPath, "fetch", "--no-progress")
	require.NoError(t, err, "a failed AIP alone does not fail the run")
	assert.FileExists(t, filepath.Join(f.dir, "c-"+uuidC+".7z"))

	_, _, err = execute(t, "--config", f.configPath, "fetch", "--no-progress", "--fail-on-error")
	require.Error(t, err)
	assert.ErrorIs(t, err, cli.ErrPartialFailure)
}

func TestFetchCommand_InvalidConfig(t *testing.T) {
	f := newFixture(t)

	_, _, err := execute(t, "--config", f.configPath, "fetch", "--verification", "checksum")
	require.Error(t, err)
	assert.Zero(t, f.srv.Requests(http.MethodHead)+f.srv.Requests(http.MethodGet))
}

func TestConfigCommands(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	_, _, err := execute(t, "--config", configPath, "config", "init", "--base-url", "https://ss.example.org")
	require.NoError(t, err)
	require.FileExists(t, configPath)

	_, _, err = execute(t, "--config", configPath, "config", "init")
	require.Error(t, err, "init must not overwrite without --force")

	_, _, err = execute(t, "--config", configPath, "config", "set", "verification", "resume")
	require.NoError(t, err)

	out, _, err := execute(t, "--config", configPath, "config", "get", "verification")
	require.NoError(t, err)
	assert.Equal(t, "resume\n", out)

	_, _, err = execute(t, "--config", configPath, "config", "set", "verification", "checksum")
	require.Error(t, err)

	out, _, err = execute(t, "--config", configPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "base_url")
	assert.Contains(t, out, "https://ss.example.org")

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var raw map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, "resume", raw["settings"]["verification"])
	assert.Equal(t, "https://ss.example.org", raw["settings"]["base_url"])
}

func TestInspectCommand(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "bag")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "data"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "bagit.txt"), []byte("BagIt-Version: 0.97\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "data", "report.pdf"), []byte("%PDF-1.4"), 0o600))

	ctx := context.Background()
	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{src + string(os.PathSeparator): ""})
	require.NoError(t, err)
	archivePath := filepath.Join(root, "a-"+uuidA+".tar.gz")
	out, err := os.Create(archivePath)
	require.NoError(t, err)
	require.NoError(t, archives.CompressedArchive{Compression: archives.Gz{}, Archival: archives.Tar{}}.Archive(ctx, out, files))
	require.NoError(t, out.Close())

	extractDir := filepath.Join(root, "extracted")
	stdout, _, err := execute(t, "inspect", "--long", "--extract", extractDir, archivePath)
	require.NoError(t, err)
	assert.Contains(t, stdout, ".tar.gz")
	assert.Contains(t, stdout, "data/report.pdf")
	assert.FileExists(t, filepath.Join(extractDir, "data", "report.pdf"))

	_, _, err = execute(t, "inspect", filepath.Join(root, "bag", "bagit.txt"))
	require.Error(t, err)
}
