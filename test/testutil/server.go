package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// StorageServer is a fake storage service serving AIP bodies from memory.
//
// It answers HEAD and GET on /api/v2/file/<uuid>/download/ and honours
// "Range: bytes=N-" unless IgnoreRange is set.
type StorageServer struct {
	Server *httptest.Server
	URL    string

	mu          sync.Mutex
	files       map[string][]byte
	hidden      map[string]bool // HEAD omits Content-Length
	failing     map[string]int  // GET answers with this status
	requests    map[string]int  // per method
	ranges      []string
	auth        []string
	ignoreRange bool
}

// NewStorageServer starts a fake storage service and stops it when the test ends.
func NewStorageServer(t *testing.T) *StorageServer {
	t.Helper()
	s := &StorageServer{
		files:    make(map[string][]byte),
		hidden:   make(map[string]bool),
		failing:  make(map[string]int),
		requests: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	s.URL = s.Server.URL
	t.Cleanup(s.Server.Close)
	return s
}

// AddFile registers the body served for id.
func (s *StorageServer) AddFile(id string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = body
}

// HideSize makes HEAD for id answer without a Content-Length.
func (s *StorageServer) HideSize(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden[id] = true
}

// FailWith makes GET for id answer with status.
func (s *StorageServer) FailWith(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[id] = status
}

// IgnoreRange makes the server answer range requests with the full body.
func (s *StorageServer) IgnoreRange() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ignoreRange = true
}

// Requests returns how many requests were made with method.
func (s *StorageServer) Requests(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method]
}

// Ranges returns the Range headers seen on GET requests, in order.
func (s *StorageServer) Ranges() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ranges...)
}

// AuthHeaders returns the Authorization headers seen, in order.
func (s *StorageServer) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auth...)
}

func (s *StorageServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests[r.Method]++
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	if r.Method == http.MethodGet {
		s.ranges = append(s.ranges, r.Header.Get("Range"))
	}
	id, ok := parseFileID(r.URL.Path)
	body, found := s.files[id]
	hidden := s.hidden[id]
	status := s.failing[id]
	ignoreRange := s.ignoreRange
	s.mu.Unlock()

	if !ok || !found {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodHead:
		if hidden {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		offset, partial := parseRange(r.Header.Get("Range"))
		if !partial || ignoreRange || offset > len(body) {
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)-offset))
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, len(body)-1, len(body)))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(body[offset:])
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// parseFileID extracts <uuid> from /api/v<n>/file/<uuid>/download/.
func parseFileID(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 5 || parts[0] != "api" || parts[2] != "file" || parts[4] != "download" {
		return "", false
	}
	if !strings.HasSuffix(path, "/") {
		return "", false
	}
	return parts[3], true
}

func parseRange(header string) (int, bool) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0, false
	}
	start, ok := strings.CutSuffix(spec, "-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(start)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// WriteJSON writes content to name inside a fresh temporary directory and returns its path.
func WriteJSON(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// SetupTestConfig writes an aipfetch config pointing at baseURL and the given
// files, and returns its path.
func SetupTestConfig(t *testing.T, baseURL, credentials, manifestPath, downloadDir string) string {
	t.Helper()
	configStr := fmt.Sprintf(`settings:
  base_url: %q
  api_version: "2"
  credentials_file: %q
  manifest_file: %q
  download_dir: %q
  log_file: %q
  log_level: debug
  http_timeout: 5s
`, baseURL, credentials, manifestPath, downloadDir, filepath.Join(t.TempDir(), "aipfetch.log"))

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(configStr), 0o600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}
