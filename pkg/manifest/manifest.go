// Package manifest loads the list of AIPs to fetch.
//
// The manifest is the storage service's package listing, saved locally:
//
//	{"objects": [{"uuid": "...", "current_path": "/var/.../name-uuid.7z"}, ...]}
//
// Entries keep their source order; that order is the processing order.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	pkgerrors "github.com/glorpus-work/aipfetch/pkg/errors"
	"github.com/glorpus-work/aipfetch/pkg/fsutil"
)

// Entry is one AIP to fetch.
type Entry struct {
	UUID        string `json:"uuid"`
	CurrentPath string `json:"current_path"`
	// Size is the listing's own size field, when present. It is informational
	// only; the remote probe is authoritative.
	Size *int64 `json:"size,omitempty"`
}

// Manifest is the ordered list of entries.
type Manifest struct {
	Objects []Entry `json:"objects"`
}

type rawManifest struct {
	Objects *[]Entry `json:"objects"`
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Objects)
}

// Filename returns the local filename for the entry: the last '/'-separated
// segment of its logical path. A path with no usable final segment is rejected
// so nothing is ever written to the storage root itself.
func (e Entry) Filename() (string, error) {
	name := fsutil.BaseName(e.CurrentPath)
	switch name {
	case "", ".", "..":
		return "", pkgerrors.ErrInvalidFilenameWithPath(e.CurrentPath)
	}
	return name, nil
}

// Load reads a manifest from path.
func Load(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pkgerrors.Wrapf(pkgerrors.ErrManifestNotFound, "%s", path)
		}
		return nil, pkgerrors.Wrapf(err, "failed to open manifest %s", path)
	}
	defer func() { _ = file.Close() }()

	m, err := LoadFromReader(file)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "%s", path)
	}
	return m, nil
}

// LoadFromReader decodes and validates a manifest from r.
func LoadFromReader(r io.Reader) (*Manifest, error) {
	var raw rawManifest
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, pkgerrors.Wrap(pkgerrors.ErrManifestInvalid, err.Error())
		}
		return nil, pkgerrors.Wrap(pkgerrors.ErrManifestParse, err.Error())
	}
	if raw.Objects == nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrManifestInvalid, "missing 'objects' key")
	}

	m := &Manifest{Objects: *raw.Objects}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that every entry carries an id.
func (m *Manifest) Validate() error {
	for i, e := range m.Objects {
		if e.UUID == "" {
			return fmt.Errorf("object %d: missing uuid: %w", i, pkgerrors.ErrManifestInvalid)
		}
	}
	return nil
}
