// Package archive inspects and unpacks downloaded AIP archives.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mholt/archives"

	"github.com/glorpus-work/aipfetch/pkg/fsutil"
)

// ErrNotArchive is returned when a file is not in a recognised archive format.
var ErrNotArchive = errors.New("not a recognised archive")

// Entry is one file or directory inside an archive.
type Entry struct {
	Name    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// Info describes an archive on disk.
type Info struct {
	Path       string
	Format     string // file extension of the detected format, e.g. ".7z" or ".tar.gz"
	MediaType  string
	Size       int64 // archive file size
	Entries    []Entry
	Files      int   // regular files among Entries
	TotalBytes int64 // uncompressed size of regular files
}

// Manager handles archive inspection and extraction operations.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// Inspect identifies the format of the archive at path and lists its entries,
// sorted by name. Compressed single files report their format with no entries.
func (am *Manager) Inspect(ctx context.Context, path string) (*Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive file: %w", err)
	}

	format, _, err := archives.Identify(ctx, filepath.Base(path), file)
	if err != nil {
		if errors.Is(err, archives.NoMatch) {
			return nil, fmt.Errorf("%w: %s", ErrNotArchive, path)
		}
		return nil, fmt.Errorf("failed to identify archive: %w", err)
	}

	info := &Info{
		Path:      path,
		Format:    format.Extension(),
		MediaType: format.MediaType(),
		Size:      stat.Size(),
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return info, nil
	}

	// Some extractors (7z, zip) need random access, so hand them the file itself.
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind archive file: %w", err)
	}

	err = extractor.Extract(ctx, file, func(_ context.Context, f archives.FileInfo) error {
		entry := Entry{
			Name:    f.NameInArchive,
			Size:    f.Size(),
			IsDir:   f.IsDir(),
			ModTime: f.ModTime(),
		}
		info.Entries = append(info.Entries, entry)
		if f.Mode().IsRegular() {
			info.Files++
			info.TotalBytes += entry.Size
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read archive entries: %w", err)
	}

	sort.Slice(info.Entries, func(i, j int) bool { return info.Entries[i].Name < info.Entries[j].Name })
	return info, nil
}

// ExtractAll extracts all files from an archive to the specified destination directory.
// Only directories and regular files are written.
func (am *Manager) ExtractAll(ctx context.Context, archivePath, destDir string) error {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := fsutil.EnsureDir(destDir); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return am.extractEntry(fsys, path, destDir, d)
	})
}

// extractEntry processes a single archive entry and writes it to destDir.
func (am *Manager) extractEntry(fsys fs.FS, path, destDir string, d fs.DirEntry) error {
	if path == "." {
		return nil
	}

	targetPath := filepath.Join(destDir, filepath.FromSlash(path))

	if d.IsDir() {
		return fsutil.EnsureDir(targetPath)
	}

	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("failed to get file info for %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	return am.writeRegularFile(fsys, path, targetPath, info)
}

// writeRegularFile writes a regular file from the archive entry to targetPath and preserves its modification time.
func (am *Manager) writeRegularFile(fsys fs.FS, path, targetPath string, info fs.FileInfo) error {
	srcFile, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := fsutil.EnsureFileDir(targetPath); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}

	dstFile, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("failed to copy file %s: %w", path, err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", targetPath, err)
	}

	if err := os.Chtimes(targetPath, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set modification time for %s: %w", targetPath, err)
	}
	return nil
}
