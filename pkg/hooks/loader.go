package hooks

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/aipfetch/pkg/errors"
)

// HookFileExtension is the extension of hook script files.
const HookFileExtension = ".tengo"

// LoadHookFile registers the script at path for hookType.
func LoadHookFile(manager HookManager, hookType HookType, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(errors.ErrHookLoad, "error reading hook file %s: %v", path, err)
	}
	return manager.AddHook(Hook{Type: hookType, Content: string(content)})
}

// LoadHooksFromDir loads every <hook-type>.tengo file in dir. A missing
// directory is not an error; unknown hook names are skipped.
func LoadHooksFromDir(manager HookManager, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to read hooks directory %s", dir)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != HookFileExtension {
			continue
		}

		hookType := HookType(strings.TrimSuffix(entry.Name(), HookFileExtension))
		if !hookType.Valid() {
			continue
		}

		if err := LoadHookFile(manager, hookType, filepath.Join(dir, entry.Name())); err != nil {
			return errors.Wrapf(err, "error adding hook %s", hookType)
		}
	}

	return nil
}

// HookTemplate generates a template for a hook script.
func HookTemplate(hookType HookType) string {
	switch hookType {
	case PostDownload:
		return `// Post-download hook
// Runs after each AIP that is complete on disk (downloaded or skipped).
// Available variables:
// - uuid: string - AIP UUID
// - path: string - local file
// - size: int - local size in bytes
// - action: string - skip, fresh, restart or resume
// Set err to a non-empty string to mark the AIP failed.

// Example: reject empty files
/*
if size == 0 {
    err = "empty AIP: " + path
}
*/`

	case PostBatch:
		return `// Post-batch hook
// Runs once after the last AIP.
// Available variables:
// - total, succeeded, failed, skipped: int

// Example: fail the run when anything failed
/*
if failed > 0 {
    err = "batch had failures"
}
*/`

	default:
		return "// Unknown hook type: " + string(hookType)
	}
}
