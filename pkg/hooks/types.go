package hooks

import "context"

// HookType represents the event a hook runs on.
type HookType string

// Supported hook types.
const (
	PostDownload HookType = "post-download" // after each AIP that ends in a good state
	PostBatch    HookType = "post-batch"    // once, after the last AIP
)

// Valid reports whether t is a supported hook type.
func (t HookType) Valid() bool {
	return t == PostDownload || t == PostBatch
}

// Hook represents a hook script with its type and content.
type Hook struct {
	Type    HookType
	Content string
}

// HookContext contains information passed to hooks.
type HookContext struct {
	UUID   string // AIP UUID; empty for post-batch
	Path   string // local file; empty for post-batch
	Size   int64
	Action string // skip, fresh, restart or resume
	Vars   map[string]interface{}
}

// HookManager defines the interface for managing hooks.
type HookManager interface {
	// Execute runs the hook registered for hookType, if any.
	Execute(ctx context.Context, hookType HookType, hc HookContext) error

	// AddHook adds or replaces a hook.
	AddHook(hook Hook) error

	// RemoveHook removes the hook of the specified type.
	RemoveHook(hookType HookType) error

	// HasHook checks if a hook of the specified type exists.
	HasHook(hookType HookType) bool
}
