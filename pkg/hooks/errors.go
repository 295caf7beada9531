package hooks

import (
	"fmt"

	"github.com/glorpus-work/aipfetch/pkg/errors"
)

// ErrHookTypeEmpty is returned when a hook type is empty.
var ErrHookTypeEmpty = fmt.Errorf("hook type cannot be empty")

// ErrUnsupportedHookType is returned when a hook is registered for an unknown event.
func ErrUnsupportedHookType(hookType string) error {
	return errors.Wrapf(errors.ErrHookLoad, "unsupported hook type: %s", hookType)
}
