//go:build windows

package fsutil

import "errors"

var errCrossDevice = errors.New("the system cannot move the file to a different disk drive: cross-device")
