//go:build !windows

package fsutil

import "syscall"

var errCrossDevice = syscall.EXDEV
