// Package progress renders per-transfer progress.
//
// A Reporter is fed the size of every chunk written to disk. On a terminal it
// redraws a single status line; otherwise it prints a line at a fixed interval
// so that redirected output stays readable. A zero or unknown total is valid:
// the reporter then shows bytes and rate without a percentage.
package progress
