package fsutil

// File and directory permission constants.
// These follow standard Unix permission conventions and are used consistently
// for downloaded AIPs, the log file and the configuration file.
const (
	// Default file modes.
	FileModeDefault = 0o644 // -rw-r--r--: Default for downloaded AIPs and config
	FileModeSecure  = 0o640 // -rw-r-----: For the log file

	// Directory modes.
	DirModeDefault = 0o755 // drwxr-xr-x: Default for the download directory
	DirModeSecure  = 0o750 // drwxr-x---: For config and state directories

	// PartSuffix is appended to a target filename while an atomic write is in flight.
	PartSuffix = ".part"
)
