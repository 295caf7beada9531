package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// AppName is the name of the application used in paths
	AppName = "aipfetch"
)

// getAppDataDir returns the platform-specific base data directory
// On Linux: ~/.local/share
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func getAppDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			return "", errors.New("LOCALAPPDATA environment variable not set")
		}
		return localAppData, nil

	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil

	default: // Linux, BSD, etc.
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return xdgDataHome, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}

// GetDataDir returns the platform-specific data directory for the application
// On Linux: ~/.local/share/aipfetch/
// On macOS: ~/Library/Application Support/aipfetch/
// On Windows: %LOCALAPPDATA%\aipfetch\
func GetDataDir() (string, error) {
	baseDir, err := getAppDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, AppName), nil
}

// GetDownloadDir returns the default directory AIPs are written to.
// Format: <data_dir>/aips/
func GetDownloadDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "aips"), nil
}

// GetConfigDir returns the directory holding config.yaml, api_creds.json and uploaded.json.
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// BaseName returns the last '/'-separated segment of a logical (remote) path.
// Logical paths always use forward slashes regardless of the local OS.
func BaseName(logicalPath string) string {
	return logicalPath[strings.LastIndex(logicalPath, "/")+1:]
}
