// Package errors defines the error vocabulary shared by the aipfetch packages.
// Callers classify failures with errors.Is against the sentinels below; the
// helpers attach context while keeping the sentinel in the chain.
package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigMarshal     = fmt.Errorf("failed to marshal config to YAML")

	// Settings validation errors.
	ErrBaseURLEmpty         = fmt.Errorf("base_url cannot be empty")
	ErrBaseURLInvalid       = fmt.Errorf("base_url is not a valid http(s) URL")
	ErrHTTPTimeoutNegative  = fmt.Errorf("http_timeout cannot be negative")
	ErrChunkSizeInvalid     = fmt.Errorf("chunk_size must be positive")
	ErrInvalidLogLevel      = fmt.Errorf("invalid log level")
	ErrInvalidLogFormat     = fmt.Errorf("invalid log format")
	ErrInvalidVerification  = fmt.Errorf("invalid verification strategy")
	ErrUnsupportedAPI       = fmt.Errorf("unsupported storage service API version")
	ErrDownloadDirEmpty     = fmt.Errorf("download_dir cannot be empty")
	ErrCredentialsPathEmpty = fmt.Errorf("credentials_file cannot be empty")
	ErrManifestPathEmpty    = fmt.Errorf("manifest_file cannot be empty")

	// Credential errors.
	ErrCredentialsNotFound = fmt.Errorf("credentials file not found")
	ErrCredentialsParse    = fmt.Errorf("invalid JSON in credentials file")
	ErrCredentialsInvalid  = fmt.Errorf("credentials file must contain 'username' and 'api_key'")

	// Manifest errors.
	ErrManifestNotFound = fmt.Errorf("manifest file not found")
	ErrManifestParse    = fmt.Errorf("invalid JSON in manifest file")
	ErrManifestInvalid  = fmt.Errorf("manifest must contain an 'objects' array of {uuid, current_path}")
	ErrInvalidFilename  = fmt.Errorf("logical path has no usable filename")

	// Transfer errors.
	ErrInvalidPath      = fmt.Errorf("invalid path")
	ErrDownloadFailed   = fmt.Errorf("download failed")
	ErrUnexpectedStatus = fmt.Errorf("unexpected status code")
	ErrShortTransfer    = fmt.Errorf("transfer ended before the declared size")

	// Hook errors.
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
	ErrHookLoad      = fmt.Errorf("failed to load hook")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrInvalidLogFormatWithDetails is a helper to create a wrapped error with the invalid format and valid options.
func ErrInvalidLogFormatWithDetails(format string) error {
	return fmt.Errorf("%w: '%s', must be one of: text, json", ErrInvalidLogFormat, format)
}

// ErrInvalidVerificationWithDetails is a helper to create a wrapped error with the invalid strategy and valid options.
func ErrInvalidVerificationWithDetails(strategy string) error {
	return fmt.Errorf("%w: '%s', must be one of: size, resume", ErrInvalidVerification, strategy)
}

// ErrUnsupportedAPIWithVersion creates an error naming the rejected API version and the accepted constraint.
func ErrUnsupportedAPIWithVersion(v, constraint string) error {
	return fmt.Errorf("%w: %s (need %s)", ErrUnsupportedAPI, v, constraint)
}

// ErrUnexpectedStatusWithCode creates an error carrying the HTTP status code.
func ErrUnexpectedStatusWithCode(code int) error {
	return fmt.Errorf("%w: %d", ErrUnexpectedStatus, code)
}

// ErrInvalidFilenameWithPath creates an error naming the logical path that produced no filename.
func ErrInvalidFilenameWithPath(logicalPath string) error {
	return fmt.Errorf("%w: %q", ErrInvalidFilename, logicalPath)
}
