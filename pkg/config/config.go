// Package config provides configuration management for aipfetch.
// It handles loading, validating and saving the YAML settings file, and
// overlaying values from AIPFETCH_* environment variables and an optional
// .env file.
package config

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/aipfetch/pkg/download"
	"github.com/glorpus-work/aipfetch/pkg/errors"
	"github.com/glorpus-work/aipfetch/pkg/fsutil"
)

// Config represents the application configuration.
type Config struct {
	// General settings
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Storage service
	BaseURL    string `yaml:"base_url"`
	APIVersion string `yaml:"api_version"`
	AuthScheme string `yaml:"auth_scheme,omitempty"`
	UserAgent  string `yaml:"user_agent,omitempty"`

	// Inputs
	CredentialsFile string `yaml:"credentials_file"`
	ManifestFile    string `yaml:"manifest_file"`

	// Download settings
	DownloadDir  string `yaml:"download_dir"`
	Verification string `yaml:"verification"` // size, resume
	AtomicWrites bool   `yaml:"atomic_writes"`
	ChunkSize    int    `yaml:"chunk_size"`

	// Network settings
	HTTPTimeout time.Duration `yaml:"http_timeout"` // 0 disables the timeout

	// Hooks
	PostDownloadHook string `yaml:"post_download_hook,omitempty"` // path to a .tengo script
	HooksDir         string `yaml:"hooks_dir,omitempty"`          // directory of <hook-type>.tengo scripts

	// Output settings
	LogFile   string `yaml:"log_file"`
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
}

// Default configuration values.
const (
	// DefaultAPIVersion is the storage service API version used when none is configured.
	DefaultAPIVersion = "2"

	// DefaultAuthScheme prefixes the credentials in the Authorization header.
	DefaultAuthScheme = "ApiKey"

	// DefaultChunkSize is the read buffer per transfer.
	DefaultChunkSize = download.DefaultChunkSize

	// DefaultVerification compares byte lengths only.
	DefaultVerification = string(download.StrategySize)

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		configDir = "."
	}
	downloadDir, err := fsutil.GetDownloadDir()
	if err != nil {
		downloadDir = "aips"
	}
	dataDir, err := fsutil.GetDataDir()
	if err != nil {
		dataDir = "."
	}

	return &Config{
		Settings: Settings{
			APIVersion:      DefaultAPIVersion,
			AuthScheme:      DefaultAuthScheme,
			CredentialsFile: filepath.Join(configDir, "api_creds.json"),
			ManifestFile:    filepath.Join(configDir, "uploaded.json"),
			DownloadDir:     downloadDir,
			Verification:    DefaultVerification,
			ChunkSize:       DefaultChunkSize,
			LogFile:         filepath.Join(dataDir, "download.log"),
			LogLevel:        "info",
			LogFormat:       "text",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	// base_url may still come from flags or the environment, so it is not
	// required here; Validate enforces it once every source is applied.
	if err := config.validateSettings(false); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig saves configuration to a file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeSecure)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is complete and valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	return c.validateSettings(true)
}

func (c *Config) validateSettings(requireBaseURL bool) error {
	s := c.Settings
	if s.BaseURL == "" {
		if requireBaseURL {
			return errors.ErrBaseURLEmpty
		}
	} else if err := validateBaseURL(s.BaseURL); err != nil {
		return err
	}
	if err := ValidateAPIVersion(s.APIVersion); err != nil {
		return err
	}
	if s.CredentialsFile == "" {
		return errors.ErrCredentialsPathEmpty
	}
	if s.ManifestFile == "" {
		return errors.ErrManifestPathEmpty
	}
	if s.DownloadDir == "" {
		return errors.ErrDownloadDirEmpty
	}
	if s.HTTPTimeout < 0 {
		return errors.ErrHTTPTimeoutNegative
	}
	if s.ChunkSize <= 0 {
		return errors.ErrChunkSizeInvalid
	}
	switch download.Strategy(s.Verification) {
	case download.StrategySize, download.StrategyResume:
	default:
		return errors.ErrInvalidVerificationWithDetails(s.Verification)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.LogFormat] {
		return errors.ErrInvalidLogFormatWithDetails(s.LogFormat)
	}
	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(errors.ErrBaseURLInvalid, "%q", raw)
	}
	return nil
}

// ValidateAPIVersion checks v against the API range the download client speaks.
func ValidateAPIVersion(v string) error {
	_, err := download.APIPrefix(v)
	return err
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user config directory")
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.APIVersion == "" {
		c.Settings.APIVersion = defaults.Settings.APIVersion
	}
	if c.Settings.AuthScheme == "" {
		c.Settings.AuthScheme = defaults.Settings.AuthScheme
	}
	if c.Settings.CredentialsFile == "" {
		c.Settings.CredentialsFile = defaults.Settings.CredentialsFile
	}
	if c.Settings.ManifestFile == "" {
		c.Settings.ManifestFile = defaults.Settings.ManifestFile
	}
	if c.Settings.DownloadDir == "" {
		c.Settings.DownloadDir = defaults.Settings.DownloadDir
	}
	if c.Settings.Verification == "" {
		c.Settings.Verification = defaults.Settings.Verification
	}
	if c.Settings.ChunkSize == 0 {
		c.Settings.ChunkSize = defaults.Settings.ChunkSize
	}
	if c.Settings.LogFile == "" {
		c.Settings.LogFile = defaults.Settings.LogFile
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.LogFormat == "" {
		c.Settings.LogFormat = defaults.Settings.LogFormat
	}
}
