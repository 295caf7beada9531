package cli

import (
	"fmt"
	"io"

	"github.com/glorpus-work/aipfetch/internal/logger"
	"github.com/glorpus-work/aipfetch/pkg/config"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	EnvFile    *string
	Verbose    *bool
	LogFormat  *string
)

// loadConfig loads the config file, then the environment overlay, then the
// global flags, in increasing order of precedence.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	envFile := DotEnvFile
	if EnvFile != nil && *EnvFile != "" {
		envFile = *EnvFile
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	if LogFormat != nil && *LogFormat != "" {
		cfg.Settings.LogFormat = *LogFormat
	}

	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path makes LoadConfig/SaveConfig report a descriptive error.
		return ""
	}
	return defaultPath
}

// newLogger builds the run logger from settings. With file set to false the
// log file is not opened, for commands that only print.
func newLogger(cfg *config.Config, console io.Writer, withFile bool) (*logger.Logger, error) {
	opts := logger.Options{
		Level:   cfg.Settings.LogLevel,
		Format:  logger.OutputFormat(cfg.Settings.LogFormat),
		Console: console,
	}
	if withFile {
		opts.File = cfg.Settings.LogFile
	}
	return logger.New(opts)
}

// stringOverride copies a non-empty flag value over a setting.
func stringOverride(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
