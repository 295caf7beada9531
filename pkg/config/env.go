package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/glorpus-work/aipfetch/pkg/errors"
)

// EnvPrefix prefixes the environment variables that override settings,
// e.g. AIPFETCH_BASE_URL overrides base_url.
const EnvPrefix = "AIPFETCH_"

// EnvKey returns the environment variable name for a settings key.
func EnvKey(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// ApplyEnv overrides settings from AIPFETCH_* variables. Values from
// dotenvPath are used for variables the process environment does not set.
// A missing dotenv file is ignored.
func (c *Config) ApplyEnv(dotenvPath string) error {
	fileVars := map[string]string{}
	if dotenvPath != "" {
		vars, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			fileVars = vars
		case os.IsNotExist(err):
		default:
			return errors.Wrapf(errors.ErrConfigParse, "%s: %v", dotenvPath, err)
		}
	}

	lookup := func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok {
			return v, true
		}
		v, ok := fileVars[name]
		return v, ok
	}

	for _, key := range Keys() {
		value, ok := lookup(EnvKey(key))
		if !ok {
			continue
		}
		if err := c.SetValue(key, value); err != nil {
			return errors.Wrap(errors.ErrConfigValidation, err.Error())
		}
	}
	return nil
}
