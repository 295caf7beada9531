package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Keys returns the settings keys accepted by SetValue and GetValue, in file order.
func Keys() []string {
	t := reflect.TypeOf(Settings{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if key := yamlKey(t.Field(i)); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func yamlKey(field reflect.StructField) string {
	tag := field.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}

// settingsField returns the addressable Settings field tagged key.
func (c *Config) settingsField(key string) (reflect.Value, bool) {
	v := reflect.ValueOf(&c.Settings).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if yamlKey(t.Field(i)) == key {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// SetValue sets a configuration value by its YAML key, e.g. "download_dir"
// or "http_timeout". Durations use time.ParseDuration syntax.
func (c *Config) SetValue(key, value string) error {
	field, ok := c.settingsField(key)
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	switch field.Interface().(type) {
	case time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		field.SetInt(int64(d))
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		field.SetBool(b)
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		field.SetInt(int64(n))
	case string:
		field.SetString(value)
	default:
		return fmt.Errorf("unsupported configuration key: %s", key)
	}
	return nil
}

// GetValue returns a configuration value by its YAML key.
func (c *Config) GetValue(key string) (string, error) {
	field, ok := c.settingsField(key)
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return formatValue(field), nil
}

func formatValue(field reflect.Value) string {
	switch v := field.Interface().(type) {
	case time.Duration:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToMap returns every setting keyed by its YAML key.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)
	for _, key := range Keys() {
		field, _ := c.settingsField(key)
		result[key] = formatValue(field)
	}
	return result
}
