// Package config loads the optional quarantine YAML configuration file.
//
// The file holds non-secret defaults for the CLI flags (preferred runtime,
// log level/format). Flags and QUARANTINE_* environment variables override it;
// a missing file at the default location is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File is the decoded configuration file.
type File struct {
	// Runtime is the default low-level runtime to request (e.g. "runsc").
	Runtime string `yaml:"runtime"`
	// LogLevel is the default log level: debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is the default log format: text or json.
	LogFormat string `yaml:"log_format"`
}

// Parse decodes a quarantine YAML document into a File and validates it.
// It is the canonical entry point for loading configurations.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks a File for structural correctness. It returns the first
// validation error encountered, or nil if the config is valid.
func Validate(f *File) error {
	if f == nil {
		return fmt.Errorf("config must not be nil")
	}
	switch f.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", f.LogLevel)
	}
	switch f.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json; got %q", f.LogFormat)
	}
	return nil
}

// Load reads the configuration file at path. When path is empty the default
// location (<user config dir>/quarantine/config.yaml) is tried, and a missing
// file there yields an empty File rather than an error. An explicitly given
// path must exist.
func Load(path string) (*File, error) {
	explicit := path != ""
	if !explicit {
		base, err := os.UserConfigDir()
		if err != nil {
			return &File{}, nil
		}
		path = filepath.Join(base, "quarantine", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &File{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}
