// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/roomsync/lib/ref"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "ROOMSYNC_CONFIG"

// DefaultSyncTimeout is the long-poll timeout sent with /sync when the
// file does not set one.
const DefaultSyncTimeout = 30 * time.Second

// Config is the complete roomsync configuration.
type Config struct {
	// Homeserver is the base URL of the Matrix homeserver.
	Homeserver string `yaml:"homeserver"`

	// UserID is the account to log in as. Required with PasswordFile.
	UserID string `yaml:"user_id"`

	// PasswordFile holds the account password ("-" reads stdin).
	PasswordFile string `yaml:"password_file"`

	// AccessTokenFile holds an existing access token. Takes
	// precedence over PasswordFile.
	AccessTokenFile string `yaml:"access_token_file"`

	Sync    SyncConfig    `yaml:"sync"`
	Log     LogConfig     `yaml:"log"`
	Tap     TapConfig     `yaml:"tap"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SyncConfig configures the /sync long poll.
type SyncConfig struct {
	// Timeout is how long the server may hold a /sync request open.
	Timeout time.Duration `yaml:"timeout"`

	// FilterFile is an optional JSONC filter definition sent inline
	// with each /sync request.
	FilterFile string `yaml:"filter_file"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text, json, or auto (text on a terminal).
	Format string `yaml:"format"`
}

// TapConfig configures recording of dispatched events.
type TapConfig struct {
	// Path is the tap file; empty disables recording.
	Path string `yaml:"path"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address serving /metrics; empty disables it.
	Listen string `yaml:"listen"`
}

// Default returns the configuration that file values are merged into.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{Timeout: DefaultSyncTimeout},
		Log:  LogConfig{Level: "info", Format: "auto"},
	}
}

// Load loads the file named by ROOMSYNC_CONFIG. It fails when the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your roomsync.yaml, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path. Relative path fields are
// resolved against the directory containing the file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.expandVariables(filepath.Dir(path))
	return cfg, nil
}

func (c *Config) expandVariables(baseDirectory string) {
	for _, field := range []*string{&c.PasswordFile, &c.AccessTokenFile, &c.Sync.FilterFile, &c.Tap.Path} {
		if *field == "" || *field == "-" {
			continue
		}
		expanded := expandVars(*field)
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(baseDirectory, expanded)
		}
		*field = expanded
	}
	c.Homeserver = expandVars(c.Homeserver)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"auto", "text", "json"}
)

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Homeserver == "" {
		errs = append(errs, errors.New("homeserver is required"))
	} else if parsed, err := url.Parse(c.Homeserver); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("homeserver %q must be an http(s) URL", c.Homeserver))
	}

	if c.UserID != "" {
		if _, err := ref.ParseUserID(c.UserID); err != nil {
			errs = append(errs, fmt.Errorf("user_id: %w", err))
		}
	}

	switch {
	case c.AccessTokenFile != "":
	case c.PasswordFile != "":
		if c.UserID == "" {
			errs = append(errs, errors.New("user_id is required for password_file login"))
		}
	default:
		errs = append(errs, errors.New("one of access_token_file or password_file is required"))
	}

	if c.Sync.Timeout < 0 {
		errs = append(errs, fmt.Errorf("sync.timeout must not be negative, got %s", c.Sync.Timeout))
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	return errors.Join(errs...)
}

// SlogLevel returns Log.Level as a slog.Level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LoadSyncFilter reads Sync.FilterFile and returns it as compact JSON.
// It returns nil when no filter is configured.
func (c *Config) LoadSyncFilter() (json.RawMessage, error) {
	if c.Sync.FilterFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Sync.FilterFile)
	if err != nil {
		return nil, fmt.Errorf("reading sync filter: %w", err)
	}
	stripped := jsonc.ToJSON(data)
	var filter map[string]any
	if err := json.Unmarshal(stripped, &filter); err != nil {
		return nil, fmt.Errorf("parsing sync filter %s: %w", c.Sync.FilterFile, err)
	}
	compact, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}
	return compact, nil
}
