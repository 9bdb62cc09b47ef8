// Package config loads service settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service settings.
type Config struct {
	Addr      string `yaml:"addr"`
	DataDir   string `yaml:"data_dir"`
	SourcesDB string `yaml:"sources_db"`
	StoreDB   string `yaml:"store_db"`

	// DownloadMaxAge is how old a local country file may get before it is
	// downloaded again. Zero refreshes on every uncached load.
	DownloadMaxAge time.Duration `yaml:"download_max_age"`
	// FetchTimeout bounds one archive download. Zero means no timeout.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	// LoadTimeout bounds a whole country load. Zero means none.
	LoadTimeout time.Duration `yaml:"load_timeout"`
	// CheckInterval is the period of source availability checks; zero disables them.
	CheckInterval time.Duration `yaml:"check_interval"`

	AllowedCountries []string `yaml:"allowed_countries"`

	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:             ":8420",
		DataDir:          "data",
		SourcesDB:        "data/sources.db",
		StoreDB:          "data/store.db",
		DownloadMaxAge:   24 * time.Hour,
		FetchTimeout:     60 * time.Second,
		AllowedCountries: []string{"US", "CA"},
		LogLevel:         "info",
		LogFormat:        "text",
		ShutdownTimeout:  10 * time.Second,
	}
}

// Load reads path over the defaults, applies POSTAL_* environment overrides
// and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	setString("POSTAL_ADDR", &c.Addr)
	setString("POSTAL_DATA_DIR", &c.DataDir)
	setString("POSTAL_SOURCES_DB", &c.SourcesDB)
	setString("POSTAL_STORE_DB", &c.StoreDB)
	setString("POSTAL_LOG_LEVEL", &c.LogLevel)
	setString("POSTAL_LOG_FORMAT", &c.LogFormat)

	if v := os.Getenv("POSTAL_COUNTRIES"); v != "" {
		c.AllowedCountries = splitList(v)
	}

	for key, dst := range map[string]*time.Duration{
		"POSTAL_MAX_AGE":          &c.DownloadMaxAge,
		"POSTAL_FETCH_TIMEOUT":    &c.FetchTimeout,
		"POSTAL_LOAD_TIMEOUT":     &c.LoadTimeout,
		"POSTAL_CHECK_INTERVAL":   &c.CheckInterval,
		"POSTAL_SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
	} {
		if err := setDuration(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.DownloadMaxAge < 0 {
		return errors.New("download_max_age must not be negative")
	}
	if c.FetchTimeout < 0 {
		return errors.New("fetch_timeout must not be negative")
	}
	if c.LoadTimeout < 0 {
		return errors.New("load_timeout must not be negative")
	}
	if c.CheckInterval < 0 {
		return errors.New("check_interval must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	if len(c.AllowedCountries) == 0 {
		return errors.New("allowed_countries must list at least one country")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("log_format %q: want json or text", c.LogFormat)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
