package config

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"symgraph/internal/inheritance"
)

// DefaultPath is used when no config file is given.
const DefaultPath = "symgraph.yaml"

// Config holds analysis, storage and logging settings.
type Config struct {
	Analysis struct {
		Workers int    `yaml:"workers"`
		MRO     string `yaml:"mro"`
		// Ignore lists extra directory names skipped when indexing a directory.
		Ignore []string `yaml:"ignore"`
	} `yaml:"analysis"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	cfg := &Config{}
	cfg.Analysis.Workers = runtime.GOMAXPROCS(0)
	cfg.Analysis.MRO = string(inheritance.PolicyC3)
	cfg.Storage.Path = "symgraph.db"
	cfg.Log.Level = "info"
	return cfg
}

// LoadConfig reads .env, then the YAML file, then SYMGRAPH_* environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	if v := os.Getenv("SYMGRAPH_DB"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("SYMGRAPH_MRO"); v != "" {
		cfg.Analysis.MRO = v
	}
	if v := os.Getenv("SYMGRAPH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrap(err, "SYMGRAPH_WORKERS")
		}
		cfg.Analysis.Workers = n
	}
	if v := os.Getenv("SYMGRAPH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the analyzer cannot run with.
func (c *Config) Validate() error {
	if c.Analysis.Workers < 1 {
		return errors.Errorf("analysis.workers must be positive, got %d", c.Analysis.Workers)
	}
	if _, err := inheritance.ParsePolicy(c.Analysis.MRO); err != nil {
		return errors.Wrap(err, "analysis.mro")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Policy returns the configured linearization policy.
func (c *Config) Policy() inheritance.Policy {
	p, err := inheritance.ParsePolicy(c.Analysis.MRO)
	if err != nil {
		return inheritance.PolicyC3
	}
	return p
}

// SlogLevel parses log.level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.Errorf("unknown log.level %q", c.Log.Level)
}
