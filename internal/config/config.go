package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the dashboard settings. Values come from defaults, then an
// optional YAML file, then environment variable overrides, in that order.
type Config struct {
	BackendURL            string  `yaml:"backend_url"`
	PollIntervalSeconds   int     `yaml:"poll_interval_seconds"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	ConfidenceThreshold   float64 `yaml:"confidence_threshold"`

	// AllowDeleteSent controls whether already-sent emails may be deleted.
	// The source UI was inconsistent about this, so it is policy, not code.
	AllowDeleteSent bool `yaml:"allow_delete_sent"`

	DataDir string `yaml:"data_dir"`

	// Derived
	PollInterval   time.Duration `yaml:"-"`
	RequestTimeout time.Duration `yaml:"-"`
}

// Load reads the config file at path (missing file is fine) and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		BackendURL:            "http://localhost:8000",
		PollIntervalSeconds:   60,
		RequestTimeoutSeconds: 20,
		ConfidenceThreshold:   0.9,
		AllowDeleteSent:       true,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if v := os.Getenv("TRIAGEDESK_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("TRIAGEDESK_POLL_INTERVAL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TRIAGEDESK_POLL_INTERVAL_SECONDS: %w", err)
		}
		cfg.PollIntervalSeconds = n
	}
	if v := os.Getenv("TRIAGEDESK_REQUEST_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TRIAGEDESK_REQUEST_TIMEOUT_SECONDS: %w", err)
		}
		cfg.RequestTimeoutSeconds = n
	}
	if v := os.Getenv("TRIAGEDESK_CONFIDENCE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TRIAGEDESK_CONFIDENCE_THRESHOLD: %w", err)
		}
		cfg.ConfidenceThreshold = f
	}
	if v := os.Getenv("TRIAGEDESK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("determine home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".config", "triagedesk")
	}

	if cfg.PollIntervalSeconds <= 0 {
		return nil, fmt.Errorf("poll_interval_seconds must be positive, got %d", cfg.PollIntervalSeconds)
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("request_timeout_seconds must be positive, got %d", cfg.RequestTimeoutSeconds)
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("confidence_threshold must be in [0,1], got %v", cfg.ConfidenceThreshold)
	}

	cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	return cfg, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "triagedesk", "config.yaml")
}
