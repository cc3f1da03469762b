package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings for one apidoctor invocation.
type Config struct {
	Target  TargetConfig  `yaml:"target"`
	Suite   SuiteConfig   `yaml:"suite"`
	Triage  TriageConfig  `yaml:"triage"`
	History HistoryConfig `yaml:"history"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// TargetConfig identifies the service under diagnosis.
type TargetConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// SuiteConfig controls the probe suite run.
type SuiteConfig struct {
	StreamTimeout time.Duration `yaml:"streamTimeout"`
	Concurrency   int           `yaml:"concurrency"`
	ResultsFile   string        `yaml:"resultsFile"`
	// ExpectedEndpoints are the paths the client assumes exist; the
	// discovery mode reports which of them the server actually serves.
	ExpectedEndpoints []string `yaml:"expectedEndpoints"`
}

// TriageConfig controls the failed-job triage run.
type TriageConfig struct {
	PerPage       int           `yaml:"perPage"`
	JobTimeout    time.Duration `yaml:"jobTimeout"`
	HealthTimeout time.Duration `yaml:"healthTimeout"`
	OutputFile    string        `yaml:"outputFile"`
}

// HistoryConfig controls the optional SQLite run-history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// WatchConfig controls continuous probing.
type WatchConfig struct {
	Interval       time.Duration `yaml:"interval"`
	MetricsAddress string        `yaml:"metricsAddress"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("APIDOCTOR_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Target: TargetConfig{
			BaseURL: "http://localhost:18011",
			Token:   "dev-token",
			Timeout: 5 * time.Second,
		},
		Suite: SuiteConfig{
			StreamTimeout: 3 * time.Second,
			Concurrency:   1,
			ResultsFile:   "test_results_api.json",
			ExpectedEndpoints: []string{
				"/api/v1/system/info",
				"/api/v1/system/server-info",
				"/api/v1/pipelines/catalog",
				"/api/v1/pipelines/schema",
			},
		},
		Triage: TriageConfig{
			PerPage:       100,
			JobTimeout:    10 * time.Second,
			HealthTimeout: 5 * time.Second,
			OutputFile:    "failed_jobs_diagnostics.json",
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    "apidoctor_history.db",
		},
		Watch: WatchConfig{
			Interval:       time.Minute,
			MetricsAddress: ":2112",
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APIDOCTOR_BASE_URL"); v != "" {
		cfg.Target.BaseURL = v
	}
	if v := os.Getenv("APIDOCTOR_TOKEN"); v != "" {
		cfg.Target.Token = v
	}
	if v := os.Getenv("APIDOCTOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Target.Timeout = d
		}
	}
	if v := os.Getenv("APIDOCTOR_STREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Suite.StreamTimeout = d
		}
	}
	if v := os.Getenv("APIDOCTOR_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Suite.Concurrency = n
		}
	}
	if v := os.Getenv("APIDOCTOR_RESULTS_FILE"); v != "" {
		cfg.Suite.ResultsFile = v
	}
	if v := os.Getenv("APIDOCTOR_PER_PAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Triage.PerPage = n
		}
	}
	if v := os.Getenv("APIDOCTOR_TRIAGE_OUTPUT"); v != "" {
		cfg.Triage.OutputFile = v
	}
	if v := os.Getenv("APIDOCTOR_HISTORY_ENABLED"); v != "" {
		cfg.History.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("APIDOCTOR_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("APIDOCTOR_WATCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Watch.Interval = d
		}
	}
	if v := os.Getenv("APIDOCTOR_METRICS_ADDRESS"); v != "" {
		cfg.Watch.MetricsAddress = v
	}
	if v := os.Getenv("APIDOCTOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("APIDOCTOR_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
