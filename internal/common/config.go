package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Worker      WorkerConfig    `toml:"worker"`
	Portal      PortalConfig    `toml:"portal"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// SchedulerConfig controls the polling loop that drains the lead queue.
type SchedulerConfig struct {
	Enabled             bool   `toml:"enabled"`
	PollInterval        string `toml:"poll_interval"`        // e.g. "6s" - how often the queue is probed
	BatchLimit          int    `toml:"batch_limit"`          // Max leads dispatched to one worker run
	MaintenanceSchedule string `toml:"maintenance_schedule"` // Cron schedule for the Badger GC sweep
}

// WorkerConfig controls the spawned worker process and its per-item behavior.
type WorkerConfig struct {
	Binary             string `toml:"binary"`               // Worker executable; empty = re-exec self with -worker
	Headless           bool   `toml:"headless"`             // Run the browser headless
	NoSandbox          bool   `toml:"no_sandbox"`           // Pass --no-sandbox to the browser
	NavigationTimeout  string `toml:"navigation_timeout"`   // Per-navigation timeout, e.g. "45s"
	LoginTimeout       string `toml:"login_timeout"`        // Timeout for each authentication stage
	MaxRetries         int    `toml:"max_retries"`          // Extraction attempts per lead before permanent failure
	MaxAcquireAttempts int    `toml:"max_acquire_attempts"` // Account lease attempts before giving up
	MinutePacing       bool   `toml:"minute_pacing"`        // Long randomized delay between leads
	PacingMin          string `toml:"pacing_min"`           // Lower bound of the randomized delay
	PacingMax          string `toml:"pacing_max"`           // Upper bound of the randomized delay
}

// PortalConfig describes the target site: where to log in, how to recognize
// an authenticated page and which selectors locate the credential form.
type PortalConfig struct {
	LoginURL          string   `toml:"login_url"`
	HomeURL           string   `toml:"home_url"`          // Authenticated landing page
	HomeURLMarker     string   `toml:"home_url_marker"`   // Substring proving the authenticated landing (e.g. "/feed")
	UsernameSelector  string   `toml:"username_selector"` // Credential form field selectors
	PasswordSelector  string   `toml:"password_selector"`
	SubmitSelector    string   `toml:"submit_selector"`
	LogoutURLPrefixes []string `toml:"logout_url_prefixes"` // URL prefixes indicating a forced logout (login, checkpoint)
	CookieDomains     []string `toml:"cookie_domains"`      // Domain suffixes worth persisting from the session jar
	UserAgent         string   `toml:"user_agent"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// DefaultConfig returns the baseline configuration before file/env/flag overrides.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 4002,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/venator",
				ResetOnStartup: false,
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:             true,
			PollInterval:        "6s",
			BatchLimit:          40,
			MaintenanceSchedule: "0 3 * * *",
		},
		Worker: WorkerConfig{
			Binary:             "",
			Headless:           true,
			NoSandbox:          true,
			NavigationTimeout:  "45s",
			LoginTimeout:       "45s",
			MaxRetries:         3,
			MaxAcquireAttempts: 5,
			MinutePacing:       true,
			PacingMin:          "60s",
			PacingMax:          "85s",
		},
		Portal: PortalConfig{
			LoginURL:          "https://www.linkedin.com/login",
			HomeURL:           "https://www.linkedin.com/feed/",
			HomeURLMarker:     "/feed",
			UsernameSelector:  "input#username",
			PasswordSelector:  "input#password",
			SubmitSelector:    `button[type="submit"]`,
			LogoutURLPrefixes: []string{"https://www.linkedin.com/login", "https://www.linkedin.com/checkpoint", "https://www.linkedin.com/uas"},
			CookieDomains:     []string{"linkedin.com"},
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFile loads configuration from a TOML file layered over defaults,
// then applies environment variable overrides. An empty path loads defaults
// plus environment only.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies environment variable overrides (VENATOR_* prefix)
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("VENATOR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("VENATOR_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("VENATOR_STORAGE_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("VENATOR_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("VENATOR_SCHEDULER_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			config.Scheduler.Enabled = enabled
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks configuration invariants that would otherwise surface as
// runtime failures deep inside the scheduler or worker.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Scheduler.BatchLimit <= 0 {
		return fmt.Errorf("scheduler batch_limit must be positive, got %d", c.Scheduler.BatchLimit)
	}
	if c.Worker.MaxRetries <= 0 {
		return fmt.Errorf("worker max_retries must be positive, got %d", c.Worker.MaxRetries)
	}
	if c.Worker.MaxAcquireAttempts <= 0 {
		return fmt.Errorf("worker max_acquire_attempts must be positive, got %d", c.Worker.MaxAcquireAttempts)
	}
	if _, err := time.ParseDuration(c.Scheduler.PollInterval); err != nil {
		return fmt.Errorf("invalid scheduler poll_interval %q: %w", c.Scheduler.PollInterval, err)
	}
	for name, value := range map[string]string{
		"navigation_timeout": c.Worker.NavigationTimeout,
		"login_timeout":      c.Worker.LoginTimeout,
		"pacing_min":         c.Worker.PacingMin,
		"pacing_max":         c.Worker.PacingMax,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid worker %s %q: %w", name, value, err)
		}
	}
	return nil
}

// PollInterval returns the parsed scheduler poll interval.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.PollInterval)
	if err != nil {
		return 6 * time.Second
	}
	return d
}

// ParseDurationOr parses a duration string, falling back to a default.
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
