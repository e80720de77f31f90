package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	GitHub    GitHubConfig
	Scheduler SchedulerConfig
	Sync      SyncConfig
	Log       LogConfig
}

// ServerConfig holds process-level settings
type ServerConfig struct {
	Env string
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host      string
	Port      string
	Namespace string
	Database  string
	User      string
	Password  string
}

// GitHubConfig holds GitHub API settings
type GitHubConfig struct {
	Token           string
	APIURL          string
	ReleasesPerPage int
	TokenKey        string
}

// SchedulerConfig holds the cadence of the release scheduler
type SchedulerConfig struct {
	Enabled           bool
	SyncIntervalHours int
	JobCheckInterval  time.Duration
}

// SyncConfig holds per-run limits of the scrape job
type SyncConfig struct {
	ModuleDelay time.Duration
	StaleAfter  time.Duration
	MaxModules  int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads configuration from the environment. When envFile names an
// existing file its values are loaded first; variables already set in the
// environment win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Env: getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:      getEnv("DB_HOST", "localhost"),
			Port:      getEnv("DB_PORT", "8000"),
			Namespace: getEnv("DB_NAMESPACE", "modhub"),
			Database:  getEnv("DB_DATABASE", "main"),
			User:      getEnv("DB_USER", "root"),
			Password:  getEnv("DB_PASSWORD", "root"),
		},
		GitHub: GitHubConfig{
			Token:           getEnv("GITHUB_TOKEN", ""),
			APIURL:          getEnv("GITHUB_API_URL", ""),
			ReleasesPerPage: getIntEnv("GITHUB_RELEASES_PER_PAGE", 10),
			TokenKey:        getEnv("GITHUB_TOKEN_KEY", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:           getBoolEnv("RELEASE_SCHEDULE_ENABLED", false),
			SyncIntervalHours: getIntEnv("DEFAULT_SYNC_INTERVAL_HOURS", 6),
			JobCheckInterval:  getMillisEnv("JOB_CHECK_INTERVAL_MS", 60*time.Second),
		},
		Sync: SyncConfig{
			ModuleDelay: getMillisEnv("SYNC_MODULE_DELAY_MS", time.Second),
			StaleAfter:  time.Duration(getIntEnv("SYNC_STALE_AFTER_HOURS", 24)) * time.Hour,
			MaxModules:  getIntEnv("SYNC_MAX_MODULES", 1000),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getIntEnv("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getIntEnv("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getIntEnv("LOG_MAX_AGE_DAYS", 30),
		},
	}, nil
}

// SyncInterval returns the auto-enqueue interval
func (s SchedulerConfig) SyncInterval() time.Duration {
	return time.Duration(s.SyncIntervalHours) * time.Hour
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}

	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.Namespace == "" {
		errs = append(errs, errors.New("DB_NAMESPACE is required"))
	}
	if c.Database.Database == "" {
		errs = append(errs, errors.New("DB_DATABASE is required"))
	}

	if c.GitHub.ReleasesPerPage <= 0 || c.GitHub.ReleasesPerPage > 100 {
		errs = append(errs, fmt.Errorf("GITHUB_RELEASES_PER_PAGE must be between 1 and 100, got %d", c.GitHub.ReleasesPerPage))
	}
	if c.GitHub.TokenKey != "" {
		if key, err := hex.DecodeString(c.GitHub.TokenKey); err != nil || len(key) != 32 {
			errs = append(errs, errors.New("GITHUB_TOKEN_KEY must be 64 hex characters"))
		}
	}
	if c.IsProduction() && c.GitHub.Token == "" {
		errs = append(errs, errors.New("GITHUB_TOKEN is required in production"))
	}

	if c.Scheduler.SyncIntervalHours <= 0 {
		errs = append(errs, errors.New("DEFAULT_SYNC_INTERVAL_HOURS must be positive"))
	}
	if c.Scheduler.JobCheckInterval <= 0 {
		errs = append(errs, errors.New("JOB_CHECK_INTERVAL_MS must be positive"))
	}

	if c.Sync.ModuleDelay < 0 {
		errs = append(errs, errors.New("SYNC_MODULE_DELAY_MS must not be negative"))
	}
	if c.Sync.StaleAfter <= 0 {
		errs = append(errs, errors.New("SYNC_STALE_AFTER_HOURS must be positive"))
	}
	if c.Sync.MaxModules <= 0 {
		errs = append(errs, errors.New("SYNC_MAX_MODULES must be positive"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be 'json' or 'text', got '%s'", c.Log.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getMillisEnv reads an integer number of milliseconds
func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
