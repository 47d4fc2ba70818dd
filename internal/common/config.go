package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig   `toml:"logging"`
	Herald      HeraldConfig    `toml:"herald"`
	Catalog     CatalogConfig   `toml:"catalog"`
	Cookies     CookiesConfig   `toml:"cookies"`
	Snapshots   SnapshotsConfig `toml:"snapshots"`
	Filters     FiltersConfig   `toml:"filters"`
	Refresh     RefreshConfig   `toml:"refresh"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// HeraldConfig covers the upstream catalog site and the browser session that
// talks to it. The probe marker is configuration because the literal the site
// serves for an expired session is not guaranteed stable across versions.
type HeraldConfig struct {
	BaseURL         string        `toml:"base_url" validate:"required,url"`
	SearchPath      string        `toml:"search_path" validate:"required"`
	DetailPath      string        `toml:"detail_path" validate:"required"`
	ProbePath       string        `toml:"probe_path" validate:"required"`
	ProbeMarker     string        `toml:"probe_marker" validate:"required"`
	UserAgent       string        `toml:"user_agent"`
	Headless        bool          `toml:"headless"`
	SessionTimeout  time.Duration `toml:"session_timeout"`
	SearchSettle    time.Duration `toml:"search_settle"`
	DetailSettle    time.Duration `toml:"detail_settle"`
	ElementWait     time.Duration `toml:"element_wait"`
	RequestsPerMin  int           `toml:"requests_per_min"`
	SearchWaitFor   string        `toml:"search_wait_for"` // CSS selector, optional
	DetailWaitFor   string        `toml:"detail_wait_for"` // CSS selector, optional
	NavigateTimeout time.Duration `toml:"navigate_timeout"`
}

// CatalogConfig selects between the shipped internal catalog and the
// user-writable personal catalog.
type CatalogConfig struct {
	InternalPath string `toml:"internal_path" validate:"required"`
	PersonalPath string `toml:"personal_path"`
	UsePersonal  bool   `toml:"use_personal"`
	BackupDir    string `toml:"backup_dir"`
	Version      string `toml:"version"`
}

type CookiesConfig struct {
	Path string `toml:"path" validate:"required"`
}

type SnapshotsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	MaxAge  string `toml:"max_age"` // prune snapshots older than this, e.g. "168h"
}

// FiltersConfig holds the variant inclusion rules applied by the resolver
// unless a run skips filters.
type FiltersConfig struct {
	UnsupportedCurrencies []string `toml:"unsupported_currencies"`
	MinLevel              int      `toml:"min_level"`
	MaxLevel              int      `toml:"max_level"`
}

// RefreshConfig drives the optional scheduled catalog refresh.
type RefreshConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron format
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings belong in herald.toml; timing parameters have
// defaults tuned against the live site and rarely need changing.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Herald: HeraldConfig{
			BaseURL:         "https://eden-daoc.net",
			SearchPath:      "/itemsearch?s=%s",
			DetailPath:      "/item?id=%s",
			ProbePath:       "/characters",
			ProbeMarker:     "This page is not available",
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Headless:        true,
			SessionTimeout:  90 * time.Second,
			SearchSettle:    4 * time.Second,
			DetailSettle:    2 * time.Second,
			ElementWait:     8 * time.Second,
			RequestsPerMin:  20,
			SearchWaitFor:   "table.item-search-results",
			DetailWaitFor:   "div.item-details",
			NavigateTimeout: 60 * time.Second,
		},
		Catalog: CatalogConfig{
			InternalPath: "./data/items_database.json",
			PersonalPath: "./data/items_database_personal.json",
			UsePersonal:  true,
			BackupDir:    "./data/backups",
			Version:      "2",
		},
		Cookies: CookiesConfig{
			Path: "./data/cookies.json",
		},
		Snapshots: SnapshotsConfig{
			Enabled: true,
			Path:    "./data/snapshots",
			MaxAge:  "168h",
		},
		Filters: FiltersConfig{
			UnsupportedCurrencies: []string{"Bounty Points"},
			MinLevel:              0,
			MaxLevel:              0, // 0 = no upper bound
		},
		Refresh: RefreshConfig{
			Enabled:  false,
			Schedule: "0 0 4 * * *",
		},
	}
}

// LoadFromFile loads configuration from a single optional file.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2
// -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("HERALD_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}
	if level := os.Getenv("HERALD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if base := os.Getenv("HERALD_BASE_URL"); base != "" {
		config.Herald.BaseURL = base
	}
	if marker := os.Getenv("HERALD_PROBE_MARKER"); marker != "" {
		config.Herald.ProbeMarker = marker
	}
	if path := os.Getenv("HERALD_COOKIES_PATH"); path != "" {
		config.Cookies.Path = path
	}
	if path := os.Getenv("HERALD_CATALOG_PATH"); path != "" {
		config.Catalog.PersonalPath = path
	}
	if v := os.Getenv("HERALD_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Herald.Headless = b
		}
	}
}

// Validate checks structural constraints plus the refresh schedule.
func Validate(config *Config) error {
	v := validator.New()
	if err := v.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if config.Refresh.Enabled {
		if err := ValidateRefreshSchedule(config.Refresh.Schedule); err != nil {
			return err
		}
	}
	if config.Filters.MaxLevel > 0 && config.Filters.MinLevel > config.Filters.MaxLevel {
		return fmt.Errorf("invalid configuration: filters.min_level %d exceeds max_level %d",
			config.Filters.MinLevel, config.Filters.MaxLevel)
	}
	return nil
}

// ValidateRefreshSchedule validates a cron schedule string with seconds field.
func ValidateRefreshSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("refresh schedule is empty")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return nil
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ActiveCatalogPath returns the catalog file the engine should open for
// writes, falling back to the internal path when the personal catalog is
// disabled or missing.
func (c *Config) ActiveCatalogPath() string {
	if c.Catalog.UsePersonal && c.Catalog.PersonalPath != "" {
		return c.Catalog.PersonalPath
	}
	return c.Catalog.InternalPath
}
