package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/meteoradar/internal/common"
	"github.com/i474232898/meteoradar/internal/radar"
)

// RadarCodeTag is the validator rule every radar code must satisfy.
const RadarCodeTag = "required,alphanum,max=16"

var validate = validator.New()

type AppConfig struct {
	// Radars to publish sensors for.
	Radars []string

	// UpdateInterval controls how often every radar is polled.
	UpdateInterval time.Duration
	// UpdateCron replaces UpdateInterval when set.
	UpdateCron string

	// Timezone is the zone scan times are rendered in.
	Timezone string
	Location *time.Location

	RainViewerBaseURL string
	HTTPTimeout       time.Duration

	// SelectByTimestamp picks the newest scan by timestamp rather than array order.
	SelectByTimestamp bool

	// In-memory store retention.
	StoreMaxHistory int           // max number of states per sensor (0 = unlimited)
	StoreMaxAge     time.Duration // max age of states (0 = unlimited)

	Port            string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// FileConfig is the optional YAML file, keyed like an AppDaemon app entry.
type FileConfig struct {
	Radar             string   `yaml:"radar"`
	Radars            []string `yaml:"radars"`
	UpdateInterval    int      `yaml:"update_interval"` // seconds
	UpdateCron        string   `yaml:"update_cron"`
	Timezone          string   `yaml:"timezone"`
	SelectByTimestamp *bool    `yaml:"select_by_timestamp"`
}

// Load reads configuration with sensible defaults. A .env file is loaded
// first if present; values from CONFIG_FILE are applied next and environment
// variables win over both.
func Load() (*AppConfig, error) {
	// A missing .env is the normal case in production.
	_ = godotenv.Load()

	cfg := &AppConfig{
		Radars:            []string{radar.DefaultRadarCode},
		UpdateInterval:    300 * time.Second,
		Timezone:          radar.DefaultTimezone,
		RainViewerBaseURL: radar.DefaultBaseURL,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		fc.apply(cfg)
	}

	if v := os.Getenv("RADAR_CODES"); v != "" {
		cfg.Radars = common.SplitList(v)
	}

	if v := os.Getenv("UPDATE_INTERVAL"); v != "" {
		interval, err := parseInterval(v)
		if err != nil {
			return nil, fmt.Errorf("invalid UPDATE_INTERVAL: %w", err)
		}
		cfg.UpdateInterval = interval
	}

	cfg.UpdateCron = getenvDefault("UPDATE_CRON", cfg.UpdateCron)
	cfg.Timezone = getenvDefault("LOCAL_TIMEZONE", cfg.Timezone)
	cfg.RainViewerBaseURL = getenvDefault("RAINVIEWER_BASE_URL", cfg.RainViewerBaseURL)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	if v := os.Getenv("SELECT_BY_TIMESTAMP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SELECT_BY_TIMESTAMP: %w", err)
		}
		cfg.SelectByTimestamp = b
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 288) // 24h at the default 5-minute interval
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads the YAML config file at path.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}
	return &fc, nil
}

func (fc *FileConfig) apply(cfg *AppConfig) {
	switch {
	case len(fc.Radars) > 0:
		cfg.Radars = fc.Radars
	case fc.Radar != "":
		cfg.Radars = []string{fc.Radar}
	}
	if fc.UpdateInterval > 0 {
		cfg.UpdateInterval = time.Duration(fc.UpdateInterval) * time.Second
	}
	if fc.UpdateCron != "" {
		cfg.UpdateCron = fc.UpdateCron
	}
	if fc.Timezone != "" {
		cfg.Timezone = fc.Timezone
	}
	if fc.SelectByTimestamp != nil {
		cfg.SelectByTimestamp = *fc.SelectByTimestamp
	}
}

func (cfg *AppConfig) validate() error {
	cfg.Radars = common.Dedupe(cfg.Radars)
	if len(cfg.Radars) == 0 {
		return errors.New("at least one radar code is required")
	}
	for _, code := range cfg.Radars {
		if err := validate.Var(code, RadarCodeTag); err != nil {
			return fmt.Errorf("invalid radar code %q: %w", code, err)
		}
	}
	if cfg.UpdateInterval <= 0 {
		return errors.New("UPDATE_INTERVAL must be positive")
	}
	if cfg.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	if cfg.UpdateCron != "" {
		if _, err := cron.ParseStandard(cfg.UpdateCron); err != nil {
			return fmt.Errorf("invalid UPDATE_CRON: %w", err)
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid LOCAL_TIMEZONE: %w", err)
	}
	cfg.Location = loc
	return nil
}

// parseInterval accepts plain seconds ("300") or a Go duration ("5m").
func parseInterval(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
