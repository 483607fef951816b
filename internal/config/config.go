package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // пояс доступен и без системной базы

	"tasker/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Backend    BackendConfig    `yaml:"backend"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Lifecycle  LifecycleConfig  `yaml:"lifecycle"`
	Booking    BookingConfig    `yaml:"booking"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type BackendConfig struct {
	BaseURL   string          `yaml:"base_url"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
	CacheTTL  time.Duration   `yaml:"cache_ttl"`
}

type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type PricingConfig struct {
	Timezone       string           `yaml:"timezone"`
	Multipliers    MultiplierConfig `yaml:"multipliers"`
	GasRefillFee   float64          `yaml:"gas_refill_fee"`
	DrumRemovalFee float64          `yaml:"drum_removal_fee"`
	Order          []string         `yaml:"order"`
	Holidays       []string         `yaml:"holidays"`

	location *time.Location
}

type MultiplierConfig struct {
	Premium float64 `yaml:"premium"`
	Weekend float64 `yaml:"weekend"`
	SameDay float64 `yaml:"same_day"`
	NextDay float64 `yaml:"next_day"`
	Holiday float64 `yaml:"holiday"`
}

// Location is the configured pricing time zone, resolved by Validate.
func (p PricingConfig) Location() *time.Location {
	if p.location == nil {
		return time.UTC
	}
	return p.location
}

type LifecycleConfig struct {
	CancelWindow time.Duration `yaml:"cancel_window"`
}

type BookingConfig struct {
	MaxBookingDays   int           `yaml:"max_booking_days"`
	DraftTTL         time.Duration `yaml:"draft_ttl"`
	SubmitRateLimit  int           `yaml:"submit_rate_limit"`
	SubmitRateWindow time.Duration `yaml:"submit_rate_window"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig   `yaml:"http"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend base_url %q must be an http(s) URL", c.Backend.BaseURL)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	loc, err := time.LoadLocation(c.Pricing.Timezone)
	if err != nil {
		return fmt.Errorf("pricing timezone: %w", err)
	}
	c.Pricing.location = loc

	m := c.Pricing.Multipliers
	for name, v := range map[string]float64{
		"premium": m.Premium, "weekend": m.Weekend, "same_day": m.SameDay, "next_day": m.NextDay, "holiday": m.Holiday,
	} {
		if v < 1 {
			return fmt.Errorf("pricing multiplier %s must be >= 1, got %v", name, v)
		}
	}
	if c.Lifecycle.CancelWindow < 0 {
		return errors.New("lifecycle cancel_window must not be negative")
	}
	if c.Backup.Enabled && c.Backup.StoragePath == "" {
		return errors.New("backup storage_path is required when backups are enabled")
	}
	return nil
}

// ValidateCatalog checks the service catalog loaded next to the config.
func ValidateCatalog(entries []models.CatalogEntry) error {
	ids := make(map[string]bool)
	tiers := make(map[string]bool)
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("catalog entry '%s' has empty id", e.Name)
		}
		if ids[e.ID] {
			return fmt.Errorf("duplicate catalog id found: %s", e.ID)
		}
		ids[e.ID] = true
		if !e.Category.IsValid() {
			return fmt.Errorf("catalog entry %s has unknown category %q", e.ID, e.Category)
		}
		if e.Tier != "" {
			key := string(e.Category) + "/" + e.Tier
			if tiers[key] {
				return fmt.Errorf("duplicate tier %q in category %s", e.Tier, e.Category)
			}
			tiers[key] = true
		}
		for _, p := range e.Packages {
			if p.Hours < 1 {
				return fmt.Errorf("catalog entry %s has a package of %d hours", e.ID, p.Hours)
			}
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "tasker"
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	if c.Backend.CacheTTL == 0 {
		c.Backend.CacheTTL = models.ServiceCacheTTL
	}
	if c.Backend.Retry.BackoffFactor == 0 {
		c.Backend.Retry.BackoffFactor = 2
	}
	if c.Backend.Retry.InitialDelay == 0 {
		c.Backend.Retry.InitialDelay = 200 * time.Millisecond
	}

	// Pricing defaults
	if c.Pricing.Timezone == "" {
		c.Pricing.Timezone = models.DefaultTimeZone
	}
	m := &c.Pricing.Multipliers
	if m.Premium == 0 {
		m.Premium = 1.3
	}
	if m.Weekend == 0 {
		m.Weekend = 1.2
	}
	if m.SameDay == 0 {
		m.SameDay = 1.5
	}
	if m.NextDay == 0 {
		m.NextDay = 1.2
	}
	if m.Holiday == 0 {
		m.Holiday = 1.3
	}
	if c.Pricing.GasRefillFee == 0 {
		c.Pricing.GasRefillFee = models.GasRefillFee
	}
	if c.Pricing.DrumRemovalFee == 0 {
		c.Pricing.DrumRemovalFee = models.DrumRemovalFee
	}

	if c.Lifecycle.CancelWindow == 0 {
		c.Lifecycle.CancelWindow = models.DefaultCancelWindow
	}

	// Booking defaults
	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if c.Booking.DraftTTL == 0 {
		c.Booking.DraftTTL = models.DefaultDraftTTL
	}
	if c.Booking.SubmitRateLimit == 0 {
		c.Booking.SubmitRateLimit = models.SubmitRateLimit
	}
	if c.Booking.SubmitRateWindow == 0 {
		c.Booking.SubmitRateWindow = models.SubmitRateWindow
	}

	if c.Catalog.Path == "" {
		c.Catalog.Path = "configs/services.yaml"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.ReadTimeout == 0 {
		c.API.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.API.HTTP.WriteTimeout == 0 {
		c.API.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
