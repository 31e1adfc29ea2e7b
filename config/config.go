package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"pricetrack"
)

// Config is the pricetrack configuration file.
type Config struct {
	Database        string                 `yaml:"database"`
	Locale          string                 `yaml:"locale"`
	LogLevel        string                 `yaml:"log_level"`
	PriceAge        pricetrack.AgeSettings `yaml:"price_age"`
	MetricsTextfile string                 `yaml:"metrics_textfile"`
}

func DefaultConfig() Config {
	return Config{
		Database: "pricetrack.db",
		Locale:   "en-GB",
		LogLevel: "info",
		PriceAge: pricetrack.DefaultAgeSettings(),
	}
}

// Load builds the configuration in layers: defaults, the YAML file at path
// (skipped when missing), a .env file in the working directory, and finally
// PRICETRACK_* environment variables.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PRICETRACK_DATABASE"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("PRICETRACK_LOCALE"); v != "" {
		c.Locale = v
	}
	if v := os.Getenv("PRICETRACK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PRICETRACK_METRICS_TEXTFILE"); v != "" {
		c.MetricsTextfile = v
	}
	for name, dst := range map[string]*int{
		"PRICETRACK_STALE_DAYS":               &c.PriceAge.StaleDays,
		"PRICETRACK_ANCIENT_DAYS":             &c.PriceAge.AncientDays,
		"PRICETRACK_ANNUAL_INFLATION_PERCENT": &c.PriceAge.AnnualInflationPercent,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}
	if _, err := c.Tag(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return c.PriceAge.Validate()
}

// Tag is the parsed locale, used for collation and number formatting.
func (c Config) Tag() (language.Tag, error) {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", c.Locale, err)
	}
	return tag, nil
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// WriteDefault writes the default configuration to path. An existing file is
// left alone and reported as an error.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
