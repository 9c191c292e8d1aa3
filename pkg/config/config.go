// Package config loads the command configuration from an optional YAML
// file, dotenv files and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formsync/internal/logging"
)

// MaxPageSize bounds the configured page size.
const MaxPageSize = 100

// DefaultEnvFiles are loaded when Load is given no dotenv file.
var DefaultEnvFiles = []string{".env", ".env.local"}

// ErrMissingAPIURL is returned by Validate when no base URL is configured.
var ErrMissingAPIURL = errors.New("config: FORMSYNC_API_URL is required")

// Config is the immutable runtime configuration.
type Config struct {
	APIURL           string        `env:"FORMSYNC_API_URL" yaml:"api_url"`
	Timeout          time.Duration `env:"FORMSYNC_TIMEOUT" yaml:"timeout"`
	PageSize         int           `env:"FORMSYNC_PAGE_SIZE" yaml:"page_size"`
	OptionsTTL       time.Duration `env:"FORMSYNC_OPTIONS_TTL" yaml:"options_ttl"`
	LogLevel         string        `env:"FORMSYNC_LOG_LEVEL" yaml:"log_level"`
	ClampAfterDelete bool          `env:"FORMSYNC_CLAMP_AFTER_DELETE" yaml:"clamp_after_delete"`
}

// Default returns the built-in defaults. APIURL has no default.
func Default() Config {
	return Config{
		Timeout:  20 * time.Second,
		PageSize: 5,
		LogLevel: "warn",
	}
}

// Load resolves and validates a Config.
func Load(files ...string) (Config, error) {
	cfg, err := Resolve(files...)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve builds a Config without validating it. Files ending in .yaml or
// .yml are decoded over the defaults and must exist. Any other file is
// treated as a dotenv file and skipped when missing; DefaultEnvFiles are used
// when none is given. The environment is applied last.
func Resolve(files ...string) (Config, error) {
	cfg := Default()

	var envFiles []string
	for _, file := range files {
		switch strings.ToLower(filepath.Ext(file)) {
		case ".yaml", ".yml":
			if err := loadYAML(file, &cfg); err != nil {
				return Config{}, err
			}
		default:
			envFiles = append(envFiles, file)
		}
	}
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return Config{}, fmt.Errorf("config: load dotenv: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return cfg, nil
}

// LoadEnv loads the dotenv files that exist and reports how many did.
// Variables already present in the environment are not overridden.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

// Validate checks the URL and numeric bounds.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return ErrMissingAPIURL
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("config: invalid api url %q: %w", c.APIURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api url %q must be an absolute http(s) url", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return fmt.Errorf("config: page size must be between 1 and %d, got %d", MaxPageSize, c.PageSize)
	}
	if c.OptionsTTL < 0 {
		return fmt.Errorf("config: options ttl must not be negative, got %s", c.OptionsTTL)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
