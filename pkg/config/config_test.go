package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var envKeys = []string{
	"FORMSYNC_API_URL",
	"FORMSYNC_TIMEOUT",
	"FORMSYNC_PAGE_SIZE",
	"FORMSYNC_OPTIONS_TTL",
	"FORMSYNC_LOG_LEVEL",
	"FORMSYNC_CLAMP_AFTER_DELETE",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		if prev, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, prev) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_EnvironmentOverDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("FORMSYNC_API_URL", "http://localhost:8080/api/")
	os.Setenv("FORMSYNC_PAGE_SIZE", "10")
	os.Setenv("FORMSYNC_CLAMP_AFTER_DELETE", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := Config{
		APIURL:           "http://localhost:8080/api",
		Timeout:          20 * time.Second,
		PageSize:         10,
		LogLevel:         "warn",
		ClampAfterDelete: true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_PrecedenceYAMLDotenvEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "formsync.yaml", `
api_url: http://yaml.example
timeout: 5s
page_size: 7
options_ttl: 1m
log_level: info
`)
	envPath := writeFile(t, dir, "test.env", "FORMSYNC_API_URL=http://dotenv.example\nFORMSYNC_PAGE_SIZE=8\n")
	os.Setenv("FORMSYNC_PAGE_SIZE", "9")

	cfg, err := Load(yamlPath, envPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := Config{
		APIURL:     "http://dotenv.example",
		Timeout:    5 * time.Second,
		PageSize:   9,
		OptionsTTL: time.Minute,
		LogLevel:   "info",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingYAMLFails(t *testing.T) {
	clearEnv(t)
	os.Setenv("FORMSYNC_API_URL", "http://localhost")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("expected error for missing yaml file")
	}
}

func TestLoad_RequiresAPIURL(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	if !errors.Is(err, ErrMissingAPIURL) {
		t.Fatalf("expected ErrMissingAPIURL, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Default()
	base.APIURL = "https://api.example.com"
	if err := base.Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}

	cases := map[string]func(*Config){
		"relative url":  func(c *Config) { c.APIURL = "/api" },
		"bad scheme":    func(c *Config) { c.APIURL = "ftp://host" },
		"zero timeout":  func(c *Config) { c.Timeout = 0 },
		"page size 0":   func(c *Config) { c.PageSize = 0 },
		"page size max": func(c *Config) { c.PageSize = MaxPageSize + 1 },
		"negative ttl":  func(c *Config) { c.OptionsTTL = -time.Second },
		"bad log level": func(c *Config) { c.LogLevel = "chatty" },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
