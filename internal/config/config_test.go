package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envNames = []string{
	"CONFIG", "BACKEND", "DATA_DIR", "KEY", "REDIS_URL", "POSTGRES_DSN",
	"THEME", "LOG_FILE", "GROUP", "DEBUG", "RETRY_DELAY", "WRITE_TIMEOUT",
}

// isolate points HOME and the working directory at empty temp dirs and
// clears TADA_* variables.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, n := range envNames {
		// Setenv registers the restore; unset so .env files can fill it in.
		t.Setenv(envPrefix+n, "")
		os.Unsetenv(envPrefix + n)
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func load(t *testing.T, args ...string) (*Config, *flag.FlagSet) {
	t.Helper()
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))
	cfg, err := Load(fs, args)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return cfg, fs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDefaults(t *testing.T) {
	isolate(t)
	cfg, fs := load(t, "ls")

	if cfg.Backend != BackendFile || cfg.DataDir != "." || cfg.Key != "todos" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RetryDelay != DefaultRetryDelay || cfg.WriteTimeout != DefaultWriteTimeout {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if got := fs.Args(); len(got) != 1 || got[0] != "ls" {
		t.Fatalf("remaining args = %v", got)
	}
}

func TestLayering(t *testing.T) {
	dir := isolate(t)
	home := os.Getenv("HOME")

	writeFile(t, filepath.Join(home, ".tada", "config.toml"), `
backend = "memory"
theme = "neon"
key = "user"
`)
	writeFile(t, filepath.Join(dir, ".tada.toml"), `
key = "project"
retry_delay = "50ms"
`)
	writeFile(t, filepath.Join(dir, ".env"), "TADA_DATA_DIR=/from/dotenv\n")
	t.Setenv("TADA_THEME", "mono")

	cfg, _ := load(t, "-key", "flag", "add", "x")

	if cfg.Backend != BackendMemory {
		t.Errorf("backend = %q, want memory from user file", cfg.Backend)
	}
	if cfg.RetryDelay != 50*time.Millisecond {
		t.Errorf("retry_delay = %s, want 50ms from project file", cfg.RetryDelay)
	}
	if cfg.Theme != "mono" {
		t.Errorf("theme = %q, want mono from env", cfg.Theme)
	}
	if cfg.Key != "flag" {
		t.Errorf("key = %q, want flag", cfg.Key)
	}
	if cfg.DataDir != "/from/dotenv" {
		t.Errorf("data_dir = %q, want value from .env", cfg.DataDir)
	}
}

func TestExplicitConfigFlag(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".tada.toml"), `key = "ignored"`)
	custom := filepath.Join(dir, "custom.toml")
	writeFile(t, custom, `key = "custom"`)

	cfg, _ := load(t, "-config", custom)
	if cfg.Key != "custom" || cfg.ConfigFile != custom {
		t.Fatalf("explicit config not used: %+v", cfg)
	}
}

func TestUnsetFlagsDoNotOverride(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".tada.toml"), `group = true`)

	cfg, _ := load(t)
	if !cfg.Group {
		t.Fatalf("default flag value overrode file setting")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"memory", func(c *Config) { c.Backend = BackendMemory }, false},
		{"unknown backend", func(c *Config) { c.Backend = "s3" }, true},
		{"redis without url", func(c *Config) { c.Backend = BackendRedis }, true},
		{"redis with url", func(c *Config) { c.Backend = BackendRedis; c.RedisURL = "redis://localhost:6379" }, false},
		{"postgres without dsn", func(c *Config) { c.Backend = BackendPostgres }, true},
		{"empty key", func(c *Config) { c.Key = " " }, true},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, true},
		{"negative retry", func(c *Config) { c.RetryDelay = -time.Second }, true},
		{"negative timeout", func(c *Config) { c.WriteTimeout = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("TADA_DEBUG", "sometimes")

	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	if _, err := Load(fs, nil); err == nil {
		t.Fatalf("expected error for invalid TADA_DEBUG")
	}
}

func TestMalformedConfigFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".tada.toml"), `backend = `)

	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	if _, err := Load(fs, nil); err == nil {
		t.Fatalf("expected error for malformed TOML")
	}
}
