// Package config loads tada settings from defaults, TOML files, the
// environment and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Backend names.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Defaults.
const (
	DefaultBackend      = BackendFile
	DefaultDataDir      = "."
	DefaultKey          = "todos"
	DefaultTheme        = "classic"
	DefaultRetryDelay   = 200 * time.Millisecond
	DefaultWriteTimeout = 5 * time.Second

	userConfigDir   = ".tada"
	userConfigName  = "config.toml"
	projectFileName = ".tada.toml"
	envPrefix       = "TADA_"
)

// Config holds every tunable.
type Config struct {
	Backend      string        `toml:"backend"`
	DataDir      string        `toml:"data_dir"`
	Key          string        `toml:"key"`
	RedisURL     string        `toml:"redis_url"`
	PostgresDSN  string        `toml:"postgres_dsn"`
	RetryDelay   time.Duration `toml:"retry_delay"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	Theme        string        `toml:"theme"`
	Group        bool          `toml:"group"`
	Debug        bool          `toml:"debug"`
	LogFile      string        `toml:"log_file"`

	// ConfigFile is the explicit file passed with -config, if any.
	ConfigFile string `toml:"-"`
}

// Default returns a Config with built-in defaults.
func Default() *Config {
	return &Config{
		Backend:      DefaultBackend,
		DataDir:      DefaultDataDir,
		Key:          DefaultKey,
		RetryDelay:   DefaultRetryDelay,
		WriteTimeout: DefaultWriteTimeout,
		Theme:        DefaultTheme,
	}
}

// Load builds the configuration in priority order:
// 1. Defaults
// 2. User config file (~/.tada/config.toml)
// 3. Project config file (.tada.toml in the working directory) or -config
// 4. .env file and TADA_* environment variables
// 5. CLI flags
//
// Flags are registered on fs and parsed from args; fs.Args() holds the
// remaining arguments afterwards.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	flags := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	cfg := Default()

	if p := userConfigFile(); p != "" {
		if err := loadFile(cfg, p); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", p, err)
		}
	}

	projectFile := *flags.configFile
	if projectFile == "" {
		projectFile = os.Getenv(envPrefix + "CONFIG")
	}
	if projectFile != "" {
		if err := loadFile(cfg, projectFile); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", projectFile, err)
		}
		cfg.ConfigFile = projectFile
	} else if fileExists(projectFileName) {
		if err := loadFile(cfg, projectFileName); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projectFileName, err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	flags.apply(fs, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.DataDir == "" {
			return errors.New("data_dir must not be empty for the file backend")
		}
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("redis backend requires redis_url")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("postgres backend requires postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown backend %q (want file, memory, redis or postgres)", c.Backend)
	}
	if strings.TrimSpace(c.Key) == "" {
		return errors.New("key must not be empty")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative, got %s", c.RetryDelay)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("write_timeout must not be negative, got %s", c.WriteTimeout)
	}
	return nil
}

func loadFile(cfg *Config, path string) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

func userConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, userConfigDir, userConfigName)
	if !fileExists(p) {
		return ""
	}
	return p
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

// loadDotEnv copies variables from path into the environment without
// overriding ones already set. A missing file is fine.
func loadDotEnv(path string) error {
	if !fileExists(path) {
		return nil
	}
	return godotenv.Load(path)
}

func loadFromEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v := os.Getenv(envPrefix + name)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
		}
		*dst = b
		return nil
	}
	duration := func(name string, dst *time.Duration) error {
		v := os.Getenv(envPrefix + name)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("BACKEND", &cfg.Backend)
	str("DATA_DIR", &cfg.DataDir)
	str("KEY", &cfg.Key)
	str("REDIS_URL", &cfg.RedisURL)
	str("POSTGRES_DSN", &cfg.PostgresDSN)
	str("THEME", &cfg.Theme)
	str("LOG_FILE", &cfg.LogFile)
	if err := boolean("GROUP", &cfg.Group); err != nil {
		return err
	}
	if err := boolean("DEBUG", &cfg.Debug); err != nil {
		return err
	}
	if err := duration("RETRY_DELAY", &cfg.RetryDelay); err != nil {
		return err
	}
	return duration("WRITE_TIMEOUT", &cfg.WriteTimeout)
}
