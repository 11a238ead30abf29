package config

import (
	"flag"
	"time"
)

// flagValues holds parsed flag values until they are applied on top of the
// file and environment layers.
type flagValues struct {
	configFile   *string
	backend      *string
	dataDir      *string
	key          *string
	redisURL     *string
	postgresDSN  *string
	retryDelay   *time.Duration
	writeTimeout *time.Duration
	theme        *string
	group        *bool
	debug        *bool
	logFile      *string
}

func registerFlags(fs *flag.FlagSet) *flagValues {
	return &flagValues{
		configFile:   fs.String("config", "", "path to a TOML config file (default .tada.toml)"),
		backend:      fs.String("backend", DefaultBackend, "storage backend: file, memory, redis, postgres"),
		dataDir:      fs.String("data-dir", DefaultDataDir, "directory for the file backend"),
		key:          fs.String("key", DefaultKey, "key the list is stored under"),
		redisURL:     fs.String("redis-url", "", "redis URL for the redis backend"),
		postgresDSN:  fs.String("postgres-dsn", "", "postgres DSN for the postgres backend"),
		retryDelay:   fs.Duration("retry-delay", DefaultRetryDelay, "pause before retrying a failed write"),
		writeTimeout: fs.Duration("write-timeout", DefaultWriteTimeout, "timeout for a single storage write"),
		theme:        fs.String("theme", DefaultTheme, "output theme: classic, neon, mono"),
		group:        fs.Bool("group", false, "group output by pending/done"),
		debug:        fs.Bool("debug", false, "enable debug logging"),
		logFile:      fs.String("log-file", "", "write diagnostics to this file instead of stderr"),
	}
}

// apply copies only the flags that were set explicitly.
func (f *flagValues) apply(fs *flag.FlagSet, cfg *Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "backend":
			cfg.Backend = *f.backend
		case "data-dir":
			cfg.DataDir = *f.dataDir
		case "key":
			cfg.Key = *f.key
		case "redis-url":
			cfg.RedisURL = *f.redisURL
		case "postgres-dsn":
			cfg.PostgresDSN = *f.postgresDSN
		case "retry-delay":
			cfg.RetryDelay = *f.retryDelay
		case "write-timeout":
			cfg.WriteTimeout = *f.writeTimeout
		case "theme":
			cfg.Theme = *f.theme
		case "group":
			cfg.Group = *f.group
		case "debug":
			cfg.Debug = *f.debug
		case "log-file":
			cfg.LogFile = *f.logFile
		}
	})
}
