package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/presenter"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/store/memstore"
	"github.com/Makepad-fr/tada/internal/store/redisstore"
	"github.com/Makepad-fr/tada/internal/store/sqlstore"
)

// openBlob builds the configured backend. The returned close func releases
// its connections.
func openBlob(ctx context.Context, cfg *config.Config) (store.Blob, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case config.BackendFile:
		s, err := jsonstore.New(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case config.BackendMemory:
		return memstore.New(), noop, nil
	case config.BackendRedis:
		s, err := redisstore.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BackendPostgres:
		s, err := sqlstore.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// newLogger builds the diagnostics logger. Diagnostics go to cfg.LogFile
// when set, otherwise to fallback.
func newLogger(cfg *config.Config, fallback io.Writer) (*log.Logger, func() error, error) {
	l := log.New()
	l.SetLevel(log.WarnLevel)
	if cfg.Debug {
		l.SetLevel(log.DebugLevel)
	}
	if cfg.LogFile == "" {
		l.SetOutput(fallback)
		return l, func() error { return nil }, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	l.SetFormatter(&log.JSONFormatter{})
	l.SetOutput(f)
	return l, f.Close, nil
}

// session is one store + presenter pair with a defined lifetime.
type session struct {
	store     *store.Store
	presenter *presenter.Presenter
	closers   []func() error
}

func openSession(ctx context.Context, opt Options, logOut io.Writer, render func(presenter.State)) (*session, error) {
	cfg := opt.Config
	logger, closeLog, err := newLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}
	blob, closeBlob := opt.Blob, func() error { return nil }
	if blob == nil {
		blob, closeBlob, err = openBlob(ctx, cfg)
		if err != nil {
			_ = closeLog()
			return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
		}
	}

	st := store.New(blob,
		store.WithKey(cfg.Key),
		store.WithLogger(logger),
		store.WithRetryDelay(cfg.RetryDelay),
		store.WithWriteTimeout(cfg.WriteTimeout),
	)
	return &session{
		store:     st,
		presenter: presenter.New(st, render),
		closers:   []func() error{closeBlob, closeLog},
	}, nil
}

// start loads the collection. It is separate from openSession so the TUI
// can load inside its own event loop.
func (s *session) start(ctx context.Context) error {
	return s.presenter.Start(ctx)
}

// closeTimeout bounds the final flush, which still runs after an interrupt.
const closeTimeout = 10 * time.Second

// close flushes pending writes and tears everything down.
func (s *session) close(ctx context.Context) error {
	s.presenter.Stop()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	err := s.store.Close(ctx)
	if err != nil {
		err = fmt.Errorf("save: %w", err)
	}
	for _, c := range s.closers {
		err = errors.Join(err, c())
	}
	return err
}
