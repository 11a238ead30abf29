// Package store owns the canonical todo collection and keeps it durable.
//
// A Store is created explicitly at process start and torn down with Close.
// Every mutation updates memory first, then hands a full snapshot to a single
// background writer; subscribers are told about both.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Makepad-fr/tada/internal/model"
)

// DefaultKey is the blob key the collection lives under.
const DefaultKey = "todos"

var (
	ErrNotLoaded = errors.New("store: collection not loaded")
	ErrClosed    = errors.New("store: closed")
)

// Blob is the key-value backend the collection is persisted to.
// Read reports ok=false when the key is absent.
type Blob interface {
	Read(ctx context.Context, key string) (data []byte, ok bool, err error)
	Write(ctx context.Context, key string, data []byte) error
}

type options struct {
	key          string
	logger       *log.Logger
	newID        func() string
	now          func() time.Time
	retryDelay   time.Duration
	writeTimeout time.Duration
}

// Option customizes a Store.
type Option func(*options)

func WithKey(key string) Option { return func(o *options) { o.key = key } }

func WithLogger(l *log.Logger) Option { return func(o *options) { o.logger = l } }

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(fn func() string) Option { return func(o *options) { o.newID = fn } }

// WithClock replaces time.Now for CreatedAt.
func WithClock(fn func() time.Time) Option { return func(o *options) { o.now = fn } }

// WithRetryDelay sets the pause before the single retry of a failed write.
func WithRetryDelay(d time.Duration) Option { return func(o *options) { o.retryDelay = d } }

// WithWriteTimeout bounds each backend write. Zero disables the bound.
func WithWriteTimeout(d time.Duration) Option { return func(o *options) { o.writeTimeout = d } }

// Store is the single source of truth for the collection.
type Store struct {
	blob Blob
	opts options
	w    *writer

	mu      sync.Mutex
	items   model.Collection
	loaded  bool
	closed  bool
	subs    map[int]func(Event)
	nextSub int
	seq     uint64 // next event number, assigned under mu

	// Events are delivered strictly in seq order, with no store lock held
	// while subscribers run.
	deliverMu sync.Mutex
	turn      *sync.Cond
	delivered uint64
}

// New creates a Store over blob and starts its writer.
func New(blob Blob, opts ...Option) *Store {
	o := options{
		key:          DefaultKey,
		logger:       log.StandardLogger(),
		newID:        uuid.NewString,
		now:          time.Now,
		retryDelay:   200 * time.Millisecond,
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store{
		blob: blob,
		opts: o,
		subs: make(map[int]func(Event)),
	}
	s.turn = sync.NewCond(&s.deliverMu)
	s.w = newWriter(blob, o, s.emit)
	return s
}

// Load reads the persisted collection and replaces the in-memory one.
// An absent or malformed blob yields an empty collection; only backend
// failures are returned. Calling Load again first waits for queued writes,
// so the re-read sees everything already handed to the writer.
func (s *Store) Load(ctx context.Context) (model.Collection, error) {
	s.mu.Lock()
	closed, reload := s.closed, s.loaded
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if reload {
		// A failed write is reported through EventPersistFailed; only
		// cancellation stops the reload.
		if err := s.w.flush(ctx); err != nil && ctx.Err() != nil {
			return nil, err
		}
	}

	data, ok, err := s.blob.Read(ctx, s.opts.key)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", s.opts.key, err)
	}
	items := model.Collection{}
	if ok {
		decoded, err := Decode(data)
		if err != nil {
			s.opts.logger.WithError(err).WithField("key", s.opts.key).Warn("ignoring unreadable collection")
		} else {
			items = decoded
		}
	}

	s.mu.Lock()
	s.items = items
	s.loaded = true
	out := items.Clone()
	s.publishAndUnlock(Event{Kind: EventLoaded, Items: items.Clone()})
	s.opts.logger.WithField("items", len(out)).Debug("collection loaded")
	return out, nil
}

// Add appends a new pending item and schedules a write.
func (s *Store) Add(title string) (model.Collection, error) {
	s.mu.Lock()
	if err := s.usableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.items = append(s.items, model.Item{
		ID:        s.opts.newID(),
		Title:     title,
		CreatedAt: s.opts.now().UTC().Round(0),
	})
	return s.commitAndUnlock(), nil
}

// SetDone updates the done flag of the item with the given ID. An unknown
// ID leaves the collection untouched and is not an error.
func (s *Store) SetDone(id string, done bool) (model.Collection, error) {
	s.mu.Lock()
	if err := s.usableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if i := s.items.IndexOf(id); i >= 0 {
		updated := s.items.Clone()
		updated[i].Done = done
		s.items = updated
	}
	return s.commitAndUnlock(), nil
}

// Items returns a copy of the current collection.
func (s *Store) Items() model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

// Loaded reports whether Load has resolved at least once.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Subscribe registers fn for every future event and returns a function
// that removes it. fn runs with no store lock held, so it may read the
// store or unsubscribe. It must not call Add, SetDone, Flush or Close
// synchronously: each of those waits for fn to return.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Flush waits for every write scheduled before the call and returns the
// result of the latest one.
func (s *Store) Flush(ctx context.Context) error {
	return s.w.flush(ctx)
}

// Close flushes pending writes and stops the writer. Mutations after Close
// return ErrClosed. If ctx ends first, in-flight writes are cancelled and
// ctx.Err() is returned.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.w.flush(ctx)
	if cerr := s.w.close(ctx); err == nil {
		err = cerr
	}
	return err
}

func (s *Store) usableLocked() error {
	if s.closed {
		return ErrClosed
	}
	if !s.loaded {
		return ErrNotLoaded
	}
	return nil
}

// commitAndUnlock schedules a write of the current collection, notifies
// subscribers and releases s.mu. Must be called with s.mu held.
func (s *Store) commitAndUnlock() model.Collection {
	s.w.submit(s.items.Clone())
	out := s.items.Clone()
	s.publishAndUnlock(Event{Kind: EventChanged, Items: s.items.Clone()})
	return out
}

// publishAndUnlock numbers ev, releases s.mu and delivers ev once every
// earlier event has been delivered. Must be called with s.mu held.
func (s *Store) publishAndUnlock(ev Event) {
	n := s.seq
	s.seq++
	s.mu.Unlock()

	s.deliverMu.Lock()
	for s.delivered != n {
		s.turn.Wait()
	}
	s.deliverMu.Unlock()
	defer func() {
		s.deliverMu.Lock()
		s.delivered++
		s.turn.Broadcast()
		s.deliverMu.Unlock()
	}()

	for _, fn := range s.subscribers() {
		fn(ev)
	}
}

// subscribers returns the current subscribers in registration order.
func (s *Store) subscribers() []func(Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := make([]func(Event), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func (s *Store) emit(ev Event) {
	s.mu.Lock()
	s.publishAndUnlock(ev)
}
