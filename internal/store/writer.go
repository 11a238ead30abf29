package store

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Makepad-fr/tada/internal/model"
)

// writer owns every write to the blob backend. Mutations hand it full
// snapshots; only the newest pending snapshot is written, so the durable
// state is always the last submitted one.
type writer struct {
	blob       Blob
	key        string
	retryDelay time.Duration
	timeout    time.Duration
	logger     *log.Logger
	report     func(Event)

	mu         sync.Mutex
	pending    model.Collection
	hasPending bool
	waiters    []chan error
	lastErr    error
	stopped    bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	// ctx is the parent of every backend write; cancel aborts them when
	// close gives up waiting.
	ctx    context.Context
	cancel context.CancelFunc
}

func newWriter(blob Blob, o options, report func(Event)) *writer {
	w := &writer{
		blob:       blob,
		key:        o.key,
		retryDelay: o.retryDelay,
		timeout:    o.writeTimeout,
		logger:     o.logger,
		report:     report,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	go w.run()
	return w
}

// submit replaces the pending snapshot. It never blocks.
func (w *writer) submit(items model.Collection) {
	w.mu.Lock()
	w.pending = items
	w.hasPending = true
	w.mu.Unlock()
	w.signal()
}

func (w *writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// flush waits until everything submitted before the call has been written
// and returns the outcome of the latest write.
func (w *writer) flush(ctx context.Context) error {
	ch := make(chan error, 1)
	w.mu.Lock()
	if w.stopped {
		err := w.lastErr
		w.mu.Unlock()
		return err
	}
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()
	w.signal()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops the writer after one last cycle. If ctx ends first the
// in-flight write is cancelled and close returns without waiting for it.
func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()
	close(w.stop)

	defer w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.cycle()
		case <-w.stop:
			w.cycle()
			return
		}
	}
}

func (w *writer) cycle() {
	w.mu.Lock()
	items, ok := w.pending, w.hasPending
	w.pending, w.hasPending = nil, false
	waiters := w.waiters
	w.waiters = nil
	w.mu.Unlock()

	if ok {
		w.persist(items)
	}

	w.mu.Lock()
	err := w.lastErr
	w.mu.Unlock()
	for _, ch := range waiters {
		ch <- err
	}
}

func (w *writer) persist(items model.Collection) {
	entry := w.logger.WithFields(log.Fields{"key": w.key, "items": len(items)})

	data, err := Encode(items)
	if err == nil {
		err = w.write(data)
		if err != nil {
			entry.WithError(err).Warn("persist failed, retrying once")
			select {
			case <-time.After(w.retryDelay):
			case <-w.ctx.Done():
			}
			err = w.write(data)
		}
	}

	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()

	if err != nil {
		entry.WithError(err).Error("persist failed; in-memory collection is ahead of storage")
		w.report(Event{Kind: EventPersistFailed, Items: items.Clone(), Err: err})
		return
	}
	entry.Debug("collection persisted")
	w.report(Event{Kind: EventPersisted, Items: items.Clone()})
}

func (w *writer) write(data []byte) error {
	ctx := w.ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	return w.blob.Write(ctx, w.key, data)
}
