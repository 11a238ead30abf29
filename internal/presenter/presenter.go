// Package presenter derives the display order of the collection and relays
// user intents back to the store.
package presenter

import (
	"context"
	"sort"
	"sync"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
)

// Store is the part of *store.Store the presenter drives.
type Store interface {
	Load(ctx context.Context) (model.Collection, error)
	Add(title string) (model.Collection, error)
	SetDone(id string, done bool) (model.Collection, error)
	Subscribe(fn func(store.Event)) func()
}

// State is what a view layer needs to draw one frame.
type State struct {
	Items   []model.Item // display order
	Input   string
	Loading bool
	Done    int
	Pending int
	Err     error // last load or persistence error, nil once storage caught up
}

// View returns the collection sorted ascending by CreatedAt. Items with
// equal timestamps keep their input order. The input is not modified.
func View(items model.Collection) []model.Item {
	out := make([]model.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type Presenter struct {
	store  Store
	render func(State)

	mu    sync.Mutex
	state State
	unsub func()
}

// New wires a presenter to s. render is called after every state change,
// never with the presenter's lock held; it may be nil.
func New(s Store, render func(State)) *Presenter {
	if render == nil {
		render = func(State) {}
	}
	return &Presenter{
		store:  s,
		render: render,
		state:  State{Loading: true},
	}
}

// Start subscribes to store notifications and requests the initial load.
// The view stays in the loading state until the load resolves.
func (p *Presenter) Start(ctx context.Context) error {
	// Lock order is p.mu then store locks; the store delivers events with
	// none held.
	p.mu.Lock()
	if p.unsub == nil {
		p.unsub = p.store.Subscribe(p.handle)
	}
	p.mu.Unlock()

	if _, err := p.store.Load(ctx); err != nil {
		p.update(func(s *State) { s.Err = err })
		return err
	}
	return nil
}

// Stop detaches from the store.
func (p *Presenter) Stop() {
	p.mu.Lock()
	unsub := p.unsub
	p.unsub = nil
	p.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// OnAddRequested forwards title to the store, then clears the pending input.
func (p *Presenter) OnAddRequested(title string) error {
	if _, err := p.store.Add(title); err != nil {
		return err
	}
	p.update(func(s *State) { s.Input = "" })
	return nil
}

// OnToggleRequested forwards a done/pending change to the store.
func (p *Presenter) OnToggleRequested(id string, done bool) error {
	_, err := p.store.SetDone(id, done)
	return err
}

// SetInput records the text the user is typing.
func (p *Presenter) SetInput(text string) {
	p.update(func(s *State) { s.Input = text })
}

// State returns a copy of the current view state.
func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// ItemAt returns the n-th item (1-based) in display order.
func (p *Presenter) ItemAt(n int) (model.Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 1 || n > len(p.state.Items) {
		return model.Item{}, false
	}
	return p.state.Items[n-1], true
}

func (p *Presenter) handle(ev store.Event) {
	p.update(func(s *State) {
		switch ev.Kind {
		case store.EventLoaded, store.EventChanged:
			s.Items = View(ev.Items)
			s.Done, s.Pending = ev.Items.Stats()
			s.Loading = false
			if ev.Kind == store.EventLoaded {
				s.Err = nil
			}
		case store.EventPersisted:
			s.Err = nil
		case store.EventPersistFailed:
			s.Err = ev.Err
		}
	})
}

func (p *Presenter) update(fn func(*State)) {
	p.mu.Lock()
	fn(&p.state)
	snap := p.snapshotLocked()
	p.mu.Unlock()
	p.render(snap)
}

func (p *Presenter) snapshotLocked() State {
	st := p.state
	st.Items = append([]model.Item(nil), p.state.Items...)
	return st
}
