package store

import "github.com/Makepad-fr/tada/internal/model"

// EventKind tells subscribers what happened to the collection.
type EventKind int

const (
	// EventLoaded fires once the persisted collection has been read.
	EventLoaded EventKind = iota + 1
	// EventChanged fires after every in-memory mutation.
	EventChanged
	// EventPersisted fires when a snapshot reached the blob backend.
	EventPersisted
	// EventPersistFailed fires when a write failed after its retry.
	EventPersistFailed
)

func (k EventKind) String() string {
	switch k {
	case EventLoaded:
		return "loaded"
	case EventChanged:
		return "changed"
	case EventPersisted:
		return "persisted"
	case EventPersistFailed:
		return "persist_failed"
	}
	return "unknown"
}

// Event is delivered to subscribers. Items is a snapshot detached from the
// Store and shared between subscribers; treat it as read-only.
type Event struct {
	Kind  EventKind
	Items model.Collection
	Err   error
}
