package model

import "time"

// Item is the domain model for a todo entry.
// ID is the only lookup key; CreatedAt never changes after creation.
type Item struct {
	ID        string    `json:"identifier"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"createdAt"`
}

// Collection is the ordered set of items, unique by ID.
// Insertion order is kept; display order is derived elsewhere.
type Collection []Item

// Clone returns a copy that shares no backing array with c.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// IndexOf returns the position of the item with the given ID, or -1.
func (c Collection) IndexOf(id string) int {
	for i, it := range c {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Stats counts done and pending items.
func (c Collection) Stats() (done, pending int) {
	for _, it := range c {
		if it.Done {
			done++
		} else {
			pending++
		}
	}
	return
}
