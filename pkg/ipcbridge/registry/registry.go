package registry

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Mode describes how long an entry stays registered.
type Mode int

const (
	// ModeOnce entries are removed by their own handler on first delivery.
	ModeOnce Mode = iota

	// ModeStream entries stay registered until removed explicitly.
	ModeStream
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeOnce:
		return "once"
	case ModeStream:
		return "stream"
	default:
		return "unknown"
	}
}

// HandlerFunc receives one inbound response: a delivery error or data.
type HandlerFunc func(err error, data any)

// Entry is a pending handler waiting for responses.
type Entry struct {
	// ID is the correlation id the handler answers to.
	ID string

	// Event is the logical channel of the request.
	Event string

	// Mode tells whether the handler removes itself after one delivery.
	Mode Mode

	// Handler is invoked for every matching inbound response.
	Handler HandlerFunc

	// RegisteredAt is set by Register when zero.
	RegisteredAt time.Time

	// Context is the request context; delivery telemetry is recorded
	// against it.
	Context context.Context

	seq uint64
}

// Sentinel errors for registration.
var (
	// ErrEmptyID indicates an entry without a correlation id.
	ErrEmptyID = errors.New("correlation id is required")

	// ErrNilHandler indicates an entry without a handler.
	ErrNilHandler = errors.New("handler is required")
)

// Registry maps correlation ids to pending handlers.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	byEvent map[string][]string // event -> ids in insertion order
	nextSeq uint64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		byEvent: make(map[string][]string),
	}
}

// Register inserts an entry. An existing entry with the same id is replaced
// without error (last write wins).
func (r *Registry) Register(entry Entry) error {
	if entry.ID == "" {
		return ErrEmptyID
	}
	if entry.Handler == nil {
		return ErrNilHandler
	}
	if entry.RegisteredAt.IsZero() {
		entry.RegisteredAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[entry.ID]; ok {
		entry.seq = existing.seq
		if existing.Event != entry.Event {
			r.unindexLocked(existing.Event, existing.ID)
			r.byEvent[entry.Event] = append(r.byEvent[entry.Event], entry.ID)
		}
		r.entries[entry.ID] = &entry
		return nil
	}

	r.nextSeq++
	entry.seq = r.nextSeq
	r.entries[entry.ID] = &entry
	r.byEvent[entry.Event] = append(r.byEvent[entry.Event], entry.ID)
	return nil
}

// Lookup returns the entry registered under id.
func (r *Registry) Lookup(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// FindFirstByEvent returns the oldest entry registered for event.
func (r *Registry) FindFirstByEvent(event string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byEvent[event]
	if len(ids) == 0 {
		return Entry{}, false
	}
	return *r.entries[ids[0]], true
}

// Claim returns the entry registered under id for delivery. A ModeOnce
// entry is removed in the same critical section, so concurrent claims for
// one id hand it to exactly one caller.
func (r *Registry) Claim(id string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	r.claimLocked(entry)
	return *entry, true
}

// ClaimFirstByEvent is FindFirstByEvent followed by Claim under one lock.
func (r *Registry) ClaimFirstByEvent(event string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byEvent[event]
	if len(ids) == 0 {
		return Entry{}, false
	}
	entry := r.entries[ids[0]]
	r.claimLocked(entry)
	return *entry, true
}

func (r *Registry) claimLocked(entry *Entry) {
	if entry.Mode != ModeOnce {
		return
	}
	delete(r.entries, entry.ID)
	r.unindexLocked(entry.Event, entry.ID)
}

// RemoveByID deletes the entry for id and reports whether it existed.
func (r *Registry) RemoveByID(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return false
	}
	delete(r.entries, id)
	r.unindexLocked(entry.Event, id)
	return true
}

// RemoveAllByEvent deletes every entry registered for event and returns how
// many were removed.
func (r *Registry) RemoveAllByEvent(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byEvent[event]
	for _, id := range ids {
		delete(r.entries, id)
	}
	delete(r.byEvent, event)
	return len(ids)
}

// Snapshot returns a copy of all entries, oldest first.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Clear removes every entry and returns what was removed, oldest first.
func (r *Registry) Clear() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.snapshotLocked()
	r.entries = make(map[string]*Entry)
	r.byEvent = make(map[string][]string)
	return removed
}

// Len returns the number of pending entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) snapshotLocked() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].seq < out[j].seq
	})
	return out
}

func (r *Registry) unindexLocked(event, id string) {
	ids := r.byEvent[event]
	for i, existing := range ids {
		if existing == id {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(r.byEvent, event)
		return
	}
	r.byEvent[event] = ids
}
