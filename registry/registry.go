package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/types"
	"github.com/ethereum/go-ethereum/log"
)

// ErrEmptyName is returned when an entry is requested without a name
var ErrEmptyName = errors.New("entry name cannot be empty")

// Registry holds the report entries created during a run.
// Entries are kept in insertion order and names are unique.
type Registry struct {
	config  Config
	mu      sync.RWMutex
	entries []*types.Entry
	byName  map[string]*types.Entry
}

// Config contains registry configuration
type Config struct {
	Log   log.Logger
	Clock func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry(cfg Config) *Registry {
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Registry{
		config: cfg,
		byName: make(map[string]*types.Entry),
	}
}

// FetchOrCreate returns the entry with the given name, creating and
// appending it when it does not exist yet. Lookup and insert happen under
// one lock so concurrent callers racing on a new name share one entry.
func (r *Registry) FetchOrCreate(name string) (*types.Entry, bool, error) {
	if name == "" {
		return nil, false, ErrEmptyName
	}

	r.mu.RLock()
	entry, ok := r.byName[name]
	r.mu.RUnlock()
	if ok {
		return entry, false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check, another goroutine may have created it between the locks
	if entry, ok := r.byName[name]; ok {
		return entry, false, nil
	}

	entry = types.NewEntry(name, r.config.Clock())
	r.entries = append(r.entries, entry)
	r.byName[name] = entry
	r.config.Log.Debug("Created report entry", "name", name, "entries", len(r.entries))
	return entry, true, nil
}

// Get returns the entry with the given name if it exists
func (r *Registry) Get(name string) (*types.Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byName[name]
	return entry, ok
}

// Entries returns the entries in creation order
func (r *Registry) Entries() []*types.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Snapshots returns point-in-time copies of every entry in creation order
func (r *Registry) Snapshots() []types.EntrySnapshot {
	entries := r.Entries()
	out := make([]types.EntrySnapshot, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Snapshot())
	}
	return out
}

// Len returns the number of entries
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
