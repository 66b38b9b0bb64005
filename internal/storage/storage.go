// Package storage defines the persistence contract actors use to
// checkpoint state across activations, plus a process-wide provider
// registry keyed by backend name. Concrete backends (bboltstore,
// sqlitestore, mysqlstore) implement Provider against the pack's embedded
// and relational storage drivers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrVersionConflict indicates a SaveWithVersion call's expectedVersion did
// not match the record's current version — another writer got there first.
var ErrVersionConflict = errors.New("storage: version conflict")

// ErrNotFound indicates LoadWithVersion found no record for the given key.
var ErrNotFound = errors.New("storage: not found")

// Record is one versioned, opaque state blob as persisted by a Provider.
type Record struct {
	Data    []byte
	Version int64
}

// Provider persists versioned actor state, keyed by (stateType, key). It is
// implemented by each storage backend.
type Provider interface {
	// SaveWithVersion writes data under key, succeeding only if the
	// record's current version equals expectedVersion (0 meaning "no
	// record yet"). On success it returns the new version. On a stale
	// expectedVersion it returns ErrVersionConflict.
	SaveWithVersion(ctx context.Context, stateType, key string, data []byte, expectedVersion int64) (int64, error)

	// LoadWithVersion reads the current record for key, or ErrNotFound.
	LoadWithVersion(ctx context.Context, stateType, key string) (Record, error)

	// Delete removes the record for key, if any.
	Delete(ctx context.Context, stateType, key string) error

	// Close releases the backend's underlying resources.
	Close() error
}

// Factory constructs a Provider instance, typically opening a connection or
// file handle.
type Factory func() (Provider, error)

// Registry is the process-wide name -> Provider index. Providers are
// memoized per backend name the first time they're requested, so every
// stateType shares the one Provider of its backend. This follows the teacher's lazy-singleton idiom used for dead-letter actor
// wiring in internal/baselib/actor/system.go.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]Provider
}

// NewRegistry constructs an empty provider Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Provider),
	}
}

// RegisterBackend associates name with a Factory used to lazily construct
// its Provider on first use.
func (r *Registry) RegisterBackend(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Provider returns the memoized Provider for name, constructing it via the
// registered Factory on first request.
func (r *Registry) Provider(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.instances[name]; ok {
		return p, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("storage: no backend registered for %q", name)
	}

	p, err := factory()
	if err != nil {
		return nil, fmt.Errorf("storage: opening backend %q: %w", name, err)
	}

	r.instances[name] = p
	return p, nil
}

// CloseAll closes every provider instantiated through this registry.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, p := range r.instances {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
