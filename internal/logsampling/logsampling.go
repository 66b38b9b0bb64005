// Package logsampling implements per-actor-type log sampling so that
// high-volume actor types don't flood the log sink at trace/debug level.
package logsampling

import (
	"sync"
	"sync/atomic"
)

// Configuration governs how often a given log call site should actually
// emit, expressed as "log every Nth occurrence".
type Configuration struct {
	// Every is the sampling rate: 1 logs every occurrence (no sampling),
	// N logs one in every N. Values <= 1 are treated as 1.
	Every int
}

// DefaultConfiguration logs every occurrence (no sampling).
func DefaultConfiguration() Configuration {
	return Configuration{Every: 1}
}

func (c Configuration) every() int {
	if c.Every <= 1 {
		return 1
	}
	return c.Every
}

// ShouldLog reports whether the occurrence represented by this call should
// be emitted, given c's configured rate. It is safe for concurrent use: the
// underlying counter advances atomically, and every rate-th call (including
// the first) returns true.
func (c *Configuration) ShouldLog(ctr *uint64) bool {
	every := uint64(c.every())
	n := atomic.AddUint64(ctr, 1)
	return (n-1)%every == 0
}

// ActorTypeOptions holds the sampling configuration for one actor type,
// keyed by log level name (e.g. "debug", "trace").
type ActorTypeOptions struct {
	mu       sync.RWMutex
	byLevel  map[string]Configuration
	fallback Configuration
}

// NewActorTypeOptions constructs options defaulting every level to def.
func NewActorTypeOptions(def Configuration) *ActorTypeOptions {
	return &ActorTypeOptions{
		byLevel:  make(map[string]Configuration),
		fallback: def,
	}
}

// SetLevel overrides the sampling configuration for a specific log level.
func (o *ActorTypeOptions) SetLevel(level string, cfg Configuration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.byLevel[level] = cfg
}

// GetSamplingConfiguration returns the configuration for level, falling
// back to the actor type's default if no level-specific override exists.
func (o *ActorTypeOptions) GetSamplingConfiguration(level string) Configuration {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if cfg, ok := o.byLevel[level]; ok {
		return cfg
	}
	return o.fallback
}

// Registry maps actor type name -> its ActorTypeOptions, constructing
// default (unsampled) options on first access so callers never need a nil
// check.
type Registry struct {
	mu       sync.Mutex
	options  map[string]*ActorTypeOptions
	counters map[string]*uint64
}

// NewRegistry constructs an empty sampling Registry.
func NewRegistry() *Registry {
	return &Registry{
		options:  make(map[string]*ActorTypeOptions),
		counters: make(map[string]*uint64),
	}
}

// Options returns (creating if necessary) the ActorTypeOptions for
// actorType.
func (r *Registry) Options(actorType string) *ActorTypeOptions {
	r.mu.Lock()
	defer r.mu.Unlock()

	opts, ok := r.options[actorType]
	if !ok {
		opts = NewActorTypeOptions(DefaultConfiguration())
		r.options[actorType] = opts
	}
	return opts
}

// ShouldLog reports whether a log call for (actorType, level) should emit,
// consulting and advancing a counter private to that (actorType, level)
// pair.
func (r *Registry) ShouldLog(actorType, level string) bool {
	cfg := r.Options(actorType).GetSamplingConfiguration(level)

	r.mu.Lock()
	key := actorType + "/" + level
	ctr, ok := r.counters[key]
	if !ok {
		var n uint64
		ctr = &n
		r.counters[key] = ctr
	}
	r.mu.Unlock()

	return cfg.ShouldLog(ctr)
}
