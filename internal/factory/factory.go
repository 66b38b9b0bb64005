// Package factory implements actor activation: turning an identity into a
// running, singleton actor instance, including the supervision directive
// that governs what happens when a behavior panics. The identity-keyed
// singleton cache follows internal/baselib/actor/system.go's ActorSystem,
// generalized from a single process-wide map to a generic, per-type cache
// bounded by an LRU so long-lived silos don't grow actor[M,R] maps forever.
package factory

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/silocore/vactor/internal/baselib/actor"
	"github.com/silocore/vactor/internal/identity"
)

// Directive is the action a Supervisor prescribes after a behavior panics.
type Directive int

const (
	// Resume ignores the panic and keeps the actor running; the message
	// that caused it is dropped.
	Resume Directive = iota
	// Restart deactivates and recreates the actor, discarding in-memory
	// state (a fresh Behavior instance is produced via the type's
	// factory function).
	Restart
	// Stop deactivates the actor permanently; it is removed from the
	// cache and future GetOrCreate calls create a new activation.
	Stop
	// Escalate deactivates the actor, as Stop does. As under every
	// directive, an Ask of the panicking message resolves to an error
	// carrying the panic; the message is not sent to the dead-letter sink.
	Escalate
)

// Supervisor decides the Directive to apply when a behavior panics while
// handling a message.
type Supervisor func(actorID string, recovered any) Directive

// DefaultSupervisor always restarts, the default directive for a child with
// no custom supervisor.
func DefaultSupervisor(_ string, _ any) Directive { return Restart }

// DeadLetterSink receives messages that could not be delivered or whose
// actor could not process them, decoupling internal/factory from any
// concrete dead-letter queue implementation.
type DeadLetterSink[M actor.Message] interface {
	Tell(ctx context.Context, msg M)
}

// supervisingBehavior wraps a user ActorBehavior, recovering panics and
// consulting a Supervisor to translate them into a Result instead of
// crashing the actor's processing goroutine. onDirective is invoked
// (off the processing goroutine) with whatever the Supervisor prescribed,
// so the owning Factory can act on Restart/Stop.
type supervisingBehavior[M actor.Message, R any] struct {
	actorID     string
	inner       actor.ActorBehavior[M, R]
	supervisor  Supervisor
	onDirective func(Directive)
}

func (b *supervisingBehavior[M, R]) Receive(ctx context.Context, msg M) (result fn.Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			directive := b.supervisor(b.actorID, r)
			if b.onDirective != nil {
				go b.onDirective(directive)
			}
			result = fn.Err[R](fmt.Errorf("factory: actor %s panicked: %v", b.actorID, r))
		}
	}()

	return b.inner.Receive(ctx, msg)
}

func (b *supervisingBehavior[M, R]) OnStop(ctx context.Context) error {
	if s, ok := b.inner.(actor.Stoppable); ok {
		return s.OnStop(ctx)
	}
	return nil
}

// BehaviorFactory constructs a fresh ActorBehavior for a newly activated (or
// restarted) actor identity.
type BehaviorFactory[M actor.Message, R any] func(id identity.Actor) actor.ActorBehavior[M, R]

// Options configures a Factory.
type Options[M actor.Message, R any] struct {
	// MailboxSize is the per-actor mailbox capacity (0 uses the actor
	// package's own default).
	MailboxSize int
	// CacheSize bounds the number of simultaneously active actors of
	// this type; the least-recently-used activation is deactivated when
	// a new one would exceed it. Zero defaults to 10000.
	CacheSize int
	// DLO receives messages still queued in an activation's mailbox when
	// it stops. Panicking messages are not sent to it.
	DLO actor.ActorRef[actor.Message, any]
	// ActivityTracker is notified of mailbox enqueue/disposal events for
	// every actor this Factory activates. Optional.
	ActivityTracker actor.ActivityTracker
	// RejectSink receives messages an activation's mailbox refused
	// because it was full or already closed. Optional.
	RejectSink actor.RejectSink[M]
	// Supervisor decides how panics are handled. Defaults to
	// DefaultSupervisor (always Restart).
	Supervisor Supervisor
}

// Factory activates and caches actors of one (M, R) message/response type,
// keyed by actor identity.
type Factory[M actor.Message, R any] struct {
	mu       sync.Mutex
	behavior BehaviorFactory[M, R]
	opts     Options[M, R]
	cache    *lru.Cache[string, *actor.Actor[M, R]]
	wg       sync.WaitGroup
}

// New constructs a Factory that produces behaviors via behaviorFactory.
func New[M actor.Message, R any](behaviorFactory BehaviorFactory[M, R], opts Options[M, R]) (*Factory[M, R], error) {
	size := opts.CacheSize
	if size <= 0 {
		size = 10000
	}

	f := &Factory[M, R]{behavior: behaviorFactory, opts: opts}

	cache, err := lru.NewWithEvict[string, *actor.Actor[M, R]](size, func(_ string, evicted *actor.Actor[M, R]) {
		evicted.Stop()
	})
	if err != nil {
		return nil, fmt.Errorf("factory: building cache: %w", err)
	}
	f.cache = cache

	return f, nil
}

func (f *Factory[M, R]) supervisor() Supervisor {
	if f.opts.Supervisor != nil {
		return f.opts.Supervisor
	}
	return DefaultSupervisor
}

// GetOrCreate returns the existing activation for id, or activates and
// starts a new one if none exists yet. Concurrent calls for the same id
// always observe the same ActorRef (spec invariant: identical identity ->
// identical reference).
func (f *Factory[M, R]) GetOrCreate(id identity.Actor) actor.ActorRef[M, R] {
	key := id.String()

	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.cache.Get(key); ok {
		return existing.Ref()
	}

	sup := &supervisingBehavior[M, R]{
		actorID:    key,
		inner:      f.behavior(id),
		supervisor: f.supervisor(),
	}
	sup.onDirective = func(d Directive) {
		switch d {
		case Stop, Escalate:
			f.Deactivate(id)
		case Restart:
			f.Deactivate(id)
			f.GetOrCreate(id)
		case Resume:
			// Actor keeps running with no further action.
		}
	}

	created := actor.NewActor(actor.ActorConfig[M, R]{
		ID:              key,
		ActorType:       id.TypeName,
		Behavior:        sup,
		DLO:             f.opts.DLO,
		ActivityTracker: f.opts.ActivityTracker,
		RejectSink:      f.opts.RejectSink,
		MailboxSize:     f.opts.MailboxSize,
		Wg:              &f.wg,
	})
	created.Start()

	f.cache.Add(key, created)
	return created.Ref()
}

// Deactivate stops and evicts the activation for id, if any.
func (f *Factory[M, R]) Deactivate(id identity.Actor) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := id.String()
	if existing, ok := f.cache.Get(key); ok {
		existing.Stop()
		f.cache.Remove(key)
	}
}

// Len returns the number of currently active activations.
func (f *Factory[M, R]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cache.Len()
}

// Shutdown stops every currently active activation and waits for their
// processing goroutines to exit.
func (f *Factory[M, R]) Shutdown() {
	f.mu.Lock()
	for _, key := range f.cache.Keys() {
		if a, ok := f.cache.Get(key); ok {
			a.Stop()
		}
	}
	f.cache.Purge()
	f.mu.Unlock()

	f.wg.Wait()
}
