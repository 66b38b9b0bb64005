// Package burst implements the backpressure controls a mailbox can opt
// into under load: adaptive capacity, a circuit breaker guarding downstream
// calls, and a token-bucket rate limiter. Each control is independent and
// disabled by default. ChannelMailbox takes no options for them: a caller
// consults a control itself (e.g. wrapping a behavior's Receive in a
// CircuitBreaker).
package burst

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// AdaptiveMailboxOptions configures a mailbox whose effective capacity
// grows under load and shrinks back once load subsides, rather than staying
// fixed at a single worst-case size.
type AdaptiveMailboxOptions struct {
	// Enabled gates whether Adjust ever changes capacity; disabled by
	// default, matching every other burst control.
	Enabled bool
	// InitialCapacity is the capacity an AdaptiveMailbox starts at.
	InitialCapacity int
	// MinCapacity is the floor the mailbox will shrink to.
	MinCapacity int
	// MaxCapacity is the ceiling the mailbox will grow to.
	MaxCapacity int
	// GrowThreshold is the occupancy fraction (0-1) at or above which
	// capacity grows on the next Adjust call.
	GrowThreshold float64
	// ShrinkThreshold is the occupancy fraction at or below which
	// capacity shrinks on the next Adjust call.
	ShrinkThreshold float64
	// GrowthFactor multiplies capacity when growing.
	GrowthFactor float64
	// ShrinkFactor multiplies capacity when shrinking.
	ShrinkFactor float64
	// MinSamplesBeforeAdapt is the number of Adjust observations required
	// before the first capacity change is allowed.
	MinSamplesBeforeAdapt int
}

// DefaultAdaptiveMailboxOptions returns the conservative default: initial
// capacity 1000, bounded to [100, 10000], growing at 80% occupancy and
// shrinking at 20%, by factors of 2.0/0.5, after at least 10 samples.
// Disabled by default.
func DefaultAdaptiveMailboxOptions() AdaptiveMailboxOptions {
	return AdaptiveMailboxOptions{
		Enabled:               false,
		InitialCapacity:       1000,
		MinCapacity:           100,
		MaxCapacity:           10000,
		GrowThreshold:         0.8,
		ShrinkThreshold:       0.2,
		GrowthFactor:          2.0,
		ShrinkFactor:          0.5,
		MinSamplesBeforeAdapt: 10,
	}
}

// AdaptiveMailbox tracks a mailbox's recommended capacity, recomputed each
// time Adjust observes a new (queued, capacity) sample.
type AdaptiveMailbox struct {
	mu       sync.Mutex
	opts     AdaptiveMailboxOptions
	capacity int
	samples  int
}

// NewAdaptiveMailbox constructs an AdaptiveMailbox starting at opts'
// InitialCapacity, filling in any unset bound from the default options.
func NewAdaptiveMailbox(opts AdaptiveMailboxOptions) *AdaptiveMailbox {
	def := DefaultAdaptiveMailboxOptions()

	if opts.InitialCapacity <= 0 {
		opts.InitialCapacity = def.InitialCapacity
	}
	if opts.MinCapacity <= 0 {
		opts.MinCapacity = def.MinCapacity
	}
	if opts.MaxCapacity < opts.MinCapacity {
		opts.MaxCapacity = def.MaxCapacity
	}
	if opts.GrowthFactor <= 1 {
		opts.GrowthFactor = def.GrowthFactor
	}
	if opts.ShrinkFactor <= 0 || opts.ShrinkFactor >= 1 {
		opts.ShrinkFactor = def.ShrinkFactor
	}
	if opts.MinSamplesBeforeAdapt <= 0 {
		opts.MinSamplesBeforeAdapt = def.MinSamplesBeforeAdapt
	}

	capacity := opts.InitialCapacity
	if capacity < opts.MinCapacity {
		capacity = opts.MinCapacity
	}
	if capacity > opts.MaxCapacity {
		capacity = opts.MaxCapacity
	}

	return &AdaptiveMailbox{opts: opts, capacity: capacity}
}

// Capacity returns the currently recommended mailbox capacity.
func (a *AdaptiveMailbox) Capacity() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.capacity
}

// Adjust observes queued/capacity occupancy and grows or shrinks the
// recommended capacity accordingly, clamped to [MinCapacity, MaxCapacity].
// A no-op until Enabled is set and at least MinSamplesBeforeAdapt
// observations have been made.
func (a *AdaptiveMailbox) Adjust(queued, capacity int) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.opts.Enabled || capacity <= 0 {
		return a.capacity
	}

	a.samples++
	if a.samples < a.opts.MinSamplesBeforeAdapt {
		return a.capacity
	}

	occupancy := float64(queued) / float64(capacity)

	switch {
	case occupancy >= a.opts.GrowThreshold:
		grown := int(float64(a.capacity) * a.opts.GrowthFactor)
		a.capacity = min(grown, a.opts.MaxCapacity)
	case occupancy <= a.opts.ShrinkThreshold:
		shrunk := int(float64(a.capacity) * a.opts.ShrinkFactor)
		a.capacity = max(shrunk, a.opts.MinCapacity)
	}

	return a.capacity
}

// CircuitBreakerOptions configures a gobreaker.CircuitBreaker guarding
// calls a mailbox's behavior makes to external dependencies.
type CircuitBreakerOptions struct {
	Name string
	// Enabled gates whether Execute actually trips; disabled by default.
	Enabled bool
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker open.
	FailureThreshold uint32
	// SuccessThreshold is the number of consecutive successes required,
	// while half-open, to close the breaker again.
	SuccessThreshold uint32
	// Timeout is how long the breaker stays open before allowing a
	// half-open trial request.
	Timeout time.Duration
	// SamplingWindow is the period after which the closed-state failure
	// counts reset to zero.
	SamplingWindow time.Duration
}

// DefaultCircuitBreakerOptions returns the conservative default: trip after
// 5 consecutive failures, close again after 3 consecutive half-open
// successes, 30s open-state timeout, 60s closed-state sampling window.
// Disabled by default.
func DefaultCircuitBreakerOptions(name string) CircuitBreakerOptions {
	return CircuitBreakerOptions{
		Name:             name,
		Enabled:          false,
		FailureThreshold: 5,
		SuccessThreshold: 3,
		Timeout:          30 * time.Second,
		SamplingWindow:   60 * time.Second,
	}
}

// CircuitBreaker guards calls that return a dispatch result of type R,
// tripping open after too many consecutive failures. When Enabled is false
// it passes every call straight through.
type CircuitBreaker[R any] struct {
	enabled bool
	inner   *gobreaker.CircuitBreaker[R]
}

// NewCircuitBreaker builds a CircuitBreaker from opts.
func NewCircuitBreaker[R any](opts CircuitBreakerOptions) *CircuitBreaker[R] {
	inner := gobreaker.NewCircuitBreaker[R](gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: opts.SuccessThreshold,
		Interval:    opts.SamplingWindow,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
	})

	return &CircuitBreaker[R]{enabled: opts.Enabled, inner: inner}
}

// Execute runs fn through the circuit breaker, or directly if the breaker is
// disabled.
func (c *CircuitBreaker[R]) Execute(fn func() (R, error)) (R, error) {
	if !c.enabled {
		return fn()
	}
	return c.inner.Execute(fn)
}

// State reports the breaker's current state (Closed/Open/HalfOpen). Always
// Closed while disabled.
func (c *CircuitBreaker[R]) State() gobreaker.State {
	return c.inner.State()
}

// ErrRateLimited indicates RateLimiter.Allow rejected a call because the
// token bucket was empty.
var ErrRateLimited = errors.New("burst: rate limited")

// ExcessAction is the action a rate limiter's caller should take when a
// message arrives beyond the configured rate.
type ExcessAction int

const (
	// ExcessActionDrop silently discards the excess message.
	ExcessActionDrop ExcessAction = iota
	// ExcessActionReject rejects the excess message back to its sender.
	ExcessActionReject
	// ExcessActionQueue holds the excess message for later delivery
	// instead of dropping or rejecting it.
	ExcessActionQueue
)

// RateLimitOptions configures a token-bucket rate limiter.
type RateLimitOptions struct {
	// Enabled gates whether Allow ever rejects; disabled by default.
	Enabled bool
	// MaxMessagesPerWindow is the number of messages allowed per
	// TimeWindow, and the token bucket's burst size.
	MaxMessagesPerWindow int
	// TimeWindow is the period MaxMessagesPerWindow applies to.
	TimeWindow time.Duration
	// ExcessAction is the action to take on a message arriving beyond the
	// configured rate. RateLimiter itself only reports rejection (via
	// ErrRateLimited); callers consult ExcessAction to decide what that
	// rejection means for the message.
	ExcessAction ExcessAction
}

// DefaultRateLimitOptions returns the conservative default: 1000 messages
// per second, excess messages dropped. Disabled by default.
func DefaultRateLimitOptions() RateLimitOptions {
	return RateLimitOptions{
		Enabled:              false,
		MaxMessagesPerWindow: 1000,
		TimeWindow:           time.Second,
		ExcessAction:         ExcessActionDrop,
	}
}

// RateLimiter is a simple token-bucket limiter. It's intentionally
// hand-rolled rather than pulled from golang.org/x/time/rate: the pack's
// examples don't use that package. The bucket refills lazily on each Allow
// call.
type RateLimiter struct {
	mu         sync.Mutex
	opts       RateLimitOptions
	tokens     float64
	maxTokens  float64
	ratePerSec float64
	lastRefill time.Time
	now        func() time.Time
}

// NewRateLimiter constructs a RateLimiter starting with a full bucket.
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	def := DefaultRateLimitOptions()
	if opts.MaxMessagesPerWindow <= 0 {
		opts.MaxMessagesPerWindow = def.MaxMessagesPerWindow
	}
	if opts.TimeWindow <= 0 {
		opts.TimeWindow = def.TimeWindow
	}

	maxTokens := float64(opts.MaxMessagesPerWindow)

	return &RateLimiter{
		opts:       opts,
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		ratePerSec: maxTokens / opts.TimeWindow.Seconds(),
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// ExcessAction returns the configured action for messages arriving beyond
// the limiter's rate.
func (r *RateLimiter) ExcessAction() ExcessAction {
	return r.opts.ExcessAction
}

// Allow reports whether a call may proceed, consuming one token if so.
// Always allows while the limiter is disabled.
func (r *RateLimiter) Allow(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !r.opts.Enabled {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now

	r.tokens = min(r.maxTokens, r.tokens+elapsed*r.ratePerSec)
	if r.tokens < 1 {
		return ErrRateLimited
	}

	r.tokens--
	return nil
}
