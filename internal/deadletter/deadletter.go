// Package deadletter implements the bounded dead-letter queue that
// undeliverable messages are routed to, along with the per-actor-type retry
// policy and effective-configuration composition that governs how messages
// get there. The ring-buffer-over-a-mutex shape mirrors the teacher's
// ChannelMailbox draining idiom (internal/baselib/actor/channel_mailbox.go),
// applied here to a bounded history instead of an in-flight queue.
package deadletter

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry records one undeliverable message.
type Entry struct {
	// ID uniquely identifies this entry, so operators can reference one
	// dead-lettered message (e.g. to ack or replay it) without relying on
	// its position in the ring buffer, which shifts as new entries arrive.
	ID          string
	ActorType   string
	ActorID     string
	MessageType string
	Reason      string
	Timestamp   time.Time
	Attempt     int
}

// RetryPolicy configures how many times, and how far apart, a failed
// message is retried before being routed to the dead-letter queue for good.
type RetryPolicy struct {
	// MaxAttempts is the number of delivery attempts, including the
	// first, before a message is considered permanently undeliverable.
	// Zero or negative means no retries (single attempt).
	MaxAttempts int

	// BackoffBase is the delay before the first retry. Each subsequent
	// retry doubles the prior delay (exponential backoff).
	BackoffBase time.Duration
}

// DefaultRetryPolicy returns a conservative default: 3 attempts, 100ms base
// backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BackoffBase: 100 * time.Millisecond}
}

// BackoffFor returns the delay to wait before attempt N (1-indexed).
func (p RetryPolicy) BackoffFor(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	d := p.BackoffBase
	for i := 1; i < attempt-1; i++ {
		d *= 2
	}
	return d
}

// Exhausted reports whether attempt has consumed the policy's retry budget.
func (p RetryPolicy) Exhausted(attempt int) bool {
	max := p.MaxAttempts
	if max <= 0 {
		max = 1
	}
	return attempt >= max
}

// Config is the per-actor-type dead-letter configuration. Any field left at
// its zero value inherits from the silo-wide default when composed via
// Effective.
type Config struct {
	MaxMessages *int
	Retry       *RetryPolicy
}

// Effective composes a default Config with a possibly partial override,
// where nil fields in override inherit the default's value.
func Effective(def, override Config) Config {
	eff := def
	if override.MaxMessages != nil {
		eff.MaxMessages = override.MaxMessages
	}
	if override.Retry != nil {
		eff.Retry = override.Retry
	}
	return eff
}

// maxMessages returns c's configured bound, defaulting to 1000.
func (c Config) maxMessages() int {
	if c.MaxMessages == nil || *c.MaxMessages <= 0 {
		return 1000
	}
	return *c.MaxMessages
}

// retry returns c's configured retry policy, defaulting to DefaultRetryPolicy.
func (c Config) retry() RetryPolicy {
	if c.Retry == nil {
		return DefaultRetryPolicy()
	}
	return *c.Retry
}

// Queue is a bounded, thread-safe ring buffer of dead-letter entries. Once
// full, appending an entry evicts the oldest.
type Queue struct {
	mu      sync.RWMutex
	config  Config
	entries []Entry
}

// NewQueue constructs a Queue bounded by cfg's MaxMessages (default 1000).
func NewQueue(cfg Config) *Queue {
	return &Queue{config: cfg}
}

// Append records entry, evicting the oldest entry if the queue is at
// capacity. If entry.ID is unset, a new one is generated.
func (q *Queue) Append(entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	max := q.config.maxMessages()
	q.entries = append(q.entries, entry)
	if over := len(q.entries) - max; over > 0 {
		q.entries = q.entries[over:]
	}
}

// Entries returns a snapshot of all currently retained entries, oldest
// first.
func (q *Queue) Entries() []Entry {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Len reports the number of entries currently retained.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// RetryPolicy returns the queue's effective retry policy.
func (q *Queue) RetryPolicy() RetryPolicy {
	return q.config.retry()
}
