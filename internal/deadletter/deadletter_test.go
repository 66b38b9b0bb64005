package deadletter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueue_EvictsOldestWhenFull(t *testing.T) {
	max := 2
	q := NewQueue(Config{MaxMessages: &max})

	q.Append(Entry{ActorID: "a1"})
	q.Append(Entry{ActorID: "a2"})
	q.Append(Entry{ActorID: "a3"})

	entries := q.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "a2", entries[0].ActorID)
	require.Equal(t, "a3", entries[1].ActorID)
}

func TestQueue_DefaultCapacity(t *testing.T) {
	q := NewQueue(Config{})
	for i := 0; i < 1500; i++ {
		q.Append(Entry{ActorID: "x"})
	}
	require.Equal(t, 1000, q.Len())
}

func TestEffective_OverrideInheritsNilFields(t *testing.T) {
	defMax := 50
	def := Config{MaxMessages: &defMax, Retry: nil}

	overrideRetry := RetryPolicy{MaxAttempts: 5, BackoffBase: time.Second}
	override := Config{Retry: &overrideRetry}

	eff := Effective(def, override)
	require.Equal(t, 50, eff.maxMessages())
	require.Equal(t, overrideRetry, eff.retry())
}

func TestRetryPolicy_BackoffDoublesAndExhausts(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BackoffBase: 100 * time.Millisecond}

	require.Equal(t, time.Duration(0), p.BackoffFor(1))
	require.Equal(t, 100*time.Millisecond, p.BackoffFor(2))
	require.Equal(t, 200*time.Millisecond, p.BackoffFor(3))

	require.False(t, p.Exhausted(1))
	require.False(t, p.Exhausted(2))
	require.True(t, p.Exhausted(3))
}

func TestQueue_RetryPolicyDefaultsWhenUnset(t *testing.T) {
	q := NewQueue(Config{})
	require.Equal(t, DefaultRetryPolicy(), q.RetryPolicy())
}
