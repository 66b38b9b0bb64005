package burst

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAdaptiveMailbox_GrowsAndShrinks(t *testing.T) {
	m := NewAdaptiveMailbox(AdaptiveMailboxOptions{
		Enabled:               true,
		InitialCapacity:       100,
		MinCapacity:           100,
		MaxCapacity:           800,
		GrowThreshold:         0.9,
		ShrinkThreshold:       0.3,
		GrowthFactor:          2.0,
		ShrinkFactor:          0.5,
		MinSamplesBeforeAdapt: 2,
	})
	require.Equal(t, 100, m.Capacity())

	// First observation only counts toward the sample threshold.
	require.Equal(t, 100, m.Adjust(95, 100))

	require.Equal(t, 200, m.Adjust(95, 100))
	require.Equal(t, 400, m.Adjust(190, 200))

	require.Equal(t, 200, m.Adjust(10, 400))
}

func TestAdaptiveMailbox_DisabledByDefault(t *testing.T) {
	m := NewAdaptiveMailbox(AdaptiveMailboxOptions{
		InitialCapacity: 100, MinCapacity: 100, MaxCapacity: 800,
		GrowThreshold: 0.9, MinSamplesBeforeAdapt: 1,
	})

	for i := 0; i < 10; i++ {
		require.Equal(t, 100, m.Adjust(99, 100))
	}
}

func TestAdaptiveMailbox_ClampsToBounds(t *testing.T) {
	m := NewAdaptiveMailbox(AdaptiveMailboxOptions{
		Enabled: true, InitialCapacity: 100, MinCapacity: 100, MaxCapacity: 200,
		GrowThreshold: 0.9, ShrinkThreshold: 0.1, GrowthFactor: 4,
		ShrinkFactor: 0.5, MinSamplesBeforeAdapt: 1,
	})
	m.Adjust(1000, 100)
	m.Adjust(1000, 200)
	require.Equal(t, 200, m.Capacity())

	m.Adjust(0, 200)
	m.Adjust(0, 100)
	require.Equal(t, 100, m.Capacity())
}

func TestRateLimiter_AllowsWithinBurstThenRejects(t *testing.T) {
	rl := NewRateLimiter(RateLimitOptions{
		Enabled: true, MaxMessagesPerWindow: 2, TimeWindow: time.Second,
	})
	now := time.Now()
	rl.now = func() time.Time { return now }

	require.NoError(t, rl.Allow(context.Background()))
	require.NoError(t, rl.Allow(context.Background()))
	require.ErrorIs(t, rl.Allow(context.Background()), ErrRateLimited)
}

func TestRateLimiter_DisabledByDefault(t *testing.T) {
	rl := NewRateLimiter(RateLimitOptions{MaxMessagesPerWindow: 1, TimeWindow: time.Second})

	for i := 0; i < 5; i++ {
		require.NoError(t, rl.Allow(context.Background()))
	}
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(RateLimitOptions{
		Enabled: true, MaxMessagesPerWindow: 10, TimeWindow: time.Second,
	})
	now := time.Now()
	rl.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		require.NoError(t, rl.Allow(context.Background()))
	}
	require.ErrorIs(t, rl.Allow(context.Background()), ErrRateLimited)

	now = now.Add(200 * time.Millisecond)
	rl.now = func() time.Time { return now }
	require.NoError(t, rl.Allow(context.Background()))
}

func TestRateLimiter_RespectsCancelledContext(t *testing.T) {
	rl := NewRateLimiter(RateLimitOptions{
		Enabled: true, MaxMessagesPerWindow: 10, TimeWindow: time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, rl.Allow(ctx), context.Canceled)
}

func TestRateLimiter_ExcessActionDefaultsToDrop(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimitOptions())
	require.Equal(t, ExcessActionDrop, rl.ExcessAction())
}

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker[string](CircuitBreakerOptions{
		Name:             "test",
		Enabled:          true,
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		SamplingWindow:   time.Minute,
	})

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(func() (string, error) { return "", boom })
	}

	_, err := cb.Execute(func() (string, error) { return "ok", nil })
	require.Error(t, err)
}

func TestCircuitBreaker_DisabledPassesThrough(t *testing.T) {
	cb := NewCircuitBreaker[string](DefaultCircuitBreakerOptions("test"))

	boom := errors.New("boom")
	for i := 0; i < 10; i++ {
		_, err := cb.Execute(func() (string, error) { return "", boom })
		require.ErrorIs(t, err, boom)
	}
}
