package logsampling

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestShouldLog_DefaultLogsEveryOccurrence(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		require.True(t, r.ShouldLog("Greeter", "debug"))
	}
}

func TestShouldLog_SampledRateLogsOneInN(t *testing.T) {
	r := NewRegistry()
	r.Options("Greeter").SetLevel("trace", Configuration{Every: 3})

	var logged int
	for i := 0; i < 9; i++ {
		if r.ShouldLog("Greeter", "trace") {
			logged++
		}
	}
	require.Equal(t, 3, logged)
}

func TestGetSamplingConfiguration_FallsBackToDefault(t *testing.T) {
	opts := NewActorTypeOptions(Configuration{Every: 5})
	require.Equal(t, Configuration{Every: 5}, opts.GetSamplingConfiguration("warn"))

	opts.SetLevel("warn", Configuration{Every: 2})
	require.Equal(t, Configuration{Every: 2}, opts.GetSamplingConfiguration("warn"))
	require.Equal(t, Configuration{Every: 5}, opts.GetSamplingConfiguration("debug"))
}

// TestShouldLog_RateInvariant exercises the spec's sampling invariant: over
// any run of N calls, exactly ceil(N / every) of them return true.
func TestShouldLog_RateInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		every := rapid.IntRange(1, 10).Draw(t, "every")
		n := rapid.IntRange(0, 50).Draw(t, "n")

		r := NewRegistry()
		r.Options("Greeter").SetLevel("debug", Configuration{Every: every})

		logged := 0
		for i := 0; i < n; i++ {
			if r.ShouldLog("Greeter", "debug") {
				logged++
			}
		}

		want := (n + every - 1) / every
		require.Equal(t, want, logged)
	})
}
