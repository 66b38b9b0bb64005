package log

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"

	"github.com/silocore/vactor/internal/logsampling"
)

func countLines(buf *bytes.Buffer) int {
	s := strings.TrimRight(buf.String(), "\n")
	if s == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}

func TestNew_WritesLogLines(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, btclog.LevelDebug)

	logger.DebugS(context.Background(), "hello", "k", "v")
	require.Equal(t, 1, countLines(&buf))
}

func TestSampledLogger_SuppressesAccordingToRate(t *testing.T) {
	var buf bytes.Buffer
	inner := New(&buf, btclog.LevelTrace)

	registry := logsampling.NewRegistry()
	registry.Options("Greeter").SetLevel("debug", logsampling.Configuration{Every: 3})

	sampled := NewSampledLogger(inner, registry)

	for i := 0; i < 9; i++ {
		sampled.DebugS(context.Background(), "Greeter", "tick")
	}
	require.Equal(t, 3, countLines(&buf))
}

func TestSampledLogger_NeverSuppressesWarnOrError(t *testing.T) {
	var buf bytes.Buffer
	inner := New(&buf, btclog.LevelTrace)

	registry := logsampling.NewRegistry()
	sampled := NewSampledLogger(inner, registry)

	for i := 0; i < 5; i++ {
		sampled.WarnS(context.Background(), "uh oh", nil)
	}
	require.Equal(t, 5, countLines(&buf))
}
