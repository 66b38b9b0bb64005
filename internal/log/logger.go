// Package log wires the process-wide structured logger: a HandlerSet
// fanning records out to console (and optionally a rotating file), wrapped
// as a btclog/v2 structured logger the same way
// Roasbeef-substrate/cmd/substrated wires up its actor system's logger. It
// also offers a sampling-aware logger for high-volume call sites (dispatch,
// factory) that consults internal/logsampling before emitting.
package log

import (
	"context"
	"io"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"

	"github.com/silocore/vactor/internal/logsampling"
)

// New builds a structured logger writing to w at the given level. Pass
// multiple writers via NewMulti for console+file fan-out.
func New(w io.Writer, level btclog.Level) btclogv2.Logger {
	handler := btclogv2.NewDefaultHandler(w)
	handler.SetLevel(level)
	return btclogv2.NewSLogger(handler)
}

// NewMulti builds a structured logger fanning records out to every writer
// in ws (e.g. stderr and a rotating log file), via HandlerSet.
func NewMulti(level btclog.Level, ws ...io.Writer) btclogv2.Logger {
	handlers := make([]btclogv2.Handler, len(ws))
	for i, w := range ws {
		h := btclogv2.NewDefaultHandler(w)
		h.SetLevel(level)
		handlers[i] = h
	}

	return btclogv2.NewSLogger(NewHandlerSet(handlers...))
}

// SampledLogger wraps a btclog/v2 logger with per-actor-type sampling, so a
// hot actor type's trace/debug logging can be dialed down without silencing
// quieter types. It's intended for call sites keyed by actor type, such as
// internal/factory's activation path and internal/dispatch's invoke path.
type SampledLogger struct {
	inner    btclogv2.Logger
	sampling *logsampling.Registry
}

// NewSampledLogger wraps inner with sampling decisions drawn from registry.
func NewSampledLogger(inner btclogv2.Logger, registry *logsampling.Registry) *SampledLogger {
	return &SampledLogger{inner: inner, sampling: registry}
}

// DebugS logs at debug level for actorType, subject to that type's
// configured sampling rate.
func (s *SampledLogger) DebugS(ctx context.Context, actorType, msg string, kvs ...any) {
	if s.sampling.ShouldLog(actorType, "debug") {
		s.inner.DebugS(ctx, msg, kvs...)
	}
}

// TraceS logs at trace level for actorType, subject to that type's
// configured sampling rate.
func (s *SampledLogger) TraceS(ctx context.Context, actorType, msg string, kvs ...any) {
	if s.sampling.ShouldLog(actorType, "trace") {
		s.inner.TraceS(ctx, msg, kvs...)
	}
}

// WarnS and ErrorS are never sampled: failures are always logged in full.

// WarnS logs at warn level for actorType.
func (s *SampledLogger) WarnS(ctx context.Context, msg string, err error, kvs ...any) {
	s.inner.WarnS(ctx, msg, err, kvs...)
}

// ErrorS logs at error level for actorType.
func (s *SampledLogger) ErrorS(ctx context.Context, msg string, err error, kvs ...any) {
	s.inner.ErrorS(ctx, msg, err, kvs...)
}
