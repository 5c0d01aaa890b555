package observe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (Logger, *zapobserver.ObservedLogs) {
	core, logs := zapobserver.New(level)
	return NewLoggerFromZap(zap.New(core)), logs
}

func TestLogger_WritesFields(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.InfoLevel)

	logger.Info(context.Background(), "cycle completed",
		String("overall", "warning"),
		Int("failures", 1),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "cycle completed", entry.Message)
	assert.Equal(t, "warning", entry.ContextMap()["overall"])
	assert.EqualValues(t, 1, entry.ContextMap()["failures"])
}

func TestLogger_FiltersByLevel(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.WarnLevel)

	logger.Debug(context.Background(), "debug")
	logger.Info(context.Background(), "info")
	logger.Warn(context.Background(), "warn")
	logger.Error(context.Background(), "error", Err(errors.New("boom")))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "boom", logs.All()[1].ContextMap()["error"])
}

func TestLogger_WithAddsFields(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.InfoLevel)

	logger.With(String("component", "Database")).Info(context.Background(), "probe failed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Database", logs.All()[0].ContextMap()["component"])
}

func TestLogger_AttachesSpanContext(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.InfoLevel)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger.Info(ctx, "inside span")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
}

func TestLogger_NoSpanNoTraceFields(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.InfoLevel)

	logger.Info(context.Background(), "plain")

	require.Equal(t, 1, logs.Len())
	_, ok := logs.All()[0].ContextMap()["trace_id"]
	assert.False(t, ok)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"ERROR":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	assert.NotPanics(t, func() {
		logger.With(String("k", "v")).Error(context.Background(), "ignored")
	})
}
