package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.NotNil(t, logger.Underlying())
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	assert.ErrorContains(t, err, "invalid config")
}

func TestNewLogger_OTELWithoutProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = false
	cfg.Output.OTEL = true

	_, err := NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "console", mutate: func(c *Config) { c.Format = "console" }},
		{name: "bad format", mutate: func(c *Config) { c.Format = "text" }, wantErr: "format must be"},
		{name: "no output", mutate: func(c *Config) { c.Output.Stdout = false }, wantErr: "at least one output"},
		{name: "negative skip", mutate: func(c *Config) { c.Caller.Skip = -1 }, wantErr: "caller skip"},
		{name: "empty field value", mutate: func(c *Config) { c.Fields["env"] = "" }, wantErr: "empty value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString("trace")
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, lvl)

	lvl, err = LevelFromString("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, err = LevelFromString("loud")
	assert.Error(t, err)
}

func TestLogger_ContextFields(t *testing.T) {
	logger := NewTestLogger()

	ctx := WithAnalysisID(context.Background(), "an-1")
	ctx = WithRootMember(ctx, "me")
	ctx = WithRequestID(ctx, "req-9")

	logger.Info(ctx, "analysis complete", zap.Int("patterns", 2))

	logger.AssertLogged(t, zapcore.InfoLevel, "analysis complete")
	logger.AssertField(t, "analysis complete", "analysis.id", "an-1")
	logger.AssertField(t, "analysis complete", "analysis.root", "me")
	logger.AssertField(t, "analysis complete", "request.id", "req-9")
	logger.AssertField(t, "analysis complete", "patterns", int64(2))
}

func TestLogger_TraceCorrelation(t *testing.T) {
	logger := NewTestLogger()

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.Debug(ctx, "rule evaluated")
	logger.AssertField(t, "rule evaluated", "trace_id", traceID.String())
	logger.AssertField(t, "rule evaluated", "span_id", spanID.String())
}

func TestLogger_LevelsAndChildren(t *testing.T) {
	logger := NewTestLogger()
	ctx := context.Background()

	logger.Trace(ctx, "trace msg")
	logger.Debug(ctx, "debug msg")
	logger.Warn(ctx, "warn msg")
	logger.Error(ctx, "error msg")
	logger.Named("engine").With(zap.String("rule", "divorce-repetition")).Info(ctx, "child msg")

	logger.AssertLogged(t, TraceLevel, "trace msg")
	logger.AssertLogged(t, zapcore.DebugLevel, "debug msg")
	logger.AssertLogged(t, zapcore.WarnLevel, "warn msg")
	logger.AssertLogged(t, zapcore.ErrorLevel, "error msg")
	logger.AssertField(t, "child msg", "rule", "divorce-repetition")
	logger.AssertNotLogged(t, zapcore.InfoLevel, "warn msg")

	logger.Reset()
	assert.Empty(t, logger.All())
}

func TestFromContext(t *testing.T) {
	nop := FromContext(context.Background())
	require.NotNil(t, nop)
	assert.False(t, nop.Enabled(zapcore.ErrorLevel))

	logger := NewTestLogger()
	ctx := WithLogger(context.Background(), logger.Logger)
	assert.Same(t, logger.Logger, FromContext(ctx))
}

func TestFromZap(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := FromZap(zap.New(core))
	logger.Info(context.Background(), "wrapped")
	assert.Equal(t, 1, observed.Len())

	assert.NotNil(t, FromZap(nil))
}

func TestRedactingEncoder(t *testing.T) {
	enc := NewRedactingEncoder(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), RedactionConfig{
		Enabled: true,
		Fields:  []string{"notes"},
	})

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "member loaded"}, []zapcore.Field{
		zap.String("notes", "never talked about the war"),
		zap.String("member", "dad"),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "never talked about the war")
	assert.Contains(t, out, "[REDACTED:26]")
	assert.Contains(t, out, `"member":"dad"`)
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	enc := NewRedactingEncoder(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), RedactionConfig{
		Enabled: false,
		Fields:  []string{"notes"},
	})

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "m"}, []zapcore.Field{zap.String("notes", "plain")})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"notes":"plain"`)
}

func TestRedacted(t *testing.T) {
	f := Redacted("name", "Abuela Rosa")
	assert.Equal(t, "[REDACTED:11]", f.String)
}
