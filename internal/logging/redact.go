package logging

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Redacted creates a field that records only the length of val.
func Redacted(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// RedactingEncoder replaces the values of configured keys before encoding.
type RedactingEncoder struct {
	zapcore.Encoder
	redactFields map[string]bool
}

// NewRedactingEncoder wraps base. With redaction disabled fields pass through.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) *RedactingEncoder {
	fields := make(map[string]bool)
	if cfg.Enabled {
		for _, f := range cfg.Fields {
			fields[strings.ToLower(f)] = true
		}
	}
	return &RedactingEncoder{Encoder: base, redactFields: fields}
}

func (e *RedactingEncoder) shouldRedact(key string) bool {
	return e.redactFields[strings.ToLower(key)]
}

// AddString implements zapcore.ObjectEncoder.
func (e *RedactingEncoder) AddString(key, val string) {
	if e.shouldRedact(key) {
		val = "[REDACTED:" + strconv.Itoa(len(val)) + "]"
	}
	e.Encoder.AddString(key, val)
}

// Clone implements zapcore.Encoder.
func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone(), redactFields: e.redactFields}
}

// EncodeEntry implements zapcore.Encoder.
func (e *RedactingEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	redacted := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if f.Type == zapcore.StringType && e.shouldRedact(f.Key) {
			f.String = "[REDACTED:" + strconv.Itoa(len(f.String)) + "]"
		}
		redacted[i] = f
	}
	return e.Encoder.EncodeEntry(entry, redacted)
}
