package log

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestStatusEmoji(t *testing.T) {
	assert.Equal(t, "🟢", statusEmoji(200))
	assert.Equal(t, "🟡", statusEmoji(302))
	assert.Equal(t, "🟠", statusEmoji(429))
	assert.Equal(t, "🔴", statusEmoji(503))
}

func TestPickEmoji(t *testing.T) {
	tests := []struct {
		name   string
		level  zapcore.Level
		fields []zapcore.Field
		want   string
	}{
		{"status wins", zapcore.InfoLevel, []zapcore.Field{zap.Int("status", 504), zap.String("category", "TIMEOUT")}, "🔴"},
		{"category before type", zapcore.WarnLevel, []zapcore.Field{zap.String("type", "retry"), zap.String("category", "RATE_LIMIT")}, "🚦"},
		{"type mapping", zapcore.WarnLevel, []zapcore.Field{zap.String("type", "circuit")}, "🔌"},
		{"unknown category falls through", zapcore.WarnLevel, []zapcore.Field{zap.String("type", "retry"), zap.String("category", "UNKNOWN")}, "🔁"},
		{"error level default", zapcore.ErrorLevel, nil, "❌"},
		{"info level default", zapcore.InfoLevel, []zapcore.Field{zap.String("type", "nope")}, "ℹ️"},
		{"debug level default", zapcore.DebugLevel, nil, "🐛"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickEmoji(tt.level, tt.fields))
		})
	}
}

func TestGetEmojiMap_ReturnsCopy(t *testing.T) {
	m := GetEmojiMap()
	require.Contains(t, m, "upstream")
	m["upstream"] = "x"
	assert.NotEqual(t, "x", GetEmojiMap()["upstream"])
}

func TestEmojiConsoleEncoder_EncodeEntry(t *testing.T) {
	enc := NewEmojiConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})

	buf, err := enc.EncodeEntry(
		zapcore.Entry{Level: zapcore.WarnLevel, Message: "circuit opened", Time: time.Now()},
		[]zapcore.Field{zap.String("type", "circuit"), zap.String("name", "chat")},
	)
	require.NoError(t, err)
	defer buf.Free()

	out := buf.String()
	assert.True(t, strings.Contains(out, "🔌 circuit opened"), out)
	assert.Contains(t, out, "chat")

	clone := enc.Clone()
	_, ok := clone.(*EmojiConsoleEncoder)
	assert.True(t, ok)
}
