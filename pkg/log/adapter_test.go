package log

import (
	"errors"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedAdapter(level zapcore.Level) (log.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewKratosAdapter(zap.New(core)), logs
}

func TestKratosAdapter_EmptyKeyvals(t *testing.T) {
	adapter, logs := observedAdapter(zapcore.DebugLevel)
	require.NoError(t, adapter.Log(log.LevelInfo))
	assert.Equal(t, 0, logs.Len())
}

func TestKratosAdapter_MessageKeyBecomesMessage(t *testing.T) {
	adapter, logs := observedAdapter(zapcore.DebugLevel)
	require.NoError(t, adapter.Log(log.LevelInfo, "msg", "hello", "operation", "chat"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "hello", entry.Message)
	assert.Equal(t, "chat", entry.ContextMap()["operation"])
	assert.NotContains(t, entry.ContextMap(), "msg")
}

func TestKratosAdapter_LevelMapping(t *testing.T) {
	tests := []struct {
		kratos log.Level
		zap    zapcore.Level
	}{
		{log.LevelDebug, zapcore.DebugLevel},
		{log.LevelInfo, zapcore.InfoLevel},
		{log.LevelWarn, zapcore.WarnLevel},
		{log.LevelError, zapcore.ErrorLevel},
		{log.Level(99), zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.kratos.String(), func(t *testing.T) {
			adapter, logs := observedAdapter(zapcore.DebugLevel)
			require.NoError(t, adapter.Log(tt.kratos, "msg", "x"))
			require.Equal(t, 1, logs.Len())
			assert.Equal(t, tt.zap, logs.All()[0].Level)
		})
	}
}

func TestKratosAdapter_OddKeyvalsDropsDangling(t *testing.T) {
	adapter, logs := observedAdapter(zapcore.DebugLevel)
	require.NoError(t, adapter.Log(log.LevelInfo, "msg", "x", "dangling"))

	require.Equal(t, 1, logs.Len())
	assert.NotContains(t, logs.All()[0].ContextMap(), "dangling")
}

func TestKratosAdapter_SanitizesCredentials(t *testing.T) {
	adapter, logs := observedAdapter(zapcore.DebugLevel)
	require.NoError(t, adapter.Log(log.LevelInfo,
		"msg", "calling model",
		"api_key", "AIzaSyA1234567890abcdef",
		"credential", "AIza...cdef",
		"operation", "chat",
	))

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "AIza***************cdef", fields["api_key"])
	assert.NotEqual(t, "AIza...cdef", fields["credential"])
	assert.Equal(t, "chat", fields["operation"])
}

func TestKratosAdapter_TypedValues(t *testing.T) {
	adapter, logs := observedAdapter(zapcore.DebugLevel)
	require.NoError(t, adapter.Log(log.LevelWarn,
		"msg", "attempt failed",
		"error", errors.New("boom"),
		"delay", 2*time.Second,
		"attempt", 3,
		"ok", false,
	))

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, 2*time.Second, fields["delay"])
	assert.Equal(t, int64(3), fields["attempt"])
	assert.Equal(t, false, fields["ok"])
}

func TestKratosAdapter_WithHelper(t *testing.T) {
	adapter, logs := observedAdapter(zapcore.DebugLevel)
	helper := log.NewHelper(log.With(adapter, "component", "breaker"))

	helper.Infow("msg", "state changed", "name", "chat")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "state changed", entry.Message)
	assert.Equal(t, "breaker", entry.ContextMap()["component"])
}
