// Package log provides logging utilities for the Scribeline service.
// It includes a Zap logger wrapper with Kratos adapter and automatic field sanitization.
package log

import (
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"
)

// KratosAdapter adapts Zap logger to Kratos log.Logger interface
type KratosAdapter struct {
	zapLogger *zap.Logger
}

// NewKratosAdapter creates a new Kratos adapter for Zap logger
func NewKratosAdapter(zapLogger *zap.Logger) log.Logger {
	return &KratosAdapter{
		zapLogger: zapLogger.WithOptions(zap.AddCallerSkip(2)),
	}
}

// Log implements Kratos log.Logger interface.
// The "msg" key becomes the zap message; string values are sanitized.
func (a *KratosAdapter) Log(level log.Level, keyvals ...interface{}) error {
	if len(keyvals) == 0 {
		return nil
	}

	var msg string
	fields := make([]zap.Field, 0, len(keyvals)/2)

	for i := 0; i+1 < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])

		switch v := keyvals[i+1].(type) {
		case string:
			if key == log.DefaultMessageKey && msg == "" {
				msg = v
				continue
			}
			fields = append(fields, zap.String(key, SanitizeField(key, v)))
		case error:
			fields = append(fields, zap.String(key, SanitizeField(key, v.Error())))
		case time.Duration:
			fields = append(fields, zap.Duration(key, v))
		case fmt.Stringer:
			fields = append(fields, zap.String(key, SanitizeField(key, v.String())))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch level {
	case log.LevelDebug:
		a.zapLogger.Debug(msg, fields...)
	case log.LevelInfo:
		a.zapLogger.Info(msg, fields...)
	case log.LevelWarn:
		a.zapLogger.Warn(msg, fields...)
	case log.LevelError:
		a.zapLogger.Error(msg, fields...)
	case log.LevelFatal:
		a.zapLogger.Fatal(msg, fields...)
	default:
		a.zapLogger.Info(msg, fields...)
	}

	return nil
}

// Sync flushes buffered log entries.
func (a *KratosAdapter) Sync() error {
	return a.zapLogger.Sync()
}
