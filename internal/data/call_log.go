package data

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"Scribeline/internal/model"
	aierr "Scribeline/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

const (
	callLogBuffer = 1000
	// callLogWriteAttempts bounds retries of deadlocks and dropped connections.
	callLogWriteAttempts = 3
	callLogRetryDelay    = 50 * time.Millisecond
	// maxLoggedError is the error text kept when a row is rejected as too long.
	maxLoggedError = 1024
)

// AICallLog is the GORM model for ai_call_logs table
type AICallLog struct {
	ID           int64     `gorm:"primaryKey;column:id"`
	CallID       string    `gorm:"column:call_id;type:varchar(36);index"`
	RequestID    string    `gorm:"column:request_id;type:varchar(64)"`
	Event        string    `gorm:"column:event;type:varchar(32);not null;index"`
	Operation    string    `gorm:"column:operation;type:varchar(64);not null;index"`
	Model        string    `gorm:"column:model;type:varchar(64)"`
	Outcome      string    `gorm:"column:outcome;type:varchar(16)"`
	Category     string    `gorm:"column:category;type:varchar(32)"`
	Attempts     int       `gorm:"column:attempts;default:0;not null"`
	LatencyMs    int64     `gorm:"column:latency_ms;default:0;not null"`
	ParseStep    string    `gorm:"column:parse_step;type:varchar(16)"`
	CacheHit     bool      `gorm:"column:cache_hit;default:false;not null"`
	FailureCount int       `gorm:"column:failure_count;default:0;not null"`
	Error        string    `gorm:"column:error;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (AICallLog) TableName() string {
	return "ai_call_logs"
}

// CallLogger implements biz.CallRecorder. Rows are written by a background
// goroutine; with no database every record is dropped.
type CallLogger struct {
	db      *gorm.DB
	logChan chan *AICallLog
	logger  *log.Helper

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewCallLogger creates a new call logger with async channel
func NewCallLogger(db *gorm.DB, logger log.Logger) (*CallLogger, func()) {
	cl := &CallLogger{
		db:     db,
		logger: log.NewHelper(logger),
		done:   make(chan struct{}),
	}
	if db == nil {
		close(cl.done)
		return cl, func() {}
	}

	cl.logChan = make(chan *AICallLog, callLogBuffer)
	go cl.start()

	return cl, cl.Close
}

// start processes call log rows from channel
func (c *CallLogger) start() {
	defer close(c.done)
	for row := range c.logChan {
		c.write(row)
	}
}

// write inserts one row. Retryable failures are retried; a row rejected for
// length is retried once with its error text cut down.
func (c *CallLogger) write(row *AICallLog) {
	for attempt := 1; ; attempt++ {
		err := c.db.WithContext(context.Background()).Create(row).Error
		if err == nil {
			c.logger.Debugw("msg", "call log written",
				"operation", row.Operation,
				"event", row.Event)
			return
		}

		kind := aierr.DBKindOf(err)
		switch {
		case kind == aierr.DBDataTooLong && len(row.Error) > maxLoggedError:
			row.Error = truncateRunes(row.Error, maxLoggedError)
			continue
		case kind.Retryable() && attempt < callLogWriteAttempts:
			time.Sleep(time.Duration(attempt) * callLogRetryDelay)
			continue
		}

		c.logger.Errorw("msg", "failed to write call log",
			"operation", row.Operation,
			"event", row.Event,
			"kind", kind.String(),
			"attempts", attempt,
			"error", err)
		return
	}
}

// truncateRunes cuts s to at most limit bytes without splitting a UTF-8 sequence.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Close stops accepting rows and waits for queued rows to be written.
func (c *CallLogger) Close() {
	c.mu.Lock()
	if !c.closed && c.logChan != nil {
		close(c.logChan)
	}
	c.closed = true
	c.mu.Unlock()
	<-c.done
}

// RecordCall queues one orchestrated call
func (c *CallLogger) RecordCall(_ context.Context, rec *model.CallRecord) {
	c.enqueue(&AICallLog{
		CallID:    rec.ID,
		RequestID: rec.RequestID,
		Event:     model.EventCall,
		Operation: rec.Operation,
		Model:     rec.Model,
		Outcome:   rec.Outcome,
		Category:  rec.Category,
		Attempts:  rec.Attempts,
		LatencyMs: rec.Latency.Milliseconds(),
		ParseStep: rec.ParseStep,
		CacheHit:  rec.CacheHit,
		Error:     rec.Error,
		CreatedAt: rec.CreatedAt,
	})
}

// RecordCircuitEvent queues one circuit transition
func (c *CallLogger) RecordCircuitEvent(_ context.Context, event, name string, failureCount int) {
	c.enqueue(&AICallLog{
		Event:        event,
		Operation:    name,
		FailureCount: failureCount,
	})
}

func (c *CallLogger) enqueue(row *AICallLog) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.logChan == nil || c.closed {
		return
	}

	// Send to channel (non-blocking)
	select {
	case c.logChan <- row:
	default:
		c.logger.Warnw("msg", "call log channel full, dropping row",
			"operation", row.Operation,
			"event", row.Event)
	}
}
