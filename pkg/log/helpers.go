package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// SlowRequestThresholdMs 超过该耗时的请求额外记录一条 slow_request 警告
const SlowRequestThresholdMs = 30_000

// LogHelper 扩展 Kratos log.Helper
// 每个方法自动添加 "type" 字段，触发 EmojiConsoleEncoder 的表情符号映射
type LogHelper struct {
	*log.Helper
}

// NewLogHelper 创建增强的日志辅助器
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

func typed(logType, msg string, kvs []interface{}) []interface{} {
	all := make([]interface{}, 0, len(kvs)+4)
	all = append(all, "msg", msg)
	all = append(all, kvs...)
	return append(all, "type", logType)
}

// Startup 记录启动日志（🚀）
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(typed("startup", msg, kvs)...)
}

// Success 记录成功操作日志（✅）
func (h *LogHelper) Success(msg string, kvs ...interface{}) {
	h.Infow(typed("success", msg, kvs)...)
}

// Upstream 记录模型调用日志（🤖）
func (h *LogHelper) Upstream(msg string, kvs ...interface{}) {
	h.Debugw(typed("upstream", msg, kvs)...)
}

// Retry 记录重试日志（🔁）
func (h *LogHelper) Retry(msg string, kvs ...interface{}) {
	h.Warnw(typed("retry", msg, kvs)...)
}

// Circuit 记录熔断状态变化（🔌）
func (h *LogHelper) Circuit(msg string, kvs ...interface{}) {
	h.Warnw(typed("circuit", msg, kvs)...)
}

// Timeout 记录超时（⏳）
func (h *LogHelper) Timeout(msg string, kvs ...interface{}) {
	h.Warnw(typed("timeout", msg, kvs)...)
}

// Parse 记录响应解析降级（🧩）
func (h *LogHelper) Parse(msg string, kvs ...interface{}) {
	h.Infow(typed("parse", msg, kvs)...)
}

// Cache 记录结果缓存操作（📦）
func (h *LogHelper) Cache(msg string, kvs ...interface{}) {
	h.Debugw(typed("cache", msg, kvs)...)
}

// Database 记录数据库操作（💾）
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	h.Debugw(typed("database", msg, kvs)...)
}

// Report 记录定时报告（📊）
func (h *LogHelper) Report(msg string, kvs ...interface{}) {
	h.Infow(typed("report", msg, kvs)...)
}

// Request 记录 HTTP 请求日志（根据状态码选择表情符号）
func (h *LogHelper) Request(method, url string, status int, durationMs int64, kvs ...interface{}) {
	msg := fmt.Sprintf("%s %s - %d (%dms)", method, url, status, durationMs)
	all := typed("request", msg, kvs)
	all = append(all,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(all...)
}

// RequestWithContext 记录带 Context 的 HTTP 请求日志
// 自动从 Context 提取 Request ID 与操作名，并检测慢请求
func (h *LogHelper) RequestWithContext(ctx context.Context, method, url string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("%s %s - %d (%dms) | RequestID: %s", method, url, status, durationMs, reqCtx.RequestID)
	all := typed("request", msg, kvs)
	all = append(all,
		"request_id", reqCtx.RequestID,
		"operation", reqCtx.Operation,
		"client_ip", reqCtx.ClientIP,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(all...)

	if durationMs > SlowRequestThresholdMs {
		h.SlowRequest(ctx, method, url, durationMs, SlowRequestThresholdMs)
	}
}

// SlowRequest 记录慢请求警告（🐌）
func (h *LogHelper) SlowRequest(ctx context.Context, method, url string, duration, threshold int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms (threshold: %dms)",
		reqCtx.RequestID, method, url, duration, threshold)
	all := typed("slow_request", msg, kvs)
	all = append(all,
		"request_id", reqCtx.RequestID,
		"operation", reqCtx.Operation,
		"method", method,
		"url", url,
		"duration_ms", duration,
		"threshold_ms", threshold,
	)
	h.Warnw(all...)
}

// CallCompleted 记录一次编排调用的结果；失败时使用 error 级别
func (h *LogHelper) CallCompleted(ctx context.Context, operation string, attempts int, latencyMs int64, category string, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	if category == "" {
		msg := fmt.Sprintf("[%s] %s completed in %dms after %d attempt(s)", reqCtx.RequestID, operation, latencyMs, attempts)
		all := typed("success", msg, kvs)
		all = append(all, "request_id", reqCtx.RequestID, "operation", operation, "attempts", attempts, "latency_ms", latencyMs)
		h.Infow(all...)
		return
	}

	msg := fmt.Sprintf("[%s] %s failed (%s) in %dms after %d attempt(s)", reqCtx.RequestID, operation, category, latencyMs, attempts)
	all := typed("error", msg, kvs)
	all = append(all, "request_id", reqCtx.RequestID, "operation", operation, "attempts", attempts, "latency_ms", latencyMs, "category", category)
	h.Errorw(all...)
}
