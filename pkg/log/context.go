package log

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

type contextKey string

const requestContextKey contextKey = "scribeline_request_context"

// RequestContext 存储请求追踪信息，由 HTTP 中间件注入
type RequestContext struct {
	RequestID string    // 10 位短 ID，如 mgrn0zfqda
	Operation string    // 路由对应的操作名
	ClientIP  string    // 调用方地址
	StartTime time.Time // 请求开始时间

	mu       sync.Mutex
	metadata map[string]interface{}
}

const base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateRequestID 生成 10 位 base36 请求 ID
func GenerateRequestID() string {
	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[rand.IntN(len(base36Chars))]
	}
	return string(b)
}

// WithRequestContext 将 RequestContext 注入到 Context 中
func WithRequestContext(ctx context.Context, requestID, operation, clientIP string) context.Context {
	return context.WithValue(ctx, requestContextKey, &RequestContext{
		RequestID: requestID,
		Operation: operation,
		ClientIP:  clientIP,
		StartTime: time.Now(),
	})
}

// GetRequestContext 从 Context 中提取 RequestContext；不存在时返回 RequestID 为 "unknown" 的空值
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx != nil {
		if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{RequestID: "unknown"}
}

// GetRequestID 从 Context 中提取 Request ID
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// SetMetadata 设置请求级元数据（如缓存命中、尝试次数）
func SetMetadata(ctx context.Context, key string, value interface{}) {
	reqCtx := GetRequestContext(ctx)
	reqCtx.mu.Lock()
	defer reqCtx.mu.Unlock()
	if reqCtx.metadata == nil {
		reqCtx.metadata = make(map[string]interface{})
	}
	reqCtx.metadata[key] = value
}

// GetMetadata 获取请求级元数据
func GetMetadata(ctx context.Context, key string) (interface{}, bool) {
	reqCtx := GetRequestContext(ctx)
	reqCtx.mu.Lock()
	defer reqCtx.mu.Unlock()
	value, ok := reqCtx.metadata[key]
	return value, ok
}

// GetElapsedTime 获取请求已执行时间（毫秒）
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
