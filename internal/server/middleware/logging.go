package middleware

import (
	"context"
	"strings"
	"time"

	pkglog "Scribeline/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// RequestIDHeader carries the caller supplied request id.
const RequestIDHeader = "X-Request-ID"

// requestInfo is what the access log needs from the transport.
type requestInfo struct {
	method    string
	path      string
	operation string
	clientIP  string
	userAgent string
	requestID string
}

func describe(tr transport.Transporter) requestInfo {
	info := requestInfo{
		method:    tr.Kind().String(),
		path:      tr.Operation(),
		operation: tr.Operation(),
	}

	ht, ok := tr.(http.Transporter)
	if !ok {
		return info
	}
	r := ht.Request()
	info.method = r.Method
	info.path = r.URL.Path
	if r.URL.RawQuery != "" {
		info.path += "?" + r.URL.RawQuery
	}
	info.clientIP = extractClientIP(r)
	info.userAgent = r.Header.Get("User-Agent")
	info.requestID = r.Header.Get(RequestIDHeader)
	return info
}

// Logging returns a middleware that assigns a request id, echoes it in the
// reply header, injects the request context and writes one access log line.
//
//	🟢 POST /v1/transcribe - 200 (542ms) | RequestID: mgrn0zfqda
//	🐌 [mgrn0zfqda] Slow request detected | POST /v1/transcribe | 13438ms
func Logging(logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			start := time.Now()

			var info requestInfo
			tr, ok := transport.FromServerContext(ctx)
			if ok {
				info = describe(tr)
			}
			if info.requestID == "" {
				info.requestID = pkglog.GenerateRequestID()
			}
			if ok {
				tr.ReplyHeader().Set(RequestIDHeader, info.requestID)
			}

			ctx = pkglog.WithRequestContext(ctx, info.requestID, info.operation, info.clientIP)
			reply, err := handler(ctx, req)

			logger.RequestWithContext(ctx, info.method, info.path, extractHTTPStatus(err), time.Since(start).Milliseconds(),
				"user_agent", info.userAgent,
			)
			return reply, err
		}
	}
}

// extractClientIP prefers X-Real-IP, then the first X-Forwarded-For hop, then RemoteAddr.
func extractClientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return req.RemoteAddr
}

// extractHTTPStatus reads the status code of a kratos error. Unknown errors are 500.
func extractHTTPStatus(err error) int {
	if err == nil {
		return 200
	}
	return int(errors.FromError(err).Code)
}
