package middleware

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"

	pkglog "Scribeline/pkg/log"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	mu    sync.Mutex
	lines []map[string]interface{}
}

func (c *captureLogger) Log(_ log.Level, keyvals ...interface{}) error {
	line := make(map[string]interface{}, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		if k, ok := keyvals[i].(string); ok {
			line[k] = keyvals[i+1]
		}
	}
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
	return nil
}

func (c *captureLogger) requests() []map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]interface{}
	for _, l := range c.lines {
		if l["type"] == "request" {
			out = append(out, l)
		}
	}
	return out
}

func newServer(t *testing.T, logger *captureLogger, fail error) *httptest.Server {
	t.Helper()
	srv := http.NewServer(http.Middleware(Logging(pkglog.NewLogHelper(logger))))

	r := srv.Route("/")
	r.GET("/v1/ping", func(ctx http.Context) error {
		http.SetOperation(ctx, "/scribeline.v1.Test/Ping")
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			if fail != nil {
				return nil, fail
			}
			return map[string]string{"request_id": pkglog.GetRequestID(ctx)}, nil
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func TestLogging_PropagatesRequestID(t *testing.T) {
	logger := &captureLogger{}
	ts := newServer(t, logger, nil)

	req, err := nethttp.NewRequest(nethttp.MethodGet, ts.URL+"/v1/ping?x=1", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc123")

	resp, err := nethttp.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "abc123", resp.Header.Get(RequestIDHeader))

	lines := logger.requests()
	require.Len(t, lines, 1)
	assert.Equal(t, "abc123", lines[0]["request_id"])
	assert.Equal(t, "/v1/ping?x=1", lines[0]["url"])
	assert.Equal(t, "/scribeline.v1.Test/Ping", lines[0]["operation"])
	assert.Equal(t, 200, lines[0]["status"])
}

func TestLogging_GeneratesRequestIDAndStatus(t *testing.T) {
	logger := &captureLogger{}
	ts := newServer(t, logger, kerrors.New(503, "CIRCUIT_OPEN", "circuit open"))

	resp, err := nethttp.Get(ts.URL + "/v1/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 503, resp.StatusCode)
	assert.Len(t, resp.Header.Get(RequestIDHeader), 10)

	lines := logger.requests()
	require.Len(t, lines, 1)
	assert.Equal(t, 503, lines[0]["status"])
}

func TestExtractHTTPStatus(t *testing.T) {
	assert.Equal(t, 200, extractHTTPStatus(nil))
	assert.Equal(t, 429, extractHTTPStatus(kerrors.New(429, "RATE_LIMIT", "slow down")))
	assert.Equal(t, 500, extractHTTPStatus(errors.New("boom")))
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(nethttp.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9:5555", extractClientIP(req))

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", extractClientIP(req))

	req.Header.Set("X-Real-IP", "5.6.7.8")
	assert.Equal(t, "5.6.7.8", extractClientIP(req))
}
