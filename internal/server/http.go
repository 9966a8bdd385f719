package server

import (
	"Scribeline/internal/conf"
	"Scribeline/internal/server/middleware"
	"Scribeline/internal/service"
	pkglog "Scribeline/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, aiService *service.AIService, logger log.Logger) *http.Server {
	logHelper := pkglog.NewLogHelper(logger)

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Logging(logHelper),
		),
	}
	if c != nil && c.Http != nil {
		if c.Http.Network != "" {
			opts = append(opts, http.Network(c.Http.Network))
		}
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout > 0 {
			opts = append(opts, http.Timeout(c.Http.Timeout))
		}
	}
	srv := http.NewServer(opts...)

	service.RegisterAIServiceHTTPServer(srv, aiService)
	srv.Handle("/metrics", promhttp.Handler())

	return srv
}
