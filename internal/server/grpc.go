package server

import (
	"Scribeline/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/grpc"
	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// NewGRPCServer new a gRPC server. It carries only the health and reflection
// services registered by kratos; the AI operations are served over HTTP.
func NewGRPCServer(c *conf.Server, logger log.Logger) *grpc.Server {
	var opts = []grpc.ServerOption{
		grpc.Middleware(
			recovery.Recovery(),
		),
	}
	if c != nil && c.Grpc != nil {
		if c.Grpc.Network != "" {
			opts = append(opts, grpc.Network(c.Grpc.Network))
		}
		if c.Grpc.Addr != "" {
			opts = append(opts, grpc.Address(c.Grpc.Addr))
		}
		if c.Grpc.Timeout > 0 {
			opts = append(opts, grpc.Timeout(c.Grpc.Timeout))
		}
		if c.Grpc.KeepaliveTime > 0 {
			opts = append(opts, grpc.Options(ggrpc.KeepaliveParams(keepalive.ServerParameters{
				Time:    c.Grpc.KeepaliveTime,
				Timeout: c.Grpc.KeepaliveTime / 3,
			})))
			log.NewHelper(logger).Debugw("msg", "grpc keepalive enabled", "time", c.Grpc.KeepaliveTime.String())
		}
	}
	return grpc.NewServer(opts...)
}
