package server

import (
	"context"
	"testing"
	"time"

	"Scribeline/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestNewGRPCServer_ServesHealth(t *testing.T) {
	srv := NewGRPCServer(&conf.Server{Grpc: &conf.Server_GRPC{
		Addr:          "127.0.0.1:0",
		Timeout:       time.Second,
		KeepaliveTime: time.Minute,
	}}, log.DefaultLogger)

	endpoint, err := srv.Endpoint()
	require.NoError(t, err)

	go func() { _ = srv.Start(context.Background()) }()
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	conn, err := ggrpc.NewClient(endpoint.Host, ggrpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{}, ggrpc.WaitForReady(true))
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
