package grpcclient

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
)

func startHealth(t *testing.T) (string, *health.Server) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis.Addr().String(), hs
}

func TestCheck(t *testing.T) {
	addr, hs := startHealth(t)
	hs.SetServingStatus("voiceorder.Session", healthpb.HealthCheckResponse_NOT_SERVING)

	c, err := New(addr)
	require.NoError(t, err)
	defer c.Close()

	status, err := c.Check(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status)

	status, err = c.Check(context.Background(), "voiceorder.Session")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status)
}

func TestCheckUnknownService(t *testing.T) {
	addr, _ := startHealth(t)
	c, err := New(addr)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Check(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.Unavailable))
}
