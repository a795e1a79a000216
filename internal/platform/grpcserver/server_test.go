package grpcserver

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type flag struct{ on atomic.Bool }

func (f *flag) Accepting() bool { return f.on.Load() }

func TestHealthFollowsReadiness(t *testing.T) {
	ready := &flag{}
	ready.on.Store(true)
	srv := New(slog.New(slog.NewTextHandler(io.Discard, nil)), ready)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, lis, 10*time.Millisecond) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	client, err := NewHealthClient(slog.New(slog.NewTextHandler(io.Discard, nil)), lis.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		status, _ := client.Check(context.Background())
		return status
	}

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check())

	ready.on.Store(false)
	assert.Eventually(t, func() bool {
		return check() == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)
}
