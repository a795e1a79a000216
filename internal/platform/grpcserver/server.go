package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service key reported alongside the overall "" key.
const ServiceName = "fulfillment.Pipeline"

// Readiness reports whether the process can take new work.
type Readiness interface {
	Accepting() bool
}

type Server struct {
	log    *slog.Logger
	gs     *grpc.Server
	health *health.Server
	ready  Readiness
}

func New(log *slog.Logger, ready Readiness) *Server {
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)
	return &Server{
		log:    log.With("component", "grpc"),
		gs:     gs,
		health: hs,
		ready:  ready,
	}
}

// Sync copies the readiness state into the health service.
func (s *Server) Sync() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.ready.Accepting() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve listens on addr until ctx is cancelled, refreshing health every interval.
func (s *Server) Serve(ctx context.Context, addr string, interval time.Duration) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, lis, interval)
}

func (s *Server) serve(ctx context.Context, lis net.Listener, interval time.Duration) error {
	s.Sync()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.health.Shutdown()
				s.gs.GracefulStop()
				return
			case <-ticker.C:
				s.Sync()
			}
		}
	}()

	s.log.Info("grpc listening", "addr", lis.Addr().String())
	return s.gs.Serve(lis)
}
