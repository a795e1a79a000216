package grpcserver

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthClient asks a running service whether its pipeline accepts work.
type HealthClient struct {
	log  *slog.Logger
	conn *grpc.ClientConn
	cc   healthpb.HealthClient
}

func NewHealthClient(log *slog.Logger, addr string) (*HealthClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &HealthClient{
		log:  log,
		conn: conn,
		cc:   healthpb.NewHealthClient(conn),
	}, nil
}

// Check returns the serving status of the pipeline service.
func (c *HealthClient) Check(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.cc.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		c.log.Error("health check failed", "err", err)
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

func (c *HealthClient) Close() error {
	return c.conn.Close()
}
