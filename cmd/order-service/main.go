package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dmehra2102/order-fulfillment/internal/app"
	"github.com/dmehra2102/order-fulfillment/internal/config"
	"github.com/dmehra2102/order-fulfillment/internal/platform/grpcserver"
	platformpg "github.com/dmehra2102/order-fulfillment/internal/platform/postgres"
	"github.com/dmehra2102/order-fulfillment/pkg/eventexport"
	"github.com/dmehra2102/order-fulfillment/pkg/idempotency"
	"github.com/dmehra2102/order-fulfillment/pkg/logging"
	"github.com/dmehra2102/order-fulfillment/pkg/shutdown"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	rootCmd := serveCommand()
	rootCmd.Use = "order-service"
	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
		eventsCommand(),
		healthcheckCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "run the order fulfillment pipeline and its HTTP/gRPC servers",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel)

			ctx, cancel := shutdown.WithSignals(cmd.Context())
			defer cancel()

			tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
			if err != nil {
				log.Error("otel init failed", "err", err)
				return err
			}
			defer func() { _ = tp.Shutdown(context.Background()) }()

			rt, err := app.Build(ctx, cfg, log)
			if err != nil {
				log.Error("startup failed", "err", err)
				return err
			}
			return rt.Serve(ctx)
		},
	}
}

func migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply or roll back the postgres schema",
	}

	var steps int
	down := &cobra.Command{
		Use:          "down",
		Short:        "roll back the given number of migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := migrationTarget()
			if err != nil {
				return err
			}
			return platformpg.MigrateDown(log, cfg.PGURL, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:          "up",
			Short:        "migrate all the way up",
			Args:         cobra.NoArgs,
			SilenceUsage: true,
			RunE: func(_ *cobra.Command, _ []string) error {
				cfg, log, err := migrationTarget()
				if err != nil {
					return err
				}
				return platformpg.MigrateUp(log, cfg.PGURL)
			},
		},
		down,
	)
	return cmd
}

func migrationTarget() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(cfg.LogLevel), nil
}

func eventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "inspect order events exported to kafka",
	}

	var group string
	tail := &cobra.Command{
		Use:          "tail",
		Short:        "print exported order events as JSON lines",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(cfg.KafkaBrokers) == 0 {
				return errors.New("KAFKA_ADDR is required to tail events")
			}
			log := logging.New(cfg.LogLevel)

			ctx, cancel := shutdown.WithSignals(cmd.Context())
			defer cancel()

			out := json.NewEncoder(cmd.OutOrStdout())
			reader := eventexport.NewReader(cfg.KafkaBrokers, cfg.EventsTopic, group)
			consumer := eventexport.NewConsumer(log, reader, idempotency.NewMemoryStore(time.Hour),
				func(_ context.Context, ev eventexport.Exported) error {
					return out.Encode(ev)
				})
			log.Info("tailing events", "topic", cfg.EventsTopic, "group", group)
			return consumer.Run(ctx)
		},
	}
	tail.Flags().StringVar(&group, "group", "order-events-tail", "kafka consumer group")

	cmd.AddCommand(tail)
	return cmd
}

// healthcheckCommand exits non-zero unless the pipeline reports SERVING over gRPC.
func healthcheckCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:          "healthcheck",
		Short:        "query the gRPC health service of a running instance",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New("error")
			client, err := grpcserver.NewHealthClient(log, addr)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			status, err := client.Check(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status.String())
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("pipeline is %s", status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:9090", "gRPC address of the service")
	return cmd
}
