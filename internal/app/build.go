package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmehra2102/order-fulfillment/internal/config"
	invmemory "github.com/dmehra2102/order-fulfillment/internal/inventory/infrastructure/memory"
	invpg "github.com/dmehra2102/order-fulfillment/internal/inventory/infrastructure/postgres"
	orderkafka "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/kafka"
	ordermemory "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/memory"
	orderpg "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/postgres"
	orderredis "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/redis"
	"github.com/dmehra2102/order-fulfillment/internal/payment/infrastructure/gateway"
	paymemory "github.com/dmehra2102/order-fulfillment/internal/payment/infrastructure/memory"
	paypg "github.com/dmehra2102/order-fulfillment/internal/payment/infrastructure/postgres"
	"github.com/dmehra2102/order-fulfillment/internal/platform/grpcserver"
	platformpg "github.com/dmehra2102/order-fulfillment/internal/platform/postgres"
	"github.com/dmehra2102/order-fulfillment/pkg/eventexport"
	"github.com/dmehra2102/order-fulfillment/pkg/idempotency"
	"github.com/dmehra2102/order-fulfillment/pkg/latency"
	"github.com/dmehra2102/order-fulfillment/pkg/metrics"
	"github.com/dmehra2102/order-fulfillment/pkg/randx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Runtime is an App plus the external resources it was built on.
type Runtime struct {
	*App
	cfg     config.Config
	closers []func()
}

// Build connects the configured infrastructure and assembles the App.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*Runtime, error) {
	rt := &Runtime{cfg: cfg}
	built := false
	defer func() {
		if !built {
			rt.release()
		}
	}()

	rng := randx.New(cfg.RandomSeed)
	var delay latency.Injector = latency.None{}
	if cfg.SimulateLatency {
		delay = latency.Simulated()
	}
	deps := Deps{
		Rng:     rng,
		Delay:   delay,
		Gateway: gateway.NewSimulated(log, rng, delay, cfg.PaymentSuccessRate),
		Metrics: metrics.New(),
	}

	switch cfg.StoreDriver {
	case config.StorePostgres:
		if cfg.MigrateOnStart {
			if err := platformpg.MigrateUp(log, cfg.PGURL); err != nil {
				return nil, err
			}
		}
		pool, err := platformpg.Connect(ctx, platformpg.PoolConfig{URL: cfg.PGURL, MaxConns: cfg.PGMaxConns})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		deps.Orders = orderpg.NewRepository(log, pool)
		deps.Products = invpg.NewRepository(log, pool)
		deps.Payments = paypg.NewRepository(log, pool)
		log.Info("using postgres stores")
	default:
		deps.Orders = ordermemory.NewRepository()
		deps.Products = invmemory.NewRepository(invmemory.Catalogue()...)
		deps.Payments = paymemory.NewRepository()
		log.Info("using in-memory stores")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rt.closers = append(rt.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		deps.Orders = orderredis.NewCachedRepository(log, deps.Orders, rdb, cfg.CacheTTL)
		deps.Dedupe = idempotency.NewStore(rdb, 24*time.Hour)
		log.Info("redis cache enabled", "addr", cfg.RedisAddr)
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := orderkafka.NewWriter(cfg.KafkaBrokers)
		rt.closers = append(rt.closers, func() { _ = writer.Close() })
		deps.Exporter = eventexport.NewDispatcher(log, writer, cfg.EventsTopic)
		log.Info("event export enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.EventsTopic)
	}

	rt.App = New(log, cfg.Bus, deps)
	built = true
	return rt, nil
}

// Serve runs the HTTP and gRPC servers until ctx ends, then drains the bus
// and releases every resource.
func (rt *Runtime) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         rt.cfg.HTTPAddr,
		Handler:      rt.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 35 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rt.log.Info("http listening", "addr", rt.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if rt.cfg.GRPCAddr != "" {
		gs := grpcserver.New(rt.log, rt.Bus)
		g.Go(func() error {
			return gs.Serve(gctx, rt.cfg.GRPCAddr, 5*time.Second)
		})
	}

	err := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout)
	defer cancel()
	if cerr := rt.Close(closeCtx); cerr != nil {
		err = errors.Join(err, cerr)
	}
	rt.release()
	rt.log.Info("order-service shutdown complete")
	return err
}

func (rt *Runtime) release() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
