// Package app wires the fulfillment stages, stores and servers together.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	invapp "github.com/dmehra2102/order-fulfillment/internal/inventory/application"
	invhttp "github.com/dmehra2102/order-fulfillment/internal/inventory/infrastructure/http"
	notifapp "github.com/dmehra2102/order-fulfillment/internal/notification/application"
	notifmemory "github.com/dmehra2102/order-fulfillment/internal/notification/infrastructure/memory"
	"github.com/dmehra2102/order-fulfillment/internal/notification/infrastructure/sender"
	orchapp "github.com/dmehra2102/order-fulfillment/internal/orchestrator/application"
	orchmemory "github.com/dmehra2102/order-fulfillment/internal/orchestrator/infrastructure/memory"
	orderapp "github.com/dmehra2102/order-fulfillment/internal/order/application"
	orderhttp "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/http"
	payapp "github.com/dmehra2102/order-fulfillment/internal/payment/application"
	"github.com/dmehra2102/order-fulfillment/internal/platform/httpapi"
	shipapp "github.com/dmehra2102/order-fulfillment/internal/shipping/application"
	shiphttp "github.com/dmehra2102/order-fulfillment/internal/shipping/infrastructure/http"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/dmehra2102/order-fulfillment/pkg/eventexport"
	"github.com/dmehra2102/order-fulfillment/pkg/idempotency"
	"github.com/dmehra2102/order-fulfillment/pkg/latency"
	"github.com/dmehra2102/order-fulfillment/pkg/metrics"
	"github.com/dmehra2102/order-fulfillment/pkg/randx"
)

// Deps are the replaceable collaborators of the pipeline. Zero fields get
// in-process defaults except the stores, which are required.
type Deps struct {
	Orders   orderapp.OrderRepository
	Products invapp.ProductRepository
	Payments payapp.PaymentRepository
	Dedupe   idempotency.Checker
	Gateway  payapp.Gateway
	Carriers shipapp.CarrierSelector
	Rng      randx.Source
	Delay    latency.Injector
	Exporter *eventexport.Dispatcher
	Metrics  *metrics.Collector
}

type App struct {
	log *slog.Logger

	Bus           *eventbus.Bus
	Orders        *orderapp.Service
	Inventory     *invapp.Service
	Payments      *payapp.Service
	Shipping      *shipapp.Service
	Notifications *notifapp.Service
	Coordinator   *orchapp.Coordinator
	Metrics       *metrics.Collector
}

func New(log *slog.Logger, busCfg eventbus.Config, deps Deps) *App {
	if deps.Rng == nil {
		deps.Rng = randx.New(0)
	}
	if deps.Delay == nil {
		deps.Delay = latency.None{}
	}
	if deps.Dedupe == nil {
		deps.Dedupe = idempotency.NewMemoryStore(time.Hour)
	}
	if deps.Carriers == nil {
		deps.Carriers = shipapp.RandomCarrier{Rng: deps.Rng}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	bus := eventbus.New(log, busCfg, eventbus.WithMetrics(deps.Metrics))

	a := &App{
		log:     log,
		Bus:     bus,
		Metrics: deps.Metrics,
	}
	a.Orders = orderapp.NewService(log, deps.Orders, bus, orderapp.WithMetrics(deps.Metrics))
	a.Inventory = invapp.NewService(log, deps.Products, deps.Orders, bus, deps.Delay)
	a.Payments = payapp.NewService(log, deps.Payments, deps.Gateway, deps.Orders, bus)
	a.Shipping = shipapp.NewService(log, deps.Orders, bus, deps.Carriers, deps.Rng, deps.Delay)

	senders := make([]notifapp.Sender, 0, 4)
	for _, s := range sender.All(log) {
		senders = append(senders, s)
	}
	a.Notifications = notifapp.NewService(log, deps.Orders, notifmemory.NewHistory(0), deps.Dedupe, deps.Delay, senders...)
	a.Coordinator = orchapp.NewCoordinator(log, a.Inventory, a.Payments, orchmemory.NewJourneys())

	a.Inventory.Register(bus)
	a.Payments.Register(bus)
	a.Shipping.Register(bus)
	a.Notifications.Register(bus)
	a.Coordinator.Register(bus)
	if deps.Exporter != nil {
		deps.Exporter.Register(bus)
	}
	return a
}

type health struct {
	Status    string `json:"status"`
	Accepting bool   `json:"accepting"`
	Workers   int    `json:"workers"`
	Queued    int    `json:"queued"`
	Pending   int    `json:"pending"`
	Published uint64 `json:"published"`
	Rejected  uint64 `json:"rejected"`
	Failed    uint64 `json:"failed"`
}

// Router exposes every HTTP surface of the service.
func (a *App) Router() http.Handler {
	r := httpapi.NewRouter(a.log, 30*time.Second)
	r.Mount("/orders", orderhttp.NewHandler(a.log, a.Orders, a.Notifications, a.Coordinator).Routes())
	r.Mount("/products", invhttp.NewHandler(a.log, a.Inventory).Routes())
	r.Mount("/shipping", shiphttp.NewHandler(a.log, a.Shipping).Routes())
	r.Handle("/metrics", a.Metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		st := a.Bus.Stats()
		h := health{
			Status:    "UP",
			Accepting: a.Bus.Accepting(),
			Workers:   st.Workers,
			Queued:    st.Queued,
			Pending:   st.Pending,
			Published: st.Published,
			Rejected:  st.Rejected,
			Failed:    st.Failed,
		}
		code := http.StatusOK
		if !h.Accepting {
			h.Status = "DRAINING"
			code = http.StatusServiceUnavailable
		}
		httpapi.WriteJSON(w, code, h)
	})
	return r
}

// Settle blocks until every queued handler has run.
func (a *App) Settle(ctx context.Context) error {
	return a.Bus.Wait(ctx)
}

func (a *App) Close(ctx context.Context) error {
	return a.Bus.Close(ctx)
}
