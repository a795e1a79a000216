// Package metrics exposes workflow counters through Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fulfillment"

type Collector struct {
	registry *prometheus.Registry

	published *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	handled   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	queue     prometheus.Gauge

	placed    prometheus.Counter
	cancelled prometheus.Counter
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus", Name: "events_published_total",
			Help: "Events published on the in-process bus.",
		}, []string{"event_type"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus", Name: "handlers_rejected_total",
			Help: "Handler invocations dropped because the worker pool was saturated.",
		}, []string{"event_type", "handler"}),
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus", Name: "handlers_finished_total",
			Help: "Handler invocations by outcome.",
		}, []string{"event_type", "handler", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "bus", Name: "handler_duration_seconds",
			Help:    "Handler execution time.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"handler"}),
		queue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "bus", Name: "queue_depth",
			Help: "Handler invocations waiting for a worker.",
		}),
		placed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders", Name: "placed_total",
			Help: "Orders accepted by the API.",
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders", Name: "cancelled_total",
			Help: "Orders cancelled on request.",
		}),
	}
	c.registry.MustRegister(
		c.published, c.rejected, c.handled, c.duration, c.queue, c.placed, c.cancelled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) EventPublished(eventType string) {
	c.published.WithLabelValues(eventType).Inc()
}

func (c *Collector) HandlerRejected(eventType, handler string) {
	c.rejected.WithLabelValues(eventType, handler).Inc()
}

func (c *Collector) HandlerFinished(eventType, handler string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.handled.WithLabelValues(eventType, handler, outcome).Inc()
	c.duration.WithLabelValues(handler).Observe(elapsed.Seconds())
}

func (c *Collector) QueueDepth(n int) { c.queue.Set(float64(n)) }

func (c *Collector) OrderPlaced() { c.placed.Inc() }

func (c *Collector) OrderCancelled() { c.cancelled.Inc() }
