// Package observability wires the scheduler loop's runtime behavior —
// queue depth, dispatch throughput, interruption throughput, clock
// drift — to Prometheus. Tracing setup lives in package tracing.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics emitted by a running server
// loop.
type Collector struct {
	gatherer prometheus.Gatherer

	QueueDepth           prometheus.Gauge
	DispatchedEvents     prometheus.Counter
	DispatchDuration     prometheus.Histogram
	InterruptionsApplied prometheus.Counter
	ClockDriftSeconds    prometheus.Gauge
}

// NewCollector registers scheduler metrics against reg, defaulting to
// the global Prometheus registry when reg is nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	depth, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "discretesim_event_queue_depth",
		Help: "Number of events currently pending in the event queue.",
	}), "discretesim_event_queue_depth")
	if err != nil {
		return nil, err
	}

	dispatched, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discretesim_events_dispatched_total",
		Help: "Cumulative number of events dispatched by InvokeNext.",
	}), "discretesim_events_dispatched_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "discretesim_dispatch_duration_seconds",
		Help:    "Wall-clock duration of one InvokeNext batch dispatch.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}), "discretesim_dispatch_duration_seconds")
	if err != nil {
		return nil, err
	}

	interruptions, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discretesim_interruptions_applied_total",
		Help: "Cumulative number of externally delivered interruptions applied.",
	}), "discretesim_interruptions_applied_total")
	if err != nil {
		return nil, err
	}

	drift, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "discretesim_clock_drift_seconds",
		Help: "Difference between wall-clock time and the clock's reported in-game time, in seconds.",
	}), "discretesim_clock_drift_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:             gatherer,
		QueueDepth:           depth,
		DispatchedEvents:     dispatched,
		DispatchDuration:     duration,
		InterruptionsApplied: interruptions,
		ClockDriftSeconds:    drift,
	}, nil
}

// Gatherer returns the Prometheus gatherer backing this collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetQueueDepth records the current number of pending events.
func (c *Collector) SetQueueDepth(n int) {
	if c == nil || c.QueueDepth == nil {
		return
	}
	c.QueueDepth.Set(float64(n))
}

// ObserveDispatch records one InvokeNext batch's wall-clock duration and
// increments the dispatched-events counter by count.
func (c *Collector) ObserveDispatch(d time.Duration, count int) {
	if c == nil {
		return
	}
	if c.DispatchDuration != nil {
		c.DispatchDuration.Observe(d.Seconds())
	}
	if c.DispatchedEvents != nil {
		c.DispatchedEvents.Add(float64(count))
	}
}

// IncInterruptionsApplied increments the interruption counter.
func (c *Collector) IncInterruptionsApplied() {
	if c == nil || c.InterruptionsApplied == nil {
		return
	}
	c.InterruptionsApplied.Inc()
}

// SetClockDrift records the current wall-clock-to-in-game-time drift.
func (c *Collector) SetClockDrift(d time.Duration) {
	if c == nil || c.ClockDriftSeconds == nil {
		return
	}
	c.ClockDriftSeconds.Set(d.Seconds())
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
