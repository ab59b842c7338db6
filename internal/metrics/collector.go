// Package metrics exports engine and HTTP metrics to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Harshitk-cp/agentspeak/internal/agent"
	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

// Collector implements agent.Observer and records HTTP traffic.
type Collector struct {
	steps          *prometheus.CounterVec
	stepDuration   prometheus.Histogram
	triggers       *prometheus.CounterVec
	unhandled      *prometheus.CounterVec
	selected       prometheus.Counter
	completed      prometheus.Counter
	cancelled      prometheus.Counter
	failures       *prometheus.CounterVec
	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	agents         prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

var _ agent.Observer = (*Collector)(nil)

// NewCollector registers the metric vectors on reg under namespace.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasoning_steps_total",
			Help:      "Reasoning steps by result (progress, idle, sleeping).",
		}, []string{"result"}),
		stepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reasoning_step_duration_seconds",
			Help:      "Duration of reasoning steps that made progress.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		triggers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_handled_total",
			Help:      "Triggers dequeued by type.",
		}, []string{"type"}),
		unhandled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_unhandled_total",
			Help:      "Triggers no plan was applicable to, by type.",
		}, []string{"type"}),
		selected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_selected_total",
			Help:      "Plan instances turned into intention frames.",
		}),
		completed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intentions_completed_total",
			Help:      "Top-level intentions that ran to completion.",
		}),
		cancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intentions_cancelled_total",
			Help:      "Intentions removed by goal removal.",
		}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unrecoverable_failures_total",
			Help:      "Discarded intentions by the kind of the original failure.",
		}, []string{"kind"}),
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Action invocations by name and outcome.",
		}, []string{"action", "outcome"}),
		actionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Action invocation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		agents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents",
			Help:      "Hosted agents.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (c *Collector) StepCompleted(_ string, out agent.CycleOutcome, took time.Duration) {
	switch {
	case out.Sleeping:
		c.steps.WithLabelValues("sleeping").Inc()
		return
	case out.Idle:
		c.steps.WithLabelValues("idle").Inc()
		return
	}
	c.steps.WithLabelValues("progress").Inc()
	c.stepDuration.Observe(took.Seconds())

	if out.Trigger != nil {
		typ := out.Trigger.Type.String()
		c.triggers.WithLabelValues(typ).Inc()
		if out.Unhandled {
			c.unhandled.WithLabelValues(typ).Inc()
		}
	}
	c.selected.Add(float64(len(out.Selected)))
	c.completed.Add(float64(len(out.Completed)))
	c.cancelled.Add(float64(len(out.Cancelled)))
	for _, f := range out.Failures {
		c.failures.WithLabelValues(rootKind(f)).Inc()
	}
}

func (c *Collector) ActionInvoked(_ string, name string, value domain.FuzzyValue, took time.Duration) {
	outcome := "pass"
	switch {
	case value.Err != nil:
		outcome = "error"
	case value.Failed():
		outcome = "fail"
	}
	c.actions.WithLabelValues(name, outcome).Inc()
	c.actionDuration.WithLabelValues(name).Observe(took.Seconds())
}

// SetAgents records the number of hosted agents.
func (c *Collector) SetAgents(n int) {
	c.agents.Set(float64(n))
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path.
func (c *Collector) ObserveHTTP(method, route string, status int, took time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// rootKind is the kind of the failure an unrecoverable failure escalated.
func rootKind(f *domain.Failure) string {
	if f.Kind == domain.UnrecoverableFailure {
		if inner, ok := f.Cause.(*domain.Failure); ok {
			return string(inner.Kind)
		}
	}
	return string(f.Kind)
}
