package tracking

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus records events as request counters and latency histograms
type Prometheus struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	p := &Prometheus{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Completed endpoint requests by endpoint, verb and status code.",
		}, []string{"endpoint", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Endpoint request latency by endpoint and verb.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "method"}),
	}

	if reg != nil {
		if err := reg.Register(p.requests); err != nil {
			return nil, fmt.Errorf("failed to register request counter: %w", err)
		}
		if err := reg.Register(p.duration); err != nil {
			return nil, fmt.Errorf("failed to register duration histogram: %w", err)
		}
	}

	return p, nil
}

// Track implements Tracker
func (p *Prometheus) Track(_ context.Context, ev Event) error {
	p.requests.WithLabelValues(ev.Endpoint, ev.Method, strconv.Itoa(ev.Response.Code)).Inc()
	p.duration.WithLabelValues(ev.Endpoint, ev.Method).Observe(ev.Elapsed.Seconds())
	return nil
}
