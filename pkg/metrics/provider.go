package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderCallMetrics records outcome metadata for external provider calls.
type ProviderCallMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	fallback *prometheus.CounterVec
}

// NewProviderCallMetrics registers the provider call metrics on the provided registerer.
func NewProviderCallMetrics(reg prometheus.Registerer) *ProviderCallMetrics {
	if reg == nil {
		return &ProviderCallMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_call_duration_seconds",
		Help:    "Duration of external provider calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_call_success",
		Help: "Provider calls that returned usable data.",
	}, []string{"provider"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_call_failure",
		Help: "Provider calls that errored.",
	}, []string{"provider"})
	fallback := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_call_fallback",
		Help: "Provider calls that timed out and were replaced by their fallback value.",
	}, []string{"provider"})
	reg.MustRegister(duration, success, failure, fallback)
	return &ProviderCallMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		fallback: fallback,
	}
}

// ObserveDuration records the duration for the named provider.
func (p *ProviderCallMetrics) ObserveDuration(provider string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named provider.
func (p *ProviderCallMetrics) IncSuccess(provider string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncFailure increments the failure counter for the named provider.
func (p *ProviderCallMetrics) IncFailure(provider string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncFallback increments the timeout-fallback counter for the named provider.
func (p *ProviderCallMetrics) IncFallback(provider string) {
	if p == nil || p.fallback == nil {
		return
	}
	p.fallback.WithLabelValues(normalizeLabel(provider)).Inc()
}

func normalizeLabel(provider string) string {
	if provider == "" {
		return "unknown"
	}
	return provider
}
