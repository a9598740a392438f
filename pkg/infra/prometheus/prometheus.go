package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds
	latencyBuckets = []float64{
		5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000, 30000,
	}

	RequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "securityproxy_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	RequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "securityproxy_request_latency_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"method", "route"},
	)

	SecurityCallTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "securityproxy_security_calls_total",
			Help: "Security API calls by provider and result status",
		},
		[]string{"provider", "status"},
	)

	SecurityCallLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "securityproxy_security_call_latency_ms",
			Help:    "Security API round-trip latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"provider"},
	)

	SecurityActions = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "securityproxy_security_actions_total",
			Help: "Moderation actions applied per leg",
		},
		[]string{"leg", "action"},
	)

	LLMCallLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "securityproxy_llm_call_latency_ms",
			Help:    "Direct model call latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"status"},
	)
)

type MetricsConfig struct {
	EnableLatency bool
	EnableProcess bool
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		EnableLatency: true,
		EnableProcess: true,
	}
}

var (
	Config      = DefaultMetricsConfig()
	processOnce sync.Once
)

func Initialize(cfg MetricsConfig) {
	Config = cfg
	if cfg.EnableProcess {
		processOnce.Do(func() {
			registry.MustRegister(
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		})
	}

	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
}

func Gatherer() prometheus.Gatherer {
	return registry
}
