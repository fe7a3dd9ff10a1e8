package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scraper",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total RPC calls by method and status",
	}, []string{"method", "status"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scraper",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total RPC calls delayed by the rate limiter",
	}, []string{"limiter"})

	ScanWindowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scraper",
		Subsystem: "scan",
		Name:      "windows_total",
		Help:      "Total block windows queried for logs",
	})

	ScanLogsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scraper",
		Subsystem: "scan",
		Name:      "logs_total",
		Help:      "Total raw logs returned by window queries",
	})

	ResolverIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scraper",
		Subsystem: "blocktime",
		Name:      "iterations",
		Help:      "Search iterations per timestamp resolution",
		Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
	})

	ResolverFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scraper",
		Subsystem: "blocktime",
		Name:      "linear_fallbacks_total",
		Help:      "Total resolutions that finished with a linear walk",
	})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scraper",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Property cache lookups by result (hit, fixed_hit, miss)",
	}, []string{"result"})

	OperationsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scraper",
		Subsystem: "decode",
		Name:      "operations_total",
		Help:      "Total operations emitted by kind",
	}, []string{"kind"})

	LogsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scraper",
		Subsystem: "decode",
		Name:      "dropped_logs_total",
		Help:      "Total logs dropped by reason",
	}, []string{"reason"})
)
