package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AnalysisLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gosst",
			Subsystem: "analysis",
			Name:      "latency_seconds",
			Help:      "Time spent decoding and analyzing a session",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"range"},
	)

	RangeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gosst",
			Subsystem: "analysis",
			Name:      "range_errors_total",
			Help:      "Requested ranges that were invalid and fell back to the whole session",
		},
	)

	DecodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gosst",
			Subsystem: "psst",
			Name:      "decode_errors_total",
			Help:      "Uploaded or stored records (SST or PSST) that failed to decode",
		},
		[]string{"source"},
	)

	SharedAnalyses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gosst",
			Subsystem: "analysis",
			Name:      "shared_total",
			Help:      "Analysis requests served by an in-flight computation",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(AnalysisLatency, RangeErrors, DecodeErrors, SharedAnalyses)
	})
}
