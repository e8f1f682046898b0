package gpu

import "github.com/prometheus/client_golang/prometheus"

// Registry holds the pipeline's collectors. It is separate from the default
// registry so embedding programs decide whether to expose it.
var Registry = prometheus.NewRegistry()

var (
	buffersAllocated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beamsum",
			Subsystem: "gpu",
			Name:      "buffers_allocated_total",
			Help:      "Device buffers allocated, by role.",
		},
		[]string{"role"},
	)

	bufferBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "beamsum",
			Subsystem: "gpu",
			Name:      "buffer_bytes",
			Help:      "Bytes held by live device buffers, by role.",
		},
		[]string{"role"},
	)

	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beamsum",
			Subsystem: "gpu",
			Name:      "dispatches_total",
			Help:      "Submitted compute dispatches, by kernel.",
		},
		[]string{"kernel"},
	)

	readbackWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "beamsum",
			Subsystem: "gpu",
			Name:      "readback_wait_seconds",
			Help:      "Time spent waiting for a staging buffer to become host-visible.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		},
	)

	failures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beamsum",
			Subsystem: "gpu",
			Name:      "failures_total",
			Help:      "Failed runs, by stage.",
		},
		[]string{"stage"},
	)
)

func init() {
	Registry.MustRegister(buffersAllocated, bufferBytes, dispatches, readbackWait, failures)
}
