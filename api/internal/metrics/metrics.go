package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful upstream calls.
	OutcomeSuccess = "success"
	// OutcomeError labels failed upstream calls (transport error or non-2xx).
	OutcomeError = "error"
)

var (
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gutachten",
			Name:      "upstream_requests_total",
			Help:      "Calls to external collaborators, partitioned by collaborator and outcome.",
		},
		[]string{"collaborator", "outcome"},
	)

	upstreamDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gutachten",
			Name:      "upstream_seconds",
			Help:      "External collaborator latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"collaborator"},
	)

	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gutachten",
			Name:      "reports_total",
			Help:      "Inspection reports produced, partitioned by derived status.",
		},
		[]string{"status"},
	)
)

// Register attaches the collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		upstreamRequestsTotal,
		upstreamDurationSeconds,
		reportsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveUpstream records one collaborator call. Pass the call's error (nil on success).
func ObserveUpstream(collaborator string, started time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	upstreamRequestsTotal.WithLabelValues(collaborator, outcome).Inc()
	d := time.Since(started)
	if d < 0 {
		d = 0
	}
	upstreamDurationSeconds.WithLabelValues(collaborator).Observe(d.Seconds())
}

func ObserveReport(status string) {
	reportsTotal.WithLabelValues(status).Inc()
}
