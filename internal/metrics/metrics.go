package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// VerdictPass labels probes whose outcome satisfied their policy.
	VerdictPass = "pass"
	// VerdictFail labels probes whose outcome fell outside the accepted set.
	VerdictFail = "fail"

	// RunOK labels suite runs that completed with zero failures.
	RunOK = "ok"
	// RunFailed labels suite runs with at least one failing verdict.
	RunFailed = "failed"
)

var (
	probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apidoctor",
			Name:      "probes_total",
			Help:      "Total number of probes executed, partitioned by verdict.",
		},
		[]string{"verdict"},
	)

	probeDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "apidoctor",
			Name:      "probe_seconds",
			Help:      "Probe round-trip latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apidoctor",
			Name:      "runs_total",
			Help:      "Total number of suite runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches apidoctor collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		probesTotal,
		probeDurationSeconds,
		runsTotal,
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

// ObserveProbe records one probe's latency and verdict label.
func ObserveProbe(duration time.Duration, passed bool) {
	label := VerdictFail
	if passed {
		label = VerdictPass
	}
	probesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	probeDurationSeconds.Observe(duration.Seconds())
}

// ObserveRun records the outcome of one completed suite run.
func ObserveRun(failed int) {
	label := RunOK
	if failed > 0 {
		label = RunFailed
	}
	runsTotal.WithLabelValues(label).Inc()
}
