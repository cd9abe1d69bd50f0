package relay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeDone     = "done"
	outcomeFailed   = "failed"
	outcomeCanceled = "canceled"
)

type metrics struct {
	runs     *prometheus.CounterVec
	events   *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration prometheus.Histogram
}

// newMetrics creates the relay collectors and registers them on reg. A nil
// reg leaves them unregistered.
func newMetrics(reg prometheus.Registerer) (m *metrics, err error) {
	// promauto panics on duplicate registration; report it as an error.
	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(error); ok {
				err = e
				return
			}
			panic(p)
		}
	}()

	f := promauto.With(reg)
	return &metrics{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "a2abridge",
				Subsystem: "relay",
				Name:      "runs_total",
				Help:      "Relay runs by outcome",
			},
			[]string{"outcome"},
		),
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "a2abridge",
				Subsystem: "relay",
				Name:      "events_total",
				Help:      "Events delivered to callers by kind",
			},
			[]string{"kind"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "a2abridge",
				Subsystem: "relay",
				Name:      "failures_total",
				Help:      "Failed relay runs by the stage that failed",
			},
			[]string{"stage"},
		),
		duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "a2abridge",
				Subsystem: "relay",
				Name:      "duration_seconds",
				Help:      "Relay run duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
			},
		),
	}, nil
}

func (m *metrics) fail(st Stage) {
	m.failures.WithLabelValues(st.String()).Inc()
}

func (m *metrics) finish(outcome string, start time.Time) {
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}
