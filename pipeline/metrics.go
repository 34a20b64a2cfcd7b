package pipeline

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/letmevibethatforyou/blastx"
)

// metrics holds the pipeline collectors. A nil *metrics records nothing.
type metrics struct {
	outcomes     *prometheus.CounterVec
	pollAttempts prometheus.Histogram
	duration     *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blastx",
			Subsystem: "pipeline",
			Name:      "outcomes_total",
			Help:      "Sequences processed by stage and outcome.",
		}, []string{"stage", "outcome"}),
		pollAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blastx",
			Subsystem: "pipeline",
			Name:      "poll_attempts",
			Help:      "Status checks needed before a result was ready.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 50},
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blastx",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Time spent per sequence and stage.",
			Buckets:   []float64{0.01, 0.1, 1, 10, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"stage"}),
	}
	if err := registerOrReuse(reg, &m.outcomes); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.pollAttempts); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return errors.Newf("blastx: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return errors.Wrap(err, "blastx: register metric")
	}
	return nil
}

// outcomeLabel is "ok" for success and the snake-cased error kind otherwise.
func outcomeLabel(code blastx.ErrorCode, ok bool) string {
	if ok {
		return "ok"
	}
	label := []byte(code.String())
	for i, b := range label {
		if b == ' ' {
			label[i] = '_'
		}
	}
	return string(label)
}

func (m *metrics) observe(o Outcome) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(o.Stage), outcomeLabel(o.Code, o.Err == nil)).Inc()
	m.duration.WithLabelValues(string(o.Stage)).Observe(o.Duration.Seconds())
	if o.Stage == StageSearch && o.Err == nil && o.Attempts > 0 {
		m.pollAttempts.Observe(float64(o.Attempts))
	}
}

