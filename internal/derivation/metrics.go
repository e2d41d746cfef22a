package derivation

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK          = "ok"
	resultInvalid     = "invalid"
	resultRateLimited = "rate_limited"
	resultCanceled    = "canceled"
	resultError       = "error"
)

type metrics struct {
	total    *prometheus.CounterVec
	duration prometheus.Histogram
	inFlight prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credkeys",
			Subsystem: "derivation",
			Name:      "total",
			Help:      "seed derivations by result",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "credkeys",
			Subsystem: "derivation",
			Name:      "duration_seconds",
			Help:      "time spent in the key derivation function",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "credkeys",
			Subsystem: "derivation",
			Name:      "in_flight",
			Help:      "derivations currently running",
		}),
	}
	for _, r := range []string{resultOK, resultInvalid, resultRateLimited, resultCanceled, resultError} {
		m.total.WithLabelValues(r)
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.total, m.duration, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
