// Package metrics exposes Prometheus metrics for register updates and
// register sizes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var UpdateResults = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lexikon",
	Subsystem: "register",
	Name:      "updates_total",
	Help:      "Update records by strategy and result.",
}, []string{"strategy", "result"})

var BatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "lexikon",
	Subsystem: "register",
	Name:      "batch_duration_seconds",
	Help:      "Time to apply and persist one update batch.",
	Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
})

// Update results.
const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
)

// VolumeStat is the size of one loaded register.
type VolumeStat struct {
	Volume  string
	Lemmas  int
	Invalid int
}

// RegisterCollector reports the size of every loaded register at scrape
// time.
type RegisterCollector struct {
	stats func() []VolumeStat

	lemmas  *prometheus.Desc
	invalid *prometheus.Desc
}

func NewRegisterCollector(stats func() []VolumeStat) *RegisterCollector {
	return &RegisterCollector{
		stats: stats,
		lemmas: prometheus.NewDesc(
			"lexikon_register_lemmas",
			"Number of entries in a volume register",
			[]string{"volume"}, nil,
		),
		invalid: prometheus.NewDesc(
			"lexikon_register_invalid_lemmas",
			"Number of entries without a complete chapter",
			[]string{"volume"}, nil,
		),
	}
}

func (rc *RegisterCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- rc.lemmas
	ch <- rc.invalid
}

func (rc *RegisterCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range rc.stats() {
		ch <- prometheus.MustNewConstMetric(rc.lemmas, prometheus.GaugeValue, float64(s.Lemmas), s.Volume)
		ch <- prometheus.MustNewConstMetric(rc.invalid, prometheus.GaugeValue, float64(s.Invalid), s.Volume)
	}
}

// Handler registers the update metrics, the register collector and the Go
// runtime collectors on a fresh registry and serves it.
func Handler(stats func() []VolumeStat) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{
		UpdateResults,
		BatchDuration,
		NewRegisterCollector(stats),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}
