package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "engined",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Resource cache lookups by artifact kind and result (hit, miss, error)",
		},
		[]string{"kind", "result"},
	)

	installsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "engined",
			Subsystem: "cache",
			Name:      "installs_total",
			Help:      "Model archive installations by result",
		},
		[]string{"result"},
	)

	fetchBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "engined",
			Subsystem: "fetch",
			Name:      "bytes_total",
			Help:      "Bytes fetched for model archives",
		},
	)
)

func init() {
	prometheus.MustRegister(lookupsTotal, installsTotal, fetchBytesTotal)
}

func observeLookup(kind string, hit bool, err error) {
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case hit:
		result = "hit"
	}
	lookupsTotal.WithLabelValues(kind, result).Inc()
}
