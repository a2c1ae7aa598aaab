package loader

import "github.com/prometheus/client_golang/prometheus"

var libraryStatus = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "engined",
		Subsystem: "library",
		Name:      "status",
		Help:      "Inference engine library status; 1 for the current state",
	},
	[]string{"state"},
)

func init() {
	prometheus.MustRegister(libraryStatus)
	publishStatus(NotAttempted)
}

func publishStatus(k Kind) {
	for _, s := range []Kind{NotAttempted, Loaded, Crashed, Failed} {
		v := 0.0
		if s == k {
			v = 1
		}
		libraryStatus.WithLabelValues(s.String()).Set(v)
	}
}
