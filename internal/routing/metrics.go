package routing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	optimizerRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walkrouter_optimizer_runs_total",
		Help: "Stage route optimizations by algorithm expression",
	}, []string{"algorithm"})

	optimizerVariants = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "walkrouter_optimizer_variants",
		Help:    "Concrete stage variants evaluated per optimization",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)
