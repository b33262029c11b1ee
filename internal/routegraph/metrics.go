package routegraph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pathQueryTotal counts path queries by result
	pathQueryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walkrouter_path_queries_total",
		Help: "Total shortest path queries by result",
	}, []string{"result"}) // "found", "unreachable" or "trivial"

	// pathQueryDuration tracks time spent holding the graph lock per query
	pathQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "walkrouter_path_query_duration_seconds",
		Help:    "Shortest path query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	})

	// tempNodesTotal counts temporary nodes spliced into the graph
	tempNodesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "walkrouter_temp_nodes_total",
		Help: "Total temporary nodes spliced for off-node query endpoints",
	})
)
