package visitation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var snappedPointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "walkrouter_visits_snapped_points_total",
	Help: "Trace points processed by the visitation tracker",
}, []string{"result"}) // "snapped" or "dropped"
