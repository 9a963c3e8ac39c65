package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cragtree_seed_build_info",
			Help: "Build information of the cragtree seeder",
		},
		[]string{"version", "commit", "date", "schema"},
	)

	RowsRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cragtree_seed_rows_read_total",
			Help: "Source rows read",
		},
	)

	RowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cragtree_seed_rows_skipped_total",
			Help: "Source rows not loaded as routes, by reason",
		},
		[]string{"reason"},
	)

	RowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cragtree_seed_rows_inserted_total",
			Help: "Rows inserted into the destination, by table",
		},
		[]string{"table"},
	)

	RouteConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cragtree_seed_route_conflicts_total",
			Help: "Route rows dropped by ON CONFLICT DO NOTHING",
		},
	)

	PhaseDuration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cragtree_seed_phase_duration_seconds",
			Help: "Duration of the last run of each load phase",
		},
		[]string{"phase"},
	)
)
