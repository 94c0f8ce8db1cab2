package persistence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	savesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floorplan_shape_saves_total",
		Help: "Plan shape saves by outcome (synced, pending, failed).",
	}, []string{"result"})

	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floorplan_loads_total",
		Help: "Plan and shape loads by kind and source tier.",
	}, []string{"kind", "source"})

	remoteDeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floorplan_reconciled_deletes_total",
		Help: "Remote shape rows removed because the saved set no longer had them.",
	})

	pendingPlans = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "floorplan_pending_sync_plans",
		Help: "Plans whose latest save has reached the cache but not the remote store.",
	})

	saveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "floorplan_save_duration_seconds",
		Help:    "Wall time of SaveShapesForPlan, cache and remote included.",
		Buckets: prometheus.DefBuckets,
	})
)
