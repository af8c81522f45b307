package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RenderJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "render_jobs_total",
		Help: "Total number of render jobs by terminal state",
	}, []string{"state"})

	RenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "render_duration_seconds",
		Help:    "Duration of the draw+readback stage in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	MeshBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mesh_build_duration_seconds",
		Help:    "Duration of mesh construction in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "result_cache_hits_total",
		Help: "Total number of result cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "result_cache_misses_total",
		Help: "Total number of result cache misses",
	})

	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "result_cache_evictions_total",
		Help: "Total number of result cache evictions",
	})

	CoalescedWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "result_cache_coalesced_waits_total",
		Help: "Total number of requests that attached to an in-flight render",
	})

	PoolAcquireWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "context_pool_acquire_wait_seconds",
		Help:    "Time spent waiting for a render context in seconds",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 10},
	})

	ContextsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "context_pool_in_use",
		Help: "Number of render contexts currently checked out",
	})

	ContextReplacements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "context_pool_replacements_total",
		Help: "Total number of unhealthy render contexts replaced",
	})

	QueuedJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_queued_jobs",
		Help: "Number of jobs admitted and not yet finished",
	})

	TileLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tile_loads_total",
		Help: "Total number of DEM tile loads by outcome",
	}, []string{"outcome"})
)
