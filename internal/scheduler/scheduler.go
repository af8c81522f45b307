// Package scheduler admits render requests, bounds concurrency and
// drives each job through load, mesh build, render and caching.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/aresmaps/mars_relief/internal/dem"
	"github.com/aresmaps/mars_relief/internal/loader"
	"github.com/aresmaps/mars_relief/internal/mesh"
	"github.com/aresmaps/mars_relief/internal/pool"
	"github.com/aresmaps/mars_relief/internal/render"
	"github.com/aresmaps/mars_relief/internal/resultcache"
	"github.com/aresmaps/mars_relief/pkg/config"
	"github.com/aresmaps/mars_relief/pkg/logger"
	"github.com/aresmaps/mars_relief/pkg/metrics"
	"github.com/aresmaps/mars_relief/pkg/telemetry"
)

var (
	// ErrOverloaded means admission was refused because the queue is
	// full. Clients should back off and retry.
	ErrOverloaded = errors.New("scheduler: queue full")

	// ErrInvalidParams means the request asked for an output the
	// service refuses to produce.
	ErrInvalidParams = errors.New("scheduler: invalid render parameters")
)

type Scheduler struct {
	loader *loader.Loader
	pool   *pool.Pool
	cache  *resultcache.Cache

	strides      []int
	maxOutputDim int

	active     *semaphore.Weighted
	queueDepth int64
	queued     atomic.Int64

	logger logger.Logger
}

func New(cfg config.Scheduler, rcfg config.Render, ld *loader.Loader, pl *pool.Pool, rc *resultcache.Cache, l logger.Logger) *Scheduler {
	maxActive := cfg.MaxActive
	if maxActive < 1 {
		maxActive = 1
	}

	depth := cfg.QueueDepth
	if depth < maxActive {
		depth = maxActive
	}

	return &Scheduler{
		loader:       ld,
		pool:         pl,
		cache:        rc,
		strides:      rcfg.Strides,
		maxOutputDim: rcfg.MaxOutputDim,
		active:       semaphore.NewWeighted(int64(maxActive)),
		queueDepth:   int64(depth),
		logger:       l,
	}
}

// Render produces the encoded image for one tile and parameter set.
// Identical concurrent requests share a single pipeline run; repeated
// requests are served from the result cache. At most QueueDepth jobs
// are admitted at once and at most MaxActive run the pipeline.
func (s *Scheduler) Render(ctx context.Context, key dem.Key, params render.Params) (*resultcache.Result, error) {
	params = params.Canonical()
	if params.Width > s.maxOutputDim || params.Height > s.maxOutputDim {
		return nil, fmt.Errorf("%w: output %dx%d exceeds limit %d", ErrInvalidParams, params.Width, params.Height, s.maxOutputDim)
	}

	if s.queued.Add(1) > s.queueDepth {
		s.queued.Add(-1)
		metrics.RenderJobs.WithLabelValues("rejected").Inc()
		return nil, ErrOverloaded
	}
	metrics.QueuedJobs.Inc()
	defer func() {
		s.queued.Add(-1)
		metrics.QueuedJobs.Dec()
	}()

	jobKey := render.NewJobKey(key, params)

	ctx, span := telemetry.Tracer().Start(ctx, "scheduler.Render", trace.WithAttributes(
		attribute.String("tile.key", jobKey.TileKey),
		attribute.String("render.params", jobKey.ParamsKey),
	))
	defer span.End()

	start := time.Now()

	res, err := s.cache.GetOrRender(ctx, jobKey, func(jobCtx context.Context) (*resultcache.Result, error) {
		return s.execute(jobCtx, key, params)
	})
	if err != nil {
		state := "failed"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			state = "cancelled"
		}
		metrics.RenderJobs.WithLabelValues(state).Inc()
		s.logger.Warn("render job finished with error",
			"job", jobKey.String(), "state", state, "error", err)
		return nil, err
	}

	metrics.RenderJobs.WithLabelValues("done").Inc()
	s.logger.Info("render job finished",
		"job", jobKey.String(), "elapsed", time.Since(start))

	return res, nil
}

// Invalidate drops every cached render of the given tile, typically
// after its source DEM was re-ingested.
func (s *Scheduler) Invalidate(key dem.Key) int {
	return s.cache.Invalidate(key.String())
}

// execute runs one full pipeline pass. It is called at most once per
// job key at a time and its context is detached from any single caller.
func (s *Scheduler) execute(ctx context.Context, key dem.Key, params render.Params) (*resultcache.Result, error) {
	if err := s.active.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.active.Release(1)

	tracer := telemetry.Tracer()

	ctx, loadSpan := tracer.Start(ctx, "scheduler.load")
	tile, err := s.loader.Load(ctx, key)
	loadSpan.End()
	if err != nil {
		return nil, err
	}

	stride := mesh.SnapStride(mesh.StrideFor(key.Resolution, params.TargetSpacing), s.strides)

	_, buildSpan := tracer.Start(ctx, "scheduler.build",
		trace.WithAttributes(attribute.Int("mesh.stride", stride)))
	buildStart := time.Now()
	m, err := mesh.Build(tile, stride)
	metrics.MeshBuildDuration.Observe(time.Since(buildStart).Seconds())
	buildSpan.End()
	if err != nil {
		return nil, err
	}

	// The mesh is built before a context is claimed so degenerate
	// inputs never occupy a pool slot.
	ctx, acquireSpan := tracer.Start(ctx, "scheduler.acquire")
	rc, err := s.pool.Acquire(ctx)
	acquireSpan.End()
	if err != nil {
		return nil, err
	}
	defer s.pool.Release(rc)

	_, drawSpan := tracer.Start(ctx, "scheduler.draw")
	frame, err := render.Execute(rc, m, params)
	drawSpan.End()
	if err != nil {
		return nil, err
	}

	png, err := render.EncodePNG(frame)
	if err != nil {
		return nil, err
	}

	return &resultcache.Result{PNG: png, Width: frame.Width, Height: frame.Height}, nil
}
