package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresmaps/mars_relief/internal/coverage"
	"github.com/aresmaps/mars_relief/internal/dem"
	"github.com/aresmaps/mars_relief/internal/loader"
	"github.com/aresmaps/mars_relief/internal/mesh"
	"github.com/aresmaps/mars_relief/internal/pool"
	"github.com/aresmaps/mars_relief/internal/render"
	"github.com/aresmaps/mars_relief/internal/render/backend"
	_ "github.com/aresmaps/mars_relief/internal/render/backend/software"
	"github.com/aresmaps/mars_relief/internal/resultcache"
	"github.com/aresmaps/mars_relief/pkg/config"
	"github.com/aresmaps/mars_relief/pkg/logger"
)

type memStore struct {
	mu      sync.Mutex
	tiles   map[string][]byte
	fetches atomic.Int64
	block   chan struct{}
}

func newMemStore() *memStore {
	return &memStore{tiles: map[string][]byte{}}
}

func (s *memStore) Fetch(_ context.Context, key dem.Key) ([]byte, bool, error) {
	s.fetches.Add(1)
	if s.block != nil {
		<-s.block
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.tiles[key.String()]

	return data, ok, nil
}

func (s *memStore) Put(_ context.Context, key dem.Key, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tiles[key.String()] = data

	return nil
}

func (s *memStore) Close() error {
	return nil
}

func testKey() dem.Key {
	return dem.Key{
		BBox:       dem.BBox{MinX: 0, MinY: 0, MaxX: 160, MaxY: 160},
		Resolution: 10,
	}
}

// slopedTile encodes a 17x17 grid rising to the east.
func slopedTile() []byte {
	const n = 17

	samples := make([]float32, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			samples[y*n+x] = float32(x) * 3
		}
	}

	return dem.Encode(n, n, -9999, samples)
}

// countingBackend wraps the software backend and counts draws.
type countingBackend struct {
	backend.Backend
	draws atomic.Int64
}

type countingContext struct {
	render.Context
	draws *atomic.Int64
}

func (b *countingBackend) NewContext() (render.Context, error) {
	c, err := b.Backend.NewContext()
	if err != nil {
		return nil, err
	}

	return &countingContext{Context: c, draws: &b.draws}, nil
}

func (c *countingContext) Draw(p render.Params) (*render.Frame, error) {
	c.draws.Add(1)

	return c.Context.Draw(p)
}

type testEnv struct {
	store   *memStore
	backend *countingBackend
	sched   *Scheduler
}

func newTestEnv(t *testing.T, schedCfg config.Scheduler, poolSize int, acquireTimeout time.Duration) *testEnv {
	t.Helper()

	store := newMemStore()
	require.NoError(t, store.Put(context.Background(), testKey(), slopedTile()))

	ld := loader.New(store, emptyFootprint(t), 8, time.Minute, logger.NewNoOp())

	soft, err := backend.Get("software", logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, soft.Init())
	t.Cleanup(soft.Close)

	b := &countingBackend{Backend: soft}

	pl, err := pool.New(b, poolSize, acquireTimeout, logger.NewNoOp())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pl.Close(ctx)
	})

	rc := resultcache.New(64, logger.NewNoOp())

	rcfg := config.Render{
		Strides:      []int{1, 2, 4, 8, 16},
		MaxOutputDim: 2048,
	}

	return &testEnv{
		store:   store,
		backend: b,
		sched:   New(schedCfg, rcfg, ld, pl, rc, logger.NewNoOp()),
	}
}

func emptyFootprint(t *testing.T) *coverage.Footprint {
	t.Helper()

	fp, err := coverage.Load("")
	require.NoError(t, err)

	return fp
}

func TestSchedulerRendersTile(t *testing.T) {
	env := newTestEnv(t, config.Scheduler{MaxActive: 4, QueueDepth: 16}, 2, time.Second)

	res, err := env.sched.Render(context.Background(), testKey(), render.Params{Width: 64, Height: 64})
	require.NoError(t, err)

	assert.Equal(t, 64, res.Width)
	assert.Equal(t, 64, res.Height)
	// PNG signature.
	require.GreaterOrEqual(t, len(res.PNG), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, res.PNG[:8])
}

func TestSchedulerCoalescesIdenticalRequests(t *testing.T) {
	env := newTestEnv(t, config.Scheduler{MaxActive: 8, QueueDepth: 64}, 2, time.Second)

	params := render.Params{Mode: render.ShadeHillshade, Width: 32, Height: 32}

	const clients = 12

	var wg sync.WaitGroup
	errs := make([]error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.sched.Render(context.Background(), testKey(), params)
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
	}
	assert.Equal(t, int64(1), env.backend.draws.Load())
}

func TestSchedulerCachesAcrossSequentialRequests(t *testing.T) {
	env := newTestEnv(t, config.Scheduler{MaxActive: 4, QueueDepth: 16}, 1, time.Second)

	params := render.Params{Mode: render.ShadeRamp, Width: 32, Height: 32}

	first, err := env.sched.Render(context.Background(), testKey(), params)
	require.NoError(t, err)
	second, err := env.sched.Render(context.Background(), testKey(), params)
	require.NoError(t, err)

	assert.Equal(t, first.PNG, second.PNG)
	assert.Equal(t, int64(1), env.backend.draws.Load())
	assert.Equal(t, int64(1), env.store.fetches.Load())
}

func TestSchedulerRejectsWhenQueueFull(t *testing.T) {
	env := newTestEnv(t, config.Scheduler{MaxActive: 1, QueueDepth: 1}, 1, time.Second)

	env.store.block = make(chan struct{})
	defer close(env.store.block)

	// Occupy the single queue slot with a distinct key so later
	// requests cannot coalesce with it.
	go func() {
		other := testKey()
		other.BBox.MaxX = 320
		_, _ = env.sched.Render(context.Background(), other, render.Params{Width: 32, Height: 32})
	}()

	require.Eventually(t, func() bool {
		_, err := env.sched.Render(context.Background(), testKey(), render.Params{Width: 32, Height: 32})
		return errors.Is(err, ErrOverloaded)
	}, time.Second, 5*time.Millisecond)
}

func TestSchedulerDegenerateTileFailsBeforePoolAcquire(t *testing.T) {
	env := newTestEnv(t, config.Scheduler{MaxActive: 4, QueueDepth: 16}, 1, 200*time.Millisecond)

	// Hold the only context so any acquisition attempt would time out.
	held, err := env.sched.pool.Acquire(context.Background())
	require.NoError(t, err)
	defer env.sched.pool.Release(held)

	// 2x2 source grid collapses below 2x2 vertices at stride 16.
	key := dem.Key{BBox: dem.BBox{MinX: 0, MinY: 0, MaxX: 20, MaxY: 20}, Resolution: 10}
	samples := []float32{1, 2, 3, 4}
	require.NoError(t, env.store.Put(context.Background(), key, dem.Encode(2, 2, -9999, samples)))

	start := time.Now()
	_, err = env.sched.Render(context.Background(), key, render.Params{TargetSpacing: 160, Width: 32, Height: 32})

	assert.ErrorIs(t, err, mesh.ErrDegenerate)
	assert.NotErrorIs(t, err, pool.ErrExhausted)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestSchedulerRejectsOversizeOutput(t *testing.T) {
	env := newTestEnv(t, config.Scheduler{MaxActive: 4, QueueDepth: 16}, 1, time.Second)

	_, err := env.sched.Render(context.Background(), testKey(), render.Params{Width: 4096, Height: 4096})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestSchedulerInvalidate(t *testing.T) {
	env := newTestEnv(t, config.Scheduler{MaxActive: 4, QueueDepth: 16}, 1, time.Second)

	params := render.Params{Width: 32, Height: 32}
	_, err := env.sched.Render(context.Background(), testKey(), params)
	require.NoError(t, err)

	assert.Equal(t, 1, env.sched.Invalidate(testKey()))

	_, err = env.sched.Render(context.Background(), testKey(), params)
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.backend.draws.Load())
}
