package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresmaps/mars_relief/internal/coverage"
	"github.com/aresmaps/mars_relief/internal/dem"
	"github.com/aresmaps/mars_relief/pkg/logger"
)

// memStore is an in-memory demstore.Store with a fetch counter.
type memStore struct {
	mu      sync.Mutex
	tiles   map[string][]byte
	fetches atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{tiles: map[string][]byte{}}
}

func (s *memStore) Fetch(_ context.Context, key dem.Key) ([]byte, bool, error) {
	s.fetches.Add(1)
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

func (s *memStore) Close() error { return nil }

func testKey() dem.Key {
	return dem.Key{
		BBox:       dem.BBox{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20},
		Resolution: 1.0,
		Version:    "1",
	}
}

func flatTile(w, h int) []byte {
	samples := make([]float32, w*h)
	for i := range samples {
		samples[i] = float32(i % 7)
	}
	return dem.Encode(w, h, -9999, samples)
}

func TestLoadDecodesTile(t *testing.T) {
	store := newMemStore()
	key := testKey()
	require.NoError(t, store.Put(context.Background(), key, flatTile(11, 11)))

	fp, _ := coverage.Load("")
	l := New(store, fp, 4, time.Minute, logger.NewNoOp())

	tile, err := l.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 11, tile.Width)
	assert.Equal(t, 11, tile.Height)
}

func TestLoadMissIsUnavailable(t *testing.T) {
	fp, _ := coverage.Load("")
	l := New(newMemStore(), fp, 4, time.Minute, logger.NewNoOp())

	_, err := l.Load(context.Background(), testKey())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadAllNoDataIsCorrupt(t *testing.T) {
	store := newMemStore()
	key := testKey()
	samples := make([]float32, 16)
	for i := range samples {
		samples[i] = -9999
	}
	require.NoError(t, store.Put(context.Background(), key, dem.Encode(4, 4, -9999, samples)))

	fp, _ := coverage.Load("")
	l := New(store, fp, 4, time.Minute, logger.NewNoOp())

	_, err := l.Load(context.Background(), key)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadGarbageIsCorrupt(t *testing.T) {
	store := newMemStore()
	key := testKey()
	require.NoError(t, store.Put(context.Background(), key, []byte("garbage")))

	fp, _ := coverage.Load("")
	l := New(store, fp, 4, time.Minute, logger.NewNoOp())

	_, err := l.Load(context.Background(), key)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestBurstSharesOneFetch(t *testing.T) {
	store := newMemStore()
	key := testKey()
	require.NoError(t, store.Put(context.Background(), key, flatTile(64, 64)))

	fp, _ := coverage.Load("")
	l := New(store, fp, 4, time.Minute, logger.NewNoOp())

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Load(context.Background(), key)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Single-flight plus the TTL cache keeps this well below one fetch
	// per caller; with a pre-populated store the first flight wins.
	assert.LessOrEqual(t, store.fetches.Load(), int64(workers/2))
}

func TestTTLCacheExpiry(t *testing.T) {
	c := newTTLCache(2, 10*time.Millisecond)
	tile := &dem.Tile{Width: 1, Height: 1}

	c.put("a", tile)
	_, ok := c.get("a")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.get("a")
	assert.False(t, ok, "expired entry must not be served")
}

func TestTTLCacheBound(t *testing.T) {
	c := newTTLCache(2, time.Minute)
	tile := &dem.Tile{Width: 1, Height: 1}

	c.put("a", tile)
	c.put("b", tile)
	c.put("c", tile)

	assert.LessOrEqual(t, len(c.entries), 2)
}
