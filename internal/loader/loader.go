// Package loader fetches and validates DEM tiles from the source store.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aresmaps/mars_relief/internal/coverage"
	"github.com/aresmaps/mars_relief/internal/dem"
	"github.com/aresmaps/mars_relief/internal/demstore"
	"github.com/aresmaps/mars_relief/pkg/logger"
	"github.com/aresmaps/mars_relief/pkg/metrics"
)

var (
	// ErrUnavailable means the requested bbox is outside dataset coverage
	// or the source has no tile for it. Not retriable.
	ErrUnavailable = errors.New("loader: tile unavailable")

	// ErrCorrupt means the source returned data that does not decode into
	// a usable elevation grid. Not retriable.
	ErrCorrupt = errors.New("loader: tile corrupt")
)

type Loader struct {
	store     demstore.Store
	footprint *coverage.Footprint
	cache     *ttlCache
	group     singleflight.Group
	logger    logger.Logger
}

func New(store demstore.Store, fp *coverage.Footprint, cacheSize int, cacheTTL time.Duration, l logger.Logger) *Loader {
	return &Loader{
		store:     store,
		footprint: fp,
		cache:     newTTLCache(cacheSize, cacheTTL),
		logger:    l,
	}
}

// Load returns the decoded tile for a key. Concurrent loads of the same
// key within a burst share one store fetch; the decoded tile is kept in a
// small TTL cache so a burst of render jobs over one tile does not hammer
// the source.
func (l *Loader) Load(ctx context.Context, key dem.Key) (*dem.Tile, error) {
	if !key.BBox.Valid() || key.Resolution <= 0 {
		metrics.TileLoads.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: bad key %s", ErrUnavailable, key.String())
	}

	if !l.footprint.Contains(key.BBox) {
		l.logger.Debug("bbox outside coverage", "key", key.String())
		metrics.TileLoads.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: outside coverage", ErrUnavailable)
	}

	ck := key.String()
	if tile, ok := l.cache.get(ck); ok {
		metrics.TileLoads.WithLabelValues("cached").Inc()
		return tile, nil
	}

	v, err, _ := l.group.Do(ck, func() (any, error) {
		return l.fetch(context.WithoutCancel(ctx), key)
	})
	if err != nil {
		return nil, err
	}

	return v.(*dem.Tile), nil
}

func (l *Loader) fetch(ctx context.Context, key dem.Key) (*dem.Tile, error) {
	data, found, err := l.store.Fetch(ctx, key)
	if err != nil {
		l.logger.Error("store fetch failed", "key", key.String(), "error", err)
		metrics.TileLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !found {
		metrics.TileLoads.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: not in source store", ErrUnavailable)
	}

	tile, err := dem.Decode(key, data)
	if err != nil {
		l.logger.Error("tile decode failed", "key", key.String(), "error", err)
		metrics.TileLoads.WithLabelValues("corrupt").Inc()
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if tile.ValidCount() == 0 {
		metrics.TileLoads.WithLabelValues("corrupt").Inc()
		return nil, fmt.Errorf("%w: grid is entirely no-data", ErrCorrupt)
	}

	l.cache.put(key.String(), tile)
	metrics.TileLoads.WithLabelValues("loaded").Inc()
	l.logger.Debug("tile loaded", "key", key.String(), "width", tile.Width, "height", tile.Height)

	return tile, nil
}
