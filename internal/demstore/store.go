// Package demstore provides read access to the DEM tile source.
//
// The source storage is owned by the ingest pipeline; this package only
// knows how to fetch raw tile payloads by key. Put exists for ingest
// tooling and tests.
package demstore

import (
	"context"
	"fmt"

	"github.com/aresmaps/mars_relief/internal/dem"
	"github.com/aresmaps/mars_relief/pkg/config"
	"github.com/aresmaps/mars_relief/pkg/logger"
)

type Store interface {
	// Fetch returns the raw payload for a tile key. The second return is
	// false when the source has no tile for the key.
	Fetch(ctx context.Context, key dem.Key) ([]byte, bool, error)

	// Put writes a tile payload. Ingest-side only.
	Put(ctx context.Context, key dem.Key, data []byte) error

	Close() error
}

// New builds the store backend selected by configuration.
func New(cfg config.Store, l logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, l)
	case "redis":
		return NewRedisStore(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case "badger":
		return NewBadgerStore(cfg.BadgerDir)
	case "filesystem":
		return NewFilesystemStore(cfg.FilesystemDir), nil
	default:
		return nil, fmt.Errorf("demstore: unknown backend %q", cfg.Backend)
	}
}
