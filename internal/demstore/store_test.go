package demstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresmaps/mars_relief/internal/dem"
	"github.com/aresmaps/mars_relief/pkg/logger"
)

func testKey(minX float64) dem.Key {
	return dem.Key{
		BBox:       dem.BBox{MinX: minX, MinY: 0, MaxX: minX + 10, MaxY: 10},
		Resolution: 1.0,
		Version:    "1",
	}
}

func TestStoreRoundTrip(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "dem.db"), logger.NewNoOp())
			require.NoError(t, err)
			return s
		},
		"filesystem": func(t *testing.T) Store {
			return NewFilesystemStore(t.TempDir())
		},
		"badger": func(t *testing.T) Store {
			s, err := NewBadgerStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}

	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			s := setup(t)
			defer s.Close()

			ctx := context.Background()
			key := testKey(0)
			payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}

			_, found, err := s.Fetch(ctx, key)
			require.NoError(t, err)
			assert.False(t, found, "fetch before put must miss")

			require.NoError(t, s.Put(ctx, key, payload))

			got, found, err := s.Fetch(ctx, key)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, payload, got)

			// Overwrite is an upsert.
			require.NoError(t, s.Put(ctx, key, []byte{1}))
			got, _, err = s.Fetch(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, []byte{1}, got)

			// A different key stays independent.
			_, found, err = s.Fetch(ctx, testKey(100))
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}
