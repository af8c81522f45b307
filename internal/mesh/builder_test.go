package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresmaps/mars_relief/internal/dem"
)

func gridTile(w, h int, elev func(x, y int) (float32, bool)) *dem.Tile {
	t := &dem.Tile{
		Key: dem.Key{
			BBox:       dem.BBox{MinX: 10, MinY: 10, MaxX: 10 + float64(w-1), MaxY: 10 + float64(h-1)},
			Resolution: 1.0,
			Version:    "1",
		},
		Width:  w,
		Height: h,
		Elev:   make([]float32, w*h),
		Valid:  make([]bool, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v, ok := elev(x, y)
			t.Elev[y*w+x] = v
			t.Valid[y*w+x] = ok
		}
	}
	return t
}

func TestBuildFullGrid(t *testing.T) {
	tile := gridTile(11, 11, func(x, y int) (float32, bool) {
		return float32(x + y), true
	})

	m, err := Build(tile, 1)
	require.NoError(t, err)

	assert.Equal(t, 11, m.Cols)
	assert.Equal(t, 11, m.Rows)
	assert.Len(t, m.Vertices, 121)
	assert.Len(t, m.Indices, 10*10*6, "two triangles per cell")
	assert.Equal(t, float32(0), m.MinElev)
	assert.Equal(t, float32(20), m.MaxElev)
}

func TestBuildStrideHalvesDensity(t *testing.T) {
	tile := gridTile(11, 11, func(x, y int) (float32, bool) {
		return float32(x), true
	})

	m, err := Build(tile, 2)
	require.NoError(t, err)

	assert.Equal(t, 6, m.Cols, "stride 2 halves vertex density")
	assert.Equal(t, 6, m.Rows)
}

func TestBuildFlatTileNormalsPointUp(t *testing.T) {
	tile := gridTile(5, 5, func(x, y int) (float32, bool) {
		return 42, true
	})

	m, err := Build(tile, 1)
	require.NoError(t, err)

	for _, v := range m.Vertices {
		assert.InDelta(t, 0, float64(v.Normal.X), 1e-5)
		assert.InDelta(t, 0, float64(v.Normal.Y), 1e-5)
		assert.InDelta(t, 1, float64(v.Normal.Z), 1e-5)
	}
}

func TestBuildFillsNoData(t *testing.T) {
	tile := gridTile(5, 5, func(x, y int) (float32, bool) {
		if x == 2 && y == 2 {
			return 0, false
		}
		return 7, true
	})

	m, err := Build(tile, 1)
	require.NoError(t, err)

	// The filled hole takes its nearest neighbor's elevation.
	assert.Equal(t, float32(7), m.Vertices[2*5+2].Position.Z)
}

func TestBuildAllNoDataIsDegenerate(t *testing.T) {
	tile := gridTile(8, 8, func(x, y int) (float32, bool) {
		return 0, false
	})

	_, err := Build(tile, 1)
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestBuildTinyGridIsDegenerate(t *testing.T) {
	tile := gridTile(3, 3, func(x, y int) (float32, bool) {
		return 1, true
	})

	// Stride 4 collapses 3x3 samples below 2x2 vertices.
	_, err := Build(tile, 4)
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestStrideFor(t *testing.T) {
	assert.Equal(t, 1, StrideFor(1.0, 1.0))
	assert.Equal(t, 2, StrideFor(1.0, 2.0))
	assert.Equal(t, 4, StrideFor(0.5, 2.0))
	assert.Equal(t, 1, StrideFor(2.0, 1.0), "upsampling clamps to 1")
	assert.Equal(t, 1, StrideFor(0, 0), "bad input clamps to 1")
}

func TestSnapStride(t *testing.T) {
	allowed := []int{1, 2, 4, 8}
	assert.Equal(t, 1, SnapStride(1, allowed))
	assert.Equal(t, 2, SnapStride(3, allowed))
	assert.Equal(t, 8, SnapStride(100, allowed))
	assert.Equal(t, 5, SnapStride(5, nil))
}

func TestBuildVertexPositions(t *testing.T) {
	tile := gridTile(3, 3, func(x, y int) (float32, bool) {
		return 0, true
	})

	m, err := Build(tile, 1)
	require.NoError(t, err)

	// Row 0 is the north edge (max Y).
	assert.Equal(t, float32(10), m.Vertices[0].Position.X)
	assert.Equal(t, float32(12), m.Vertices[0].Position.Y)
	assert.Equal(t, float32(12), m.Vertices[2].Position.X)
	assert.Equal(t, float32(10), m.Vertices[8].Position.Y)
}
