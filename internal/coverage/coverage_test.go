package coverage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresmaps/mars_relief/internal/dem"
)

const footprintJSON = `{
	"type": "FeatureCollection",
	"features": [{
		"type": "Feature",
		"properties": {},
		"geometry": {
			"type": "Polygon",
			"coordinates": [[[0, 0], [100, 0], [100, 50], [0, 50], [0, 0]]]
		}
	}]
}`

func TestFootprintContains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footprint.geojson")
	require.NoError(t, os.WriteFile(path, []byte(footprintJSON), 0644))

	fp, err := Load(path)
	require.NoError(t, err)

	assert.True(t, fp.Contains(dem.BBox{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20}))
	assert.False(t, fp.Contains(dem.BBox{MinX: 90, MinY: 40, MaxX: 110, MaxY: 60}), "partially outside")
	assert.False(t, fp.Contains(dem.BBox{MinX: 200, MinY: 200, MaxX: 210, MaxY: 210}))
}

func TestEmptyFootprintAcceptsAll(t *testing.T) {
	fp, err := Load("")
	require.NoError(t, err)
	assert.True(t, fp.Contains(dem.BBox{MinX: -1e6, MinY: -1e6, MaxX: 1e6, MaxY: 1e6}))
}
