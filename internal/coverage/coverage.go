// Package coverage answers whether a bounding box falls inside the DEM
// dataset footprint. The footprint ships as a GeoJSON FeatureCollection
// (or bare geometry) of polygons in dataset coordinates.
package coverage

import (
	"fmt"
	"os"

	geojson "github.com/paulmach/go.geojson"

	"github.com/aresmaps/mars_relief/internal/dem"
)

type Footprint struct {
	boxes []dem.BBox
}

// Load reads a footprint file. An empty path yields a footprint that
// accepts every bbox, for deployments without coverage metadata.
func Load(path string) (*Footprint, error) {
	if path == "" {
		return &Footprint{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("coverage: read footprint: %w", err)
	}

	fp := &Footprint{}

	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil {
		for _, f := range fc.Features {
			fp.addGeometry(f.Geometry)
		}
		return fp, nil
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("coverage: parse footprint: %w", err)
	}
	fp.addGeometry(g)

	return fp, nil
}

// addGeometry records the bounding box of each polygon ring. Coverage
// checks are bbox-level; exact point-in-polygon is not needed because
// requests are themselves axis-aligned boxes.
func (fp *Footprint) addGeometry(g *geojson.Geometry) {
	if g == nil {
		return
	}
	switch {
	case g.IsPolygon():
		fp.addRing(g.Polygon)
	case g.IsMultiPolygon():
		for _, p := range g.MultiPolygon {
			fp.addRing(p)
		}
	case g.IsCollection():
		for _, sub := range g.Geometries {
			fp.addGeometry(sub)
		}
	}
}

func (fp *Footprint) addRing(rings [][][]float64) {
	if len(rings) == 0 || len(rings[0]) == 0 {
		return
	}
	// Outer ring only; holes in the footprint are treated as covered.
	box := dem.BBox{MinX: rings[0][0][0], MinY: rings[0][0][1], MaxX: rings[0][0][0], MaxY: rings[0][0][1]}
	for _, pt := range rings[0] {
		if pt[0] < box.MinX {
			box.MinX = pt[0]
		}
		if pt[0] > box.MaxX {
			box.MaxX = pt[0]
		}
		if pt[1] < box.MinY {
			box.MinY = pt[1]
		}
		if pt[1] > box.MaxY {
			box.MaxY = pt[1]
		}
	}
	fp.boxes = append(fp.boxes, box)
}

// Contains reports whether the bbox lies fully inside any footprint box.
func (fp *Footprint) Contains(b dem.BBox) bool {
	if len(fp.boxes) == 0 {
		return true
	}
	for _, fb := range fp.boxes {
		if b.MinX >= fb.MinX && b.MaxX <= fb.MaxX && b.MinY >= fb.MinY && b.MaxY <= fb.MaxY {
			return true
		}
	}
	return false
}
