package dem

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is returned when tile payload bytes cannot be decoded
	// into a usable elevation grid.
	ErrCorrupt = errors.New("dem: corrupt tile data")
)

// BBox is an axis-aligned bounding box in dataset coordinates (meters).
type BBox struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func (b BBox) Valid() bool {
	return b.MaxX > b.MinX && b.MaxY > b.MinY
}

func (b BBox) Width() float64  { return b.MaxX - b.MinX }
func (b BBox) Height() float64 { return b.MaxY - b.MinY }

// Key identifies a DEM tile: bounding box, ground resolution
// (meters per sample) and source dataset version.
//
// Keys are compared through their canonical string form, which quantizes
// the floating point fields so that equal requests always map to the same
// tile regardless of how the caller produced the numbers.
type Key struct {
	BBox       BBox
	Resolution float64
	Version    string
}

// String returns the canonical form of the key.
func (k Key) String() string {
	v := k.Version
	if v == "" {
		v = "1"
	}
	return fmt.Sprintf("v%s/%.4f,%.4f,%.4f,%.4f@%.4f",
		v, k.BBox.MinX, k.BBox.MinY, k.BBox.MaxX, k.BBox.MaxY, k.Resolution)
}

// Tile is an immutable elevation grid. Elev holds Width*Height samples in
// row-major order (row 0 is the northernmost). Valid marks samples that
// carry real data; no-data cells must not be fed into shading as-is.
type Tile struct {
	Key    Key
	Width  int
	Height int
	Elev   []float32
	Valid  []bool
}

// At returns the elevation at (x, y) and whether the sample is valid.
func (t *Tile) At(x, y int) (float32, bool) {
	i := y*t.Width + x
	return t.Elev[i], t.Valid[i]
}

// ValidCount returns the number of samples carrying real data.
func (t *Tile) ValidCount() int {
	n := 0
	for _, ok := range t.Valid {
		if ok {
			n++
		}
	}
	return n
}
