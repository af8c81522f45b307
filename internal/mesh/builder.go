// Package mesh triangulates DEM elevation grids into renderable meshes.
//
// Everything here is pure CPU work with no rendering dependency, so LOD
// and no-data handling stay independently testable.
package mesh

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/chewxy/math32"

	"github.com/aresmaps/mars_relief/internal/dem"
)

// ErrDegenerate is returned when the subsampled grid has fewer than 2x2
// usable vertices, e.g. for a fully no-data tile. Not retriable.
var ErrDegenerate = errors.New("mesh: degenerate grid")

// Vertex couples a position with its averaged surface normal.
type Vertex struct {
	Position Vec3
	Normal   Vec3
}

// Mesh is a regular-grid triangulation of an elevation tile. It is owned
// by the job that built it and must not be mutated after Build returns.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Cols     int
	Rows     int
	MinElev  float32
	MaxElev  float32
}

// StrideFor computes the grid stride that degrades the source sample
// spacing to the requested target spacing (both meters per sample).
// The result is clamped to at least 1 so output never collapses.
func StrideFor(sourceSpacing, targetSpacing float64) int {
	if sourceSpacing <= 0 || targetSpacing <= 0 {
		return 1
	}
	s := int(math32.Ceil(float32(targetSpacing / sourceSpacing)))
	if s < 1 {
		s = 1
	}
	return s
}

// SnapStride picks the coarsest allowed stride not exceeding the raw
// stride. The allowed table comes from configuration, ascending.
func SnapStride(raw int, allowed []int) int {
	if len(allowed) == 0 {
		return raw
	}
	best := allowed[0]
	for _, s := range allowed {
		if s <= raw && s > best {
			best = s
		}
	}
	if best < 1 {
		best = 1
	}
	return best
}

// Build triangulates a tile at the given stride. No-data cells are filled
// from their nearest valid neighbor before triangulation; two triangles
// are emitted per grid cell.
func Build(t *dem.Tile, stride int) (*Mesh, error) {
	if stride < 1 {
		stride = 1
	}

	cols := (t.Width-1)/stride + 1
	rows := (t.Height-1)/stride + 1
	if cols < 2 || rows < 2 {
		return nil, fmt.Errorf("%w: %dx%d vertices at stride %d", ErrDegenerate, cols, rows, stride)
	}
	if t.ValidCount() == 0 {
		return nil, fmt.Errorf("%w: tile has no valid samples", ErrDegenerate)
	}

	filled := fillNoData(t)

	m := &Mesh{
		Vertices: make([]Vertex, cols*rows),
		Cols:     cols,
		Rows:     rows,
		MinElev:  math32.MaxFloat32,
		MaxElev:  -math32.MaxFloat32,
	}

	res := float32(t.Key.Resolution)
	minX := float32(t.Key.BBox.MinX)
	maxY := float32(t.Key.BBox.MaxY)

	// Vertex extraction parallelizes cleanly across rows.
	parallelRows(rows, func(r0, r1 int) {
		for r := r0; r < r1; r++ {
			sy := r * stride
			if sy > t.Height-1 {
				sy = t.Height - 1
			}
			for c := 0; c < cols; c++ {
				sx := c * stride
				if sx > t.Width-1 {
					sx = t.Width - 1
				}
				z := filled[sy*t.Width+sx]
				m.Vertices[r*cols+c].Position = Vec3{
					X: minX + float32(sx)*res,
					Y: maxY - float32(sy)*res,
					Z: z,
				}
			}
		}
	})

	for _, v := range m.Vertices {
		if v.Position.Z < m.MinElev {
			m.MinElev = v.Position.Z
		}
		if v.Position.Z > m.MaxElev {
			m.MaxElev = v.Position.Z
		}
	}

	m.Indices = make([]uint32, 0, (cols-1)*(rows-1)*6)
	for r := 0; r < rows-1; r++ {
		for c := 0; c < cols-1; c++ {
			i := uint32(r*cols + c)
			j := i + uint32(cols)
			m.Indices = append(m.Indices, i, j, i+1, i+1, j, j+1)
		}
	}

	computeNormals(m)

	return m, nil
}

// computeNormals averages adjacent face normals into each vertex, then
// normalizes. Accumulation is sequential (scatter writes), normalization
// runs across rows.
func computeNormals(m *Mesh) {
	for i := 0; i < len(m.Indices); i += 3 {
		a := m.Vertices[m.Indices[i]].Position
		b := m.Vertices[m.Indices[i+1]].Position
		c := m.Vertices[m.Indices[i+2]].Position
		n := b.Sub(a).Cross(c.Sub(a))
		m.Vertices[m.Indices[i]].Normal = m.Vertices[m.Indices[i]].Normal.Add(n)
		m.Vertices[m.Indices[i+1]].Normal = m.Vertices[m.Indices[i+1]].Normal.Add(n)
		m.Vertices[m.Indices[i+2]].Normal = m.Vertices[m.Indices[i+2]].Normal.Add(n)
	}

	parallelRows(m.Rows, func(r0, r1 int) {
		for i := r0 * m.Cols; i < r1*m.Cols; i++ {
			n := m.Vertices[i].Normal.Normalized()
			if n == (Vec3{}) {
				n = Vec3{0, 0, 1}
			}
			// Normals face up; winding flips with the y-down grid order.
			if n.Z < 0 {
				n = n.Scale(-1)
			}
			m.Vertices[i].Normal = n
		}
	})
}

// fillNoData replaces masked samples with their nearest valid neighbor
// using a multi-source breadth-first flood from all valid cells.
func fillNoData(t *dem.Tile) []float32 {
	filled := make([]float32, len(t.Elev))
	copy(filled, t.Elev)

	known := make([]bool, len(t.Valid))
	copy(known, t.Valid)

	queue := make([]int32, 0, len(t.Elev))
	for i, ok := range t.Valid {
		if ok {
			queue = append(queue, int32(i))
		}
	}

	w, h := t.Width, t.Height
	for len(queue) > 0 {
		i := int(queue[0])
		queue = queue[1:]
		x, y := i%w, i/w

		for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			j := ny*w + nx
			if known[j] {
				continue
			}
			filled[j] = filled[i]
			known[j] = true
			queue = append(queue, int32(j))
		}
	}

	return filled
}

// parallelRows splits [0, rows) into contiguous chunks, one per worker.
func parallelRows(rows int, fn func(r0, r1 int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > rows {
		workers = rows
	}
	if workers <= 1 {
		fn(0, rows)
		return
	}

	chunk := (rows + workers - 1) / workers
	var wg sync.WaitGroup
	for r := 0; r < rows; r += chunk {
		end := r + chunk
		if end > rows {
			end = rows
		}
		wg.Add(1)
		go func(r0, r1 int) {
			defer wg.Done()
			fn(r0, r1)
		}(r, end)
	}
	wg.Wait()
}
