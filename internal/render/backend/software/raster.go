package software

import (
	"github.com/chewxy/math32"

	"github.com/aresmaps/mars_relief/internal/mesh"
	"github.com/aresmaps/mars_relief/internal/render"
)

// screenVertex is a mesh vertex projected into pixel space. Depth grows
// away from the camera; elev keeps the unexaggerated sample for ramps.
type screenVertex struct {
	x, y, depth float32
	normal      mesh.Vec3
	elev        float32
}

// rasterize draws the mesh with an orthographic camera fitted to the
// mesh bounds, z-buffered, one shading model per Params.Mode.
func rasterize(m *mesh.Mesh, p render.Params) *render.Frame {
	w, h := p.Width, p.Height

	frame := &render.Frame{
		Width:  w,
		Height: h,
		Pix:    make([]uint8, w*h*4),
	}

	zbuf := make([]float32, w*h)
	for i := range zbuf {
		zbuf[i] = math32.MaxFloat32
	}

	cam := newCamera(p)
	sh := newShader(m, p)

	// Project all vertices into eye space, then fit the ortho frustum.
	proj := make([]screenVertex, len(m.Vertices))
	minU, maxU := float32(math32.MaxFloat32), float32(-math32.MaxFloat32)
	minV, maxV := float32(math32.MaxFloat32), float32(-math32.MaxFloat32)
	for i, v := range m.Vertices {
		pos := v.Position
		pos.Z = (pos.Z - m.MinElev) * p.Exaggeration

		u := pos.Dot(cam.right)
		vv := pos.Dot(cam.up)
		proj[i] = screenVertex{
			x:      u,
			y:      vv,
			depth:  pos.Dot(cam.forward),
			normal: v.Normal,
			elev:   v.Position.Z,
		}
		if u < minU {
			minU = u
		}
		if u > maxU {
			maxU = u
		}
		if vv < minV {
			minV = vv
		}
		if vv > maxV {
			maxV = vv
		}
	}

	// Uniform scale with a small margin, centered.
	const margin = 0.95
	spanU, spanV := maxU-minU, maxV-minV
	if spanU <= 0 {
		spanU = 1
	}
	if spanV <= 0 {
		spanV = 1
	}
	scale := math32.Min(float32(w)/spanU, float32(h)/spanV) * margin
	cx, cy := (minU+maxU)/2, (minV+maxV)/2

	for i := range proj {
		proj[i].x = (proj[i].x-cx)*scale + float32(w)/2
		// +v is up in eye space, +y is down in pixel space.
		proj[i].y = (cy-proj[i].y)*scale + float32(h)/2
	}

	for i := 0; i < len(m.Indices); i += 3 {
		fillTriangle(frame, zbuf,
			proj[m.Indices[i]], proj[m.Indices[i+1]], proj[m.Indices[i+2]], sh)
	}

	return frame
}

type camera struct {
	forward mesh.Vec3 // from the camera into the scene
	right   mesh.Vec3
	up      mesh.Vec3
}

func newCamera(p render.Params) camera {
	az := p.CameraAzimuth * math32.Pi / 180
	alt := p.CameraAltitude * math32.Pi / 180

	forward := mesh.Vec3{
		X: math32.Sin(az) * math32.Cos(alt),
		Y: math32.Cos(az) * math32.Cos(alt),
		Z: -math32.Sin(alt),
	}

	worldUp := mesh.Vec3{Z: 1}
	right := forward.Cross(worldUp).Normalized()
	if right == (mesh.Vec3{}) {
		// Straight-down view: keep north up on screen.
		right = mesh.Vec3{X: 1}
	}
	up := right.Cross(forward).Normalized()

	return camera{forward: forward, right: right, up: up}
}

// fillTriangle rasterizes one screen-space triangle with edge functions,
// interpolating depth, normal and elevation barycentrically.
func fillTriangle(f *render.Frame, zbuf []float32, a, b, c screenVertex, sh *shader) {
	area := edge(a, b, c)
	if area == 0 {
		return
	}
	// Accept both windings; orientation flips with camera azimuth.
	inv := 1 / area

	minX := int(math32.Floor(min3(a.x, b.x, c.x)))
	maxX := int(math32.Ceil(max3(a.x, b.x, c.x)))
	minY := int(math32.Floor(min3(a.y, b.y, c.y)))
	maxY := int(math32.Ceil(max3(a.y, b.y, c.y)))

	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX > f.Width-1 {
		maxX = f.Width - 1
	}
	if maxY > f.Height-1 {
		maxY = f.Height - 1
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px := screenVertex{x: float32(x) + 0.5, y: float32(y) + 0.5}

			w0 := edge(b, c, px) * inv
			w1 := edge(c, a, px) * inv
			w2 := edge(a, b, px) * inv
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			depth := w0*a.depth + w1*b.depth + w2*c.depth
			idx := y*f.Width + x
			if depth >= zbuf[idx] {
				continue
			}
			zbuf[idx] = depth

			n := mesh.Vec3{
				X: w0*a.normal.X + w1*b.normal.X + w2*c.normal.X,
				Y: w0*a.normal.Y + w1*b.normal.Y + w2*c.normal.Y,
				Z: w0*a.normal.Z + w1*b.normal.Z + w2*c.normal.Z,
			}
			elev := w0*a.elev + w1*b.elev + w2*c.elev

			r, g, bl := sh.shade(n, elev)
			f.Pix[idx*4] = r
			f.Pix[idx*4+1] = g
			f.Pix[idx*4+2] = bl
			f.Pix[idx*4+3] = 0xFF
		}
	}
}

// edge is the signed parallelogram area of (a, b, p).
func edge(a, b, p screenVertex) float32 {
	return (b.x-a.x)*(p.y-a.y) - (b.y-a.y)*(p.x-a.x)
}

func min3(a, b, c float32) float32 {
	return math32.Min(a, math32.Min(b, c))
}

func max3(a, b, c float32) float32 {
	return math32.Max(a, math32.Max(b, c))
}
