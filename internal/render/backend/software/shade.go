package software

import (
	"github.com/chewxy/math32"

	"github.com/aresmaps/mars_relief/internal/mesh"
	"github.com/aresmaps/mars_relief/internal/render"
)

type shader struct {
	mode    render.ShadeMode
	ramp    ramp
	light   mesh.Vec3
	exag    float32
	minElev float32
	// invRange is 1/(max-min), 0 for flat tiles.
	invRange float32
}

func newShader(m *mesh.Mesh, p render.Params) *shader {
	s := &shader{
		mode:    p.Mode,
		ramp:    rampByName(p.Ramp),
		exag:    p.Exaggeration,
		minElev: m.MinElev,
	}

	if r := m.MaxElev - m.MinElev; r > 0 {
		s.invRange = 1 / r
	}

	az := p.LightAzimuth * math32.Pi / 180
	alt := p.LightAltitude * math32.Pi / 180
	s.light = mesh.Vec3{
		X: math32.Sin(az) * math32.Cos(alt),
		Y: math32.Cos(az) * math32.Cos(alt),
		Z: math32.Sin(alt),
	}

	return s
}

func (s *shader) shade(n mesh.Vec3, elev float32) (uint8, uint8, uint8) {
	// Vertical exaggeration steepens the shaded surface: a surface
	// scaled by k has its normal's horizontal components scaled by k.
	if s.exag != 1 {
		n.X *= s.exag
		n.Y *= s.exag
	}
	n = n.Normalized()

	switch s.mode {
	case render.ShadeRamp:
		t := (elev - s.minElev) * s.invRange
		r, g, b := s.ramp.at(t)
		return r, g, b

	case render.ShadeSlope:
		// 0 = flat, 1 = vertical. Bright means steep.
		slope := math32.Acos(clamp01(n.Z)) / (math32.Pi / 2)
		v := uint8(clamp01(slope) * 255)
		return v, v, v

	case render.ShadeNormal:
		return uint8((n.X*0.5 + 0.5) * 255),
			uint8((n.Y*0.5 + 0.5) * 255),
			uint8((n.Z*0.5 + 0.5) * 255)

	default: // hillshade
		lambert := clamp01(n.Dot(s.light))
		// Lift the floor a little so shadowed slopes keep detail.
		v := uint8((0.05 + 0.95*lambert) * 255)
		return v, v, v
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
