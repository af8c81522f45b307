package render

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/aresmaps/mars_relief/internal/dem"
)

// ShadeMode selects the shading model applied to the terrain surface.
type ShadeMode string

const (
	// ShadeHillshade lights the surface from a fixed direction.
	ShadeHillshade ShadeMode = "hillshade"
	// ShadeRamp colors the surface by elevation through a named ramp.
	ShadeRamp ShadeMode = "ramp"
	// ShadeSlope maps surface steepness to brightness.
	ShadeSlope ShadeMode = "slope"
	// ShadeNormal encodes surface normals as RGB, for relighting clients.
	ShadeNormal ShadeMode = "normal"
)

// Params describe one render product. The zero value is not usable;
// run it through Canonical first, which also fills defaults.
type Params struct {
	Mode ShadeMode `json:"mode"`
	Ramp string    `json:"ramp"`

	// Camera orientation. Azimuth in degrees clockwise from north,
	// altitude in degrees above the horizon; 90 is a straight-down view.
	CameraAzimuth  float32 `json:"camera_azimuth"`
	CameraAltitude float32 `json:"camera_altitude"`

	// Light direction for hillshading, same convention as the camera.
	LightAzimuth  float32 `json:"light_azimuth"`
	LightAltitude float32 `json:"light_altitude"`

	// Exaggeration scales elevation before projection.
	Exaggeration float32 `json:"exaggeration"`

	// TargetSpacing is the requested ground distance between mesh
	// vertices in meters; the mesh builder derives the LOD stride from it.
	TargetSpacing float64 `json:"target_spacing"`

	Width  int `json:"width"`
	Height int `json:"height"`
}

// Canonical returns params with defaults filled, values clamped and
// floats rounded, so that equivalent requests map onto one cache key.
func (p Params) Canonical() Params {
	switch p.Mode {
	case ShadeHillshade, ShadeRamp, ShadeSlope, ShadeNormal:
	default:
		p.Mode = ShadeHillshade
	}
	if p.Ramp == "" {
		p.Ramp = "jet"
	}
	if p.CameraAltitude <= 0 || p.CameraAltitude > 90 {
		p.CameraAltitude = 90
	}
	if p.LightAltitude <= 0 || p.LightAltitude > 90 {
		p.LightAltitude = 45
	}
	if p.LightAzimuth == 0 {
		p.LightAzimuth = 315
	}
	if p.Exaggeration <= 0 {
		p.Exaggeration = 1
	}
	if p.Width <= 0 {
		p.Width = 512
	}
	if p.Height <= 0 {
		p.Height = 512
	}
	if p.TargetSpacing < 0 {
		p.TargetSpacing = 0
	}

	p.CameraAzimuth = wrapDegrees(round2(p.CameraAzimuth))
	p.CameraAltitude = round2(p.CameraAltitude)
	p.LightAzimuth = wrapDegrees(round2(p.LightAzimuth))
	p.LightAltitude = round2(p.LightAltitude)
	p.Exaggeration = round2(p.Exaggeration)
	p.TargetSpacing = float64(round2(float32(p.TargetSpacing)))

	return p
}

// key renders the canonical params as a stable string. Field order is
// fixed; never reorder without versioning the cache.
func (p Params) key() string {
	return fmt.Sprintf("m=%s&r=%s&ca=%.2f&cl=%.2f&la=%.2f&ll=%.2f&ex=%.2f&ts=%.2f&w=%d&h=%d",
		p.Mode, p.Ramp,
		p.CameraAzimuth, p.CameraAltitude,
		p.LightAzimuth, p.LightAltitude,
		p.Exaggeration, p.TargetSpacing,
		p.Width, p.Height)
}

// JobKey identifies a render job for caching: the tile identity plus the
// canonical parameter string. The tile part is kept separate so that
// whole-tile invalidation can match entries without parsing.
type JobKey struct {
	TileKey   string
	ParamsKey string
}

func NewJobKey(tile dem.Key, p Params) JobKey {
	return JobKey{
		TileKey:   tile.String(),
		ParamsKey: p.Canonical().key(),
	}
}

func (k JobKey) String() string {
	return k.TileKey + "|" + k.ParamsKey
}

func round2(v float32) float32 {
	return math32.Floor(v*100+0.5) / 100
}

func wrapDegrees(v float32) float32 {
	v = math32.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}
