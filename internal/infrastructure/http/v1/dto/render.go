// Package dto defines the request and response bodies of the v1 API.
package dto

import (
	"github.com/aresmaps/mars_relief/internal/dem"
	"github.com/aresmaps/mars_relief/internal/render"
)

type BBox struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x" validate:"gtfield=MinX"`
	MaxY float64 `json:"max_y" validate:"gtfield=MinY"`
}

// RenderRequest asks for one shaded relief image of a DEM tile. Params
// left at their zero values fall back to server defaults.
type RenderRequest struct {
	BBox       BBox          `json:"bbox" validate:"required"`
	Resolution float64       `json:"resolution" validate:"required,gt=0"`
	Version    string        `json:"version"`
	Params     render.Params `json:"params"`
}

func (r RenderRequest) Key() dem.Key {
	return dem.Key{
		BBox: dem.BBox{
			MinX: r.BBox.MinX,
			MinY: r.BBox.MinY,
			MaxX: r.BBox.MaxX,
			MaxY: r.BBox.MaxY,
		},
		Resolution: r.Resolution,
		Version:    r.Version,
	}
}

// InvalidateRequest drops all cached renders of one tile, typically
// after its source DEM was re-ingested.
type InvalidateRequest struct {
	BBox       BBox    `json:"bbox" validate:"required"`
	Resolution float64 `json:"resolution" validate:"required,gt=0"`
	Version    string  `json:"version"`
}

func (r InvalidateRequest) Key() dem.Key {
	return dem.Key{
		BBox: dem.BBox{
			MinX: r.BBox.MinX,
			MinY: r.BBox.MinY,
			MaxX: r.BBox.MaxX,
			MaxY: r.BBox.MaxY,
		},
		Resolution: r.Resolution,
		Version:    r.Version,
	}
}

type InvalidateResponse struct {
	Removed int `json:"removed"`
}
