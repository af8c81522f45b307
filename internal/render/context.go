package render

import (
	"errors"

	"github.com/aresmaps/mars_relief/internal/mesh"
)

// ErrRenderFailed is returned for any draw or readback failure. The
// failing context must be treated as unhealthy and replaced; the error
// itself is retriable on a fresh context.
var ErrRenderFailed = errors.New("render: draw failed")

// Frame is a CPU-side pixel buffer read back from a context,
// tightly packed NRGBA.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// Context is a rendering context owned by the pool. Exactly one job may
// use a context at a time; the pool enforces exclusivity.
//
// The Upload/Draw/Detach cycle must leave the context stateless: Detach
// drops all geometry so contexts do not accumulate memory across jobs.
type Context interface {
	// Upload stages mesh geometry into the context.
	Upload(m *mesh.Mesh) error

	// Draw renders the staged geometry and reads the result back.
	Draw(p Params) (*Frame, error)

	// Detach releases staged geometry. Safe to call without an Upload.
	Detach()

	// Healthy reports whether the context can serve further jobs.
	// A context that failed a draw stays unhealthy until destroyed.
	Healthy() bool

	// Destroy releases the context's resources. The context must not be
	// used afterwards.
	Destroy()
}
