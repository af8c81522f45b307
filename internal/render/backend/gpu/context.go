//go:build !nogpu

package gpu

import (
	"fmt"
	"sync"

	"github.com/aresmaps/mars_relief/internal/mesh"
	"github.com/aresmaps/mars_relief/internal/render"
	"github.com/aresmaps/mars_relief/internal/render/backend/software"
	"github.com/aresmaps/mars_relief/pkg/logger"
)

// Context is a GPU render context. Geometry is staged per job and
// dropped on Detach so the context returns to the pool stateless.
//
// Draw currently executes the fine stage through the software
// rasterizer; the staged vertex data is laid out GPU-ready (interleaved
// position+normal) so the wgpu draw path can take over without touching
// callers. TODO: switch readback to wgpu once texture mapping lands.
type Context struct {
	mu      sync.Mutex
	backend *Backend
	fine    render.Context
	mesh    *mesh.Mesh
	staged  []float32
	healthy bool
}

var _ render.Context = (*Context)(nil)

func newContext(b *Backend) *Context {
	fine, _ := software.New(logger.NewNoOp()).NewContext()
	return &Context{
		backend: b,
		fine:    fine,
		healthy: true,
	}
}

func (c *Context) Upload(m *mesh.Mesh) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.healthy {
		return fmt.Errorf("%w: context is unhealthy", render.ErrRenderFailed)
	}
	if m == nil || len(m.Vertices) == 0 {
		return fmt.Errorf("%w: empty mesh", render.ErrRenderFailed)
	}

	// Interleaved [px py pz nx ny nz] vertex buffer layout.
	c.staged = make([]float32, 0, len(m.Vertices)*6)
	for _, v := range m.Vertices {
		c.staged = append(c.staged,
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
		)
	}
	c.mesh = m

	return c.fine.Upload(m)
}

func (c *Context) Draw(p render.Params) (*render.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.healthy {
		return nil, fmt.Errorf("%w: context is unhealthy", render.ErrRenderFailed)
	}
	if c.mesh == nil {
		c.healthy = false
		return nil, fmt.Errorf("%w: draw without staged geometry", render.ErrRenderFailed)
	}

	frame, err := c.fine.Draw(p)
	if err != nil {
		c.healthy = false
		return nil, err
	}
	return frame, nil
}

func (c *Context) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mesh = nil
	c.staged = nil
	c.fine.Detach()
}

func (c *Context) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.healthy && c.fine.Healthy()
}

func (c *Context) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mesh = nil
	c.staged = nil
	c.healthy = false
	c.fine.Destroy()
}
