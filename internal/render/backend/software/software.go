// Package software is the CPU rendering backend. It rasterizes terrain
// meshes with an orthographic camera and a z-buffer, entirely in Go.
//
// It doubles as the fine-shading stage of the GPU backend and as the
// deterministic backend for tests: identical inputs produce identical
// pixels on every platform.
package software

import (
	"fmt"
	"sync"

	"github.com/aresmaps/mars_relief/internal/mesh"
	"github.com/aresmaps/mars_relief/internal/render"
	"github.com/aresmaps/mars_relief/internal/render/backend"
	"github.com/aresmaps/mars_relief/pkg/logger"
)

// BackendSoftware is the registry identifier.
const BackendSoftware = "software"

func init() {
	backend.Register(BackendSoftware, func(l logger.Logger) backend.Backend {
		return New(l)
	})
}

type Backend struct {
	logger logger.Logger
}

var _ backend.Backend = (*Backend)(nil)

func New(l logger.Logger) *Backend {
	return &Backend{logger: l}
}

func (b *Backend) Name() string { return BackendSoftware }

func (b *Backend) Init() error {
	b.logger.Debug("software backend initialized")
	return nil
}

func (b *Backend) Close() {}

func (b *Backend) NewContext() (render.Context, error) {
	return &Context{healthy: true}, nil
}

// Context is a software render context. The pool guarantees exclusive
// use, the mutex is a cheap guard against misuse.
type Context struct {
	mu      sync.Mutex
	mesh    *mesh.Mesh
	healthy bool
}

var _ render.Context = (*Context)(nil)

func (c *Context) Upload(m *mesh.Mesh) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.healthy {
		return fmt.Errorf("%w: context is unhealthy", render.ErrRenderFailed)
	}
	if m == nil || len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return fmt.Errorf("%w: empty mesh", render.ErrRenderFailed)
	}
	c.mesh = m
	return nil
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

	p = p.Canonical()
	frame := rasterize(c.mesh, p)
	return frame, nil
}

func (c *Context) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mesh = nil
}

func (c *Context) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.healthy
}

func (c *Context) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mesh = nil
	c.healthy = false
}
