// Package backend holds the rendering backend registry.
//
// Backends register themselves from init() functions; importing a
// backend package for side effects makes it selectable. This keeps GPU
// driver dependencies out of binaries that only need the CPU path.
package backend

import (
	"errors"
	"sync"

	"github.com/aresmaps/mars_relief/internal/render"
	"github.com/aresmaps/mars_relief/pkg/logger"
)

var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when contexts are requested before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Backend creates render contexts. A backend owns process-wide driver
// state (GPU instance, device); contexts own per-job state.
type Backend interface {
	// Name returns the backend identifier (e.g. "software", "gpu").
	Name() string

	// Init sets up driver resources. Must be called before NewContext.
	Init() error

	// Close releases all backend resources.
	Close()

	// NewContext creates a fresh render context. Called by the pool at
	// startup and when replacing an unhealthy context, never per job.
	NewContext() (render.Context, error)
}

// Factory creates a backend instance.
type Factory func(l logger.Logger) Backend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for default selection (first available wins).
	priority = []string{"gpu", "software"}
)

// Register registers a backend factory under a name. Typically called
// from init() in backend packages.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Get returns a backend instance by name, or an error if the name is
// unknown (e.g. the backend package was not imported into this binary).
func Get(name string, l logger.Logger) (Backend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := backends[name]
	if !ok {
		return nil, ErrBackendNotAvailable
	}
	return factory(l), nil
}

// Default returns the best available backend by priority.
func Default(l logger.Logger) (Backend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range priority {
		if factory, ok := backends[name]; ok {
			return factory(l), nil
		}
	}
	for _, factory := range backends {
		return factory(l), nil
	}
	return nil, ErrBackendNotAvailable
}
