//go:build !nogpu

// Package gpu is the wgpu-backed rendering backend.
//
// The backend owns the GPU instance, adapter, device and queue. Context
// creation and destruction happen only at pool startup/shutdown and on
// unhealthy-context replacement, never on the hot path, so driver churn
// stays bounded. The fine shading stage still runs on the CPU rasterizer
// until wgpu texture readback is complete; geometry staging and device
// lifecycle already go through wgpu.
//
// Import for side effects to make the backend selectable:
//
//	import _ "github.com/aresmaps/mars_relief/internal/render/backend/gpu"
package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"

	"github.com/aresmaps/mars_relief/internal/render"
	"github.com/aresmaps/mars_relief/internal/render/backend"
	"github.com/aresmaps/mars_relief/pkg/logger"
)

// BackendGPU is the registry identifier.
const BackendGPU = "gpu"

func init() {
	backend.Register(BackendGPU, func(l logger.Logger) backend.Backend {
		return NewBackend(l)
	})
}

type Backend struct {
	mu sync.RWMutex

	instance *core.Instance
	adapter  core.AdapterID
	device   core.DeviceID
	queue    core.QueueID

	logger      logger.Logger
	initialized bool
}

var _ backend.Backend = (*Backend)(nil)

func NewBackend(l logger.Logger) *Backend {
	return &Backend{logger: l}
}

func (b *Backend) Name() string { return BackendGPU }

// Init creates the GPU instance, requests an adapter and device, and
// retrieves the command queue.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	desc := &gputypes.InstanceDescriptor{
		Backends: gputypes.BackendsPrimary,
		Flags:    0,
	}
	b.instance = core.NewInstance(desc)

	adapterID, err := b.instance.RequestAdapter(&gputypes.RequestAdapterOptions{
		PowerPreference: gputypes.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("%w: no GPU adapter: %v", backend.ErrBackendNotAvailable, err)
	}
	b.adapter = adapterID

	b.logAdapter(adapterID)

	deviceID, err := createDevice(adapterID, "mars-relief-device")
	if err != nil {
		_ = releaseAdapter(adapterID)
		return fmt.Errorf("device creation failed: %w", err)
	}
	b.device = deviceID

	queueID, err := core.GetDeviceQueue(deviceID)
	if err != nil {
		_ = releaseDevice(deviceID)
		_ = releaseAdapter(adapterID)
		return fmt.Errorf("queue retrieval failed: %w", err)
	}
	b.queue = queueID

	b.initialized = true
	return nil
}

func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return
	}

	if err := releaseDevice(b.device); err != nil {
		b.logger.Warn("failed to release GPU device", "error", err)
	}
	if err := releaseAdapter(b.adapter); err != nil {
		b.logger.Warn("failed to release GPU adapter", "error", err)
	}

	b.initialized = false
}

func (b *Backend) NewContext() (render.Context, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, backend.ErrNotInitialized
	}

	return newContext(b), nil
}
