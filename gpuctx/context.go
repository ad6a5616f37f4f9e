// Package gpuctx is the explicit GPU execution context threaded through
// every stage that could in principle run on the GPU (pyramid build, tile
// matching, merge). There is no process-wide GPU singleton: a Context is
// created once at pipeline construction and destroyed at teardown, and
// callers pass it explicitly to every function that needs it.
//
// Acquire performs real device acquisition against the gogpu backend so
// UseCPUFallback reports actual hardware availability, but no stage in
// this module dispatches compute shaders yet: align, merge, and assemble
// are fully specified to run on CPU and do so unconditionally. Context
// exists today to decide and log that CPU/GPU split, not to execute
// compute kernels.
package gpuctx

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gogpu/gpu"
	"github.com/gogpu/gogpu/gpu/types"
)

// ErrNoGPUBackend is returned when a GPU backend was found but instance
// creation or adapter request failed.
var ErrNoGPUBackend = fmt.Errorf("gpuctx: no GPU backend available")

// ErrDeviceCreationFailed is returned when GPU device creation fails.
var ErrDeviceCreationFailed = fmt.Errorf("gpuctx: device creation failed")

// Context is the explicit, non-singleton GPU execution context. One
// Context is created at pipeline construction and destroyed at teardown;
// it is not re-entrant and must not be shared across concurrent
// pipeline runs issuing overlapping command buffers.
type Context struct {
	mu sync.Mutex

	gpuBackend gpu.Backend
	instance   types.Instance
	adapter    types.Adapter
	device     types.Device
	queue      types.Queue

	// cpuFallback is true when no compute-capable GPU backend could be
	// acquired, or the caller forced CPU execution. Every GPU-touching
	// stage must check this and run its CPU implementation instead of
	// dispatching compute commands.
	cpuFallback bool

	logger *slog.Logger
}

// Options configures Context acquisition.
type Options struct {
	// ForceCPU skips GPU device acquisition entirely and returns a
	// Context with cpuFallback set, regardless of hardware availability.
	ForceCPU bool
	Logger   *slog.Logger
}

// Acquire performs the five-step device acquisition sequence (get
// backend, create instance, request adapter, request device, get queue)
// and returns a ready-to-use Context. If opts.ForceCPU is set, or no GPU
// backend can be initialized, Acquire returns a CPU-fallback Context
// instead of an error: the alignment and merge stages are fully
// specified to run correctly on CPU, so the absence of a GPU is not
// itself a failure. Once a backend is found, a failure to create the
// instance, adapter, or device is returned as an error.
func Acquire(opts Options) (*Context, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Context{logger: logger}

	if opts.ForceCPU {
		c.cpuFallback = true
		logger.Info("gpuctx: CPU fallback requested")
		return c, nil
	}

	gpuBackend := gpu.GetBackend()
	if gpuBackend == nil {
		if err := gpu.InitDefaultBackend(); err != nil {
			logger.Warn("gpuctx: no GPU backend, falling back to CPU", "error", err)
			c.cpuFallback = true
			return c, nil
		}
		gpuBackend = gpu.GetBackend()
	}
	if gpuBackend == nil {
		logger.Warn("gpuctx: no GPU backend, falling back to CPU")
		c.cpuFallback = true
		return c, nil
	}
	c.gpuBackend = gpuBackend

	instance, err := gpuBackend.CreateInstance()
	if err != nil {
		return nil, fmt.Errorf("%w: instance creation: %w", ErrNoGPUBackend, err)
	}
	c.instance = instance

	adapter, err := gpuBackend.RequestAdapter(instance, &types.AdapterOptions{
		PowerPreference: types.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoGPUBackend, err)
	}
	c.adapter = adapter

	device, err := gpuBackend.RequestDevice(adapter, &types.DeviceOptions{
		Label: "hdrplus-gpuctx-device",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceCreationFailed, err)
	}
	c.device = device
	c.queue = gpuBackend.GetQueue(device)

	logger.Info("gpuctx: GPU backend acquired", "backend", gpuBackend.Name())
	return c, nil
}

// UseCPUFallback reports whether GPU-touching stages should run their CPU
// implementation on this Context.
func (c *Context) UseCPUFallback() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cpuFallback
}

// SetUseCPUFallback forces (or releases) CPU-only execution regardless of
// GPU availability, mirroring the pipeline's debug/override toggle.
func (c *Context) SetUseCPUFallback(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cpuFallback = v
}

// Device, Queue, and Adapter expose the underlying handles for future
// compute-dispatch code. They return zero values in CPU-fallback mode.
func (c *Context) Device() types.Device   { return c.device }
func (c *Context) Queue() types.Queue     { return c.queue }
func (c *Context) Adapter() types.Adapter { return c.adapter }

// Close releases all GPU resources acquired by Acquire. Close is safe to
// call on a CPU-fallback Context (a no-op) and safe to call more than
// once.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gpuBackend == nil {
		return
	}
	c.device = 0
	c.adapter = 0
	c.instance = 0
	c.queue = 0
	c.gpuBackend = nil
	c.logger.Info("gpuctx: context closed")
}
