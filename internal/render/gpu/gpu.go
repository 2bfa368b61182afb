// Package gpu describes the graphics device the mesh pool drives. Device
// bootstrap (instance, surface, swapchain, pipelines) happens outside this
// module; implementations only expose buffers, fences, presentation and
// command submission.
package gpu

import (
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when a fence or image wait exceeds its timeout.
	ErrTimeout = errors.New("gpu: wait timed out")
	// ErrDeviceLost is returned by every call after the device failed.
	ErrDeviceLost = errors.New("gpu: device lost")
	// ErrNotMappable is returned when mapping a buffer that is not host visible.
	ErrNotMappable = errors.New("gpu: buffer is not host visible")
	// ErrDestroyed is returned when using a destroyed buffer or fence.
	ErrDestroyed = errors.New("gpu: object destroyed")
)

// BufferUsage selects the memory a buffer lives in.
type BufferUsage int

const (
	// Staging buffers are host visible and used as transfer sources.
	Staging BufferUsage = iota
	// DeviceLocal buffers are transfer destinations read by draws.
	DeviceLocal
)

func (u BufferUsage) String() string {
	switch u {
	case Staging:
		return "staging"
	case DeviceLocal:
		return "device-local"
	default:
		return "unknown"
	}
}

// Buffer is a linear device allocation.
type Buffer interface {
	Size() int
	Usage() BufferUsage
	// Map returns the host view of a staging buffer. The slice stays valid
	// until the buffer is destroyed.
	Map() ([]byte, error)
}

// Fence is signaled by the device once a submission has finished executing.
type Fence interface {
	// Signaled reports the current state without blocking.
	Signaled() bool
}

// Device is the subset of a graphics device the renderer needs.
type Device interface {
	CreateBuffer(size int, usage BufferUsage) (Buffer, error)
	DestroyBuffer(b Buffer)

	// CreateFence creates a fence, optionally already signaled.
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(f Fence)
	// WaitFence blocks until f is signaled or timeout elapses.
	WaitFence(f Fence, timeout time.Duration) error
	ResetFence(f Fence) error

	// AcquireImage returns the index of the next presentable image.
	AcquireImage(timeout time.Duration) (int, error)
	// Submit queues cmd for execution and signals f when it completes.
	Submit(cmd *CommandBuffer, f Fence) error
	Present(image int) error
	// WaitIdle blocks until all submitted work has finished.
	WaitIdle() error
}
