package render

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelstream/internal/block"
	"github.com/OCharnyshevich/voxelstream/internal/render/gpu"
	"github.com/OCharnyshevich/voxelstream/internal/world"
	"github.com/OCharnyshevich/voxelstream/internal/world/chunk"
)

// FramesInFlight is the number of frames the host may record ahead of the
// device.
const FramesInFlight = 2

// SlotBytes is the size of every buffer of a mesh slot.
const SlotBytes = MaxFaces * FaceSize

// DefaultTimeout bounds fence and image waits unless overridden.
const DefaultTimeout = 5 * time.Second

// ErrNoCamera is returned by Render before a camera is bound.
var ErrNoCamera = errors.New("render: no camera bound")

var _ world.Listener = (*Pool)(nil)

// slot holds the geometry of one chunk: a staging buffer written by the
// host and a device-local copy per frame in flight.
type slot struct {
	staging gpu.Buffer
	device  [FramesInFlight]gpu.Buffer
	dirty   [FramesInFlight]bool
	faces   int
}

// retiredSlot is a released slot that frames submitted before its release
// may still read.
type retiredSlot struct {
	index int
	// submitted is the number of frames submitted when the slot was released.
	submitted uint64
}

// Stats describes the pool's slot usage.
type Stats struct {
	Live    int
	Slots   int
	Free    int
	Retired int
	Frames  uint64
}

// Pool maps resident chunks to GPU buffer slots and records the per-frame
// copies and draws. It is driven by world.Manager notifications and is not
// safe for concurrent use.
type Pool struct {
	dev     gpu.Device
	catalog *block.Catalog
	log     *slog.Logger

	fenceTimeout   time.Duration
	acquireTimeout time.Duration

	fences [FramesInFlight]gpu.Fence
	cmds   [FramesInFlight]*gpu.CommandBuffer

	// submitted counts frames handed to the device; the next frame uses
	// fences[submitted%FramesInFlight]. completed counts frames known done.
	submitted uint64
	completed uint64

	slots   []slot
	free    []int
	retired []retiredSlot
	live    map[chunk.Pos]int
	order   []chunk.Pos

	camera  ViewProjector
	scratch []FaceInstance

	// err is the first failure raised inside a notification.
	err error
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the pool's logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pool) { p.log = log }
}

// WithFenceTimeout bounds the wait for a frame's previous submission.
func WithFenceTimeout(d time.Duration) Option {
	return func(p *Pool) { p.fenceTimeout = d }
}

// WithAcquireTimeout bounds the wait for a presentable image.
func WithAcquireTimeout(d time.Duration) Option {
	return func(p *Pool) { p.acquireTimeout = d }
}

// NewPool creates a Pool with its per-frame fences and command buffers.
func NewPool(dev gpu.Device, cat *block.Catalog, opts ...Option) (*Pool, error) {
	p := &Pool{
		dev:            dev,
		catalog:        cat,
		log:            slog.Default(),
		fenceTimeout:   DefaultTimeout,
		acquireTimeout: DefaultTimeout,
		live:           make(map[chunk.Pos]int),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := range p.fences {
		f, err := dev.CreateFence(true)
		if err != nil {
			p.destroyFences()
			return nil, fmt.Errorf("create fence for frame %d: %w", i, err)
		}
		p.fences[i] = f
		p.cmds[i] = gpu.NewCommandBuffer()
	}
	return p, nil
}

// BindCamera sets the camera used by subsequent frames.
func (p *Pool) BindCamera(c ViewProjector) {
	p.camera = c
}

// ChunkLoaded builds the chunk's geometry into a slot.
func (p *Pool) ChunkLoaded(pos chunk.Pos, g *chunk.Grid) {
	if p.err != nil {
		return
	}
	if _, ok := p.live[pos]; ok {
		p.release(pos)
	}
	if err := p.build(pos, g); err != nil {
		p.fail(fmt.Errorf("build mesh for chunk %v: %w", pos, err))
	}
}

// ChunkUnloaded releases the chunk's slot.
func (p *Pool) ChunkUnloaded(pos chunk.Pos) {
	p.release(pos)
}

// ChunkUpdated rebuilds the chunk's geometry into a fresh slot.
func (p *Pool) ChunkUpdated(pos chunk.Pos, g *chunk.Grid) {
	p.release(pos)
	p.ChunkLoaded(pos, g)
}

func (p *Pool) fail(err error) {
	p.log.Error("mesh pool failed", "error", err)
	p.err = err
}

func (p *Pool) build(pos chunk.Pos, g *chunk.Grid) error {
	idx, err := p.acquire()
	if err != nil {
		return err
	}
	s := &p.slots[idx]

	data, err := s.staging.Map()
	if err != nil {
		p.free = append(p.free, idx)
		return fmt.Errorf("map staging buffer: %w", err)
	}
	p.scratch = AppendFaces(p.scratch[:0], p.catalog, g, pos)
	if _, err := EncodeFaces(data, p.scratch); err != nil {
		p.free = append(p.free, idx)
		return err
	}

	s.faces = len(p.scratch)
	p.live[pos] = idx
	p.order = nil
	return nil
}

// acquire returns a slot index with every frame marked dirty, reusing
// released slots before growing.
func (p *Pool) acquire() (int, error) {
	p.reclaim()

	if len(p.free) > 0 {
		idx := p.free[0]
		p.free = p.free[1:]
		s := &p.slots[idx]
		for i := range s.dirty {
			s.dirty[i] = true
		}
		return idx, nil
	}

	s, err := p.allocate()
	if err != nil {
		return 0, err
	}
	p.slots = append(p.slots, s)
	idx := len(p.slots) - 1
	p.log.Debug("mesh slot allocated", "slot", idx, "slots", len(p.slots))
	return idx, nil
}

func (p *Pool) allocate() (slot, error) {
	var s slot
	staging, err := p.dev.CreateBuffer(SlotBytes, gpu.Staging)
	if err != nil {
		return slot{}, fmt.Errorf("create staging buffer: %w", err)
	}
	s.staging = staging

	for i := range s.device {
		b, err := p.dev.CreateBuffer(SlotBytes, gpu.DeviceLocal)
		if err != nil {
			p.destroySlot(&s)
			return slot{}, fmt.Errorf("create device buffer for frame %d: %w", i, err)
		}
		s.device[i] = b
		s.dirty[i] = true
	}
	return s, nil
}

func (p *Pool) release(pos chunk.Pos) {
	idx, ok := p.live[pos]
	if !ok {
		return
	}
	delete(p.live, pos)
	p.order = nil
	p.slots[idx].faces = 0
	p.retired = append(p.retired, retiredSlot{index: idx, submitted: p.submitted})
}

// reclaim moves retired slots to the free list once every frame submitted
// before their release has completed on the device.
func (p *Pool) reclaim() {
	done := p.completed
	if p.submitted >= FramesInFlight && done < p.submitted-FramesInFlight {
		done = p.submitted - FramesInFlight
	}
	for ; done < p.submitted; done++ {
		if !p.fences[done%FramesInFlight].Signaled() {
			break
		}
	}
	p.completed = done

	n := 0
	for _, r := range p.retired {
		if r.submitted <= p.completed {
			p.free = append(p.free, r.index)
			continue
		}
		p.retired[n] = r
		n++
	}
	p.retired = p.retired[:n]
}

func (p *Pool) liveOrder() []chunk.Pos {
	if p.order == nil {
		p.order = make([]chunk.Pos, 0, len(p.live))
		for pos := range p.live {
			p.order = append(p.order, pos)
		}
		chunk.SortPositions(p.order)
	}
	return p.order
}

// Render records and submits one frame viewed from eye.
func (p *Pool) Render(eye mgl32.Vec3) error {
	if p.err != nil {
		return p.err
	}
	if p.camera == nil {
		return ErrNoCamera
	}

	frame := int(p.submitted % FramesInFlight)
	fence := p.fences[frame]
	if err := p.dev.WaitFence(fence, p.fenceTimeout); err != nil {
		return fmt.Errorf("wait for frame %d: %w", frame, err)
	}
	p.reclaim()

	image, err := p.dev.AcquireImage(p.acquireTimeout)
	if err != nil {
		return fmt.Errorf("acquire image: %w", err)
	}
	if err := p.dev.ResetFence(fence); err != nil {
		return fmt.Errorf("reset fence of frame %d: %w", frame, err)
	}

	cmd := p.cmds[frame]
	cmd.Reset()
	cmd.SetViewProjection(p.camera.View(eye), p.camera.Projection())
	for _, pos := range p.liveOrder() {
		s := &p.slots[p.live[pos]]
		if s.dirty[frame] {
			if s.faces > 0 {
				cmd.CopyBuffer(s.staging, s.device[frame], s.faces*FaceSize)
			}
			s.dirty[frame] = false
		}
		cmd.Draw(s.device[frame], QuadVertices, uint32(s.faces))
	}

	if err := p.dev.Submit(cmd, fence); err != nil {
		return fmt.Errorf("submit frame %d: %w", frame, err)
	}
	p.submitted++

	if err := p.dev.Present(image); err != nil {
		return fmt.Errorf("present image %d: %w", image, err)
	}
	return nil
}

// Stats returns the current slot usage.
func (p *Pool) Stats() Stats {
	return Stats{
		Live:    len(p.live),
		Slots:   len(p.slots),
		Free:    len(p.free),
		Retired: len(p.retired),
		Frames:  p.submitted,
	}
}

// Close waits for the device to go idle and destroys every buffer and fence.
func (p *Pool) Close() error {
	err := p.dev.WaitIdle()
	if err != nil {
		err = fmt.Errorf("wait for device idle: %w", err)
	}
	for i := range p.slots {
		p.destroySlot(&p.slots[i])
	}
	p.slots, p.free, p.retired = nil, nil, nil
	p.live = make(map[chunk.Pos]int)
	p.order = nil
	p.destroyFences()
	return err
}

func (p *Pool) destroySlot(s *slot) {
	if s.staging != nil {
		p.dev.DestroyBuffer(s.staging)
		s.staging = nil
	}
	for i, b := range s.device {
		if b != nil {
			p.dev.DestroyBuffer(b)
			s.device[i] = nil
		}
	}
}

func (p *Pool) destroyFences() {
	for i, f := range p.fences {
		if f != nil {
			p.dev.DestroyFence(f)
			p.fences[i] = nil
		}
	}
}
