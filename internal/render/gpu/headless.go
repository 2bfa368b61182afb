package gpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

var _ Device = (*Headless)(nil)

// DefaultImageCount is the number of presentable images of a headless device.
const DefaultImageCount = 3

// Frame is what the headless device saw for one submission.
type Frame struct {
	Image            int
	View, Projection mgl32.Mat4
	Copies           int
	CopiedBytes      int
	Draws            []DrawCall
}

// DrawCall is an executed draw.
type DrawCall struct {
	Buffer    Buffer
	Vertices  uint32
	Instances uint32
}

// Headless is an in-memory Device. Submissions execute synchronously; their
// fences signal immediately unless the device is holding completions. A wait
// on an unsignaled fence can never succeed, so it reports ErrTimeout at once.
type Headless struct {
	mu sync.Mutex

	images    int
	nextImage int

	hold         bool
	stallAcquire bool
	lost         bool
	pending      []*fence

	buffers map[*buffer]struct{}
	fences  map[*fence]struct{}

	frames    []Frame
	submitted int
	presented int
}

// NewHeadless creates a headless device with the given number of images.
// Non-positive counts use DefaultImageCount.
func NewHeadless(images int) *Headless {
	if images <= 0 {
		images = DefaultImageCount
	}
	return &Headless{
		images:  images,
		buffers: make(map[*buffer]struct{}),
		fences:  make(map[*fence]struct{}),
	}
}

type buffer struct {
	size      int
	usage     BufferUsage
	data      []byte
	destroyed bool
}

func (b *buffer) Size() int          { return b.size }
func (b *buffer) Usage() BufferUsage { return b.usage }

func (b *buffer) Map() ([]byte, error) {
	if b.destroyed {
		return nil, ErrDestroyed
	}
	if b.usage != Staging {
		return nil, ErrNotMappable
	}
	if b.data == nil {
		b.data = make([]byte, b.size)
	}
	return b.data, nil
}

type fence struct {
	signaled  bool
	destroyed bool
}

func (f *fence) Signaled() bool { return f.signaled }

func (d *Headless) CreateBuffer(size int, usage BufferUsage) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return nil, ErrDeviceLost
	}
	if size <= 0 {
		return nil, fmt.Errorf("gpu: invalid buffer size %d", size)
	}
	b := &buffer{size: size, usage: usage}
	d.buffers[b] = struct{}{}
	return b, nil
}

func (d *Headless) DestroyBuffer(b Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	hb, ok := b.(*buffer)
	if !ok {
		return
	}
	hb.destroyed = true
	hb.data = nil
	delete(d.buffers, hb)
}

func (d *Headless) CreateFence(signaled bool) (Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return nil, ErrDeviceLost
	}
	f := &fence{signaled: signaled}
	d.fences[f] = struct{}{}
	return f, nil
}

func (d *Headless) DestroyFence(f Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()

	hf, ok := f.(*fence)
	if !ok {
		return
	}
	hf.destroyed = true
	delete(d.fences, hf)
}

func (d *Headless) WaitFence(f Fence, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return ErrDeviceLost
	}
	hf := f.(*fence)
	if hf.destroyed {
		return ErrDestroyed
	}
	if hf.signaled {
		return nil
	}
	return fmt.Errorf("%w: fence not signaled after %v", ErrTimeout, timeout)
}

func (d *Headless) ResetFence(f Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return ErrDeviceLost
	}
	hf := f.(*fence)
	if hf.destroyed {
		return ErrDestroyed
	}
	hf.signaled = false
	return nil
}

func (d *Headless) AcquireImage(timeout time.Duration) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return 0, ErrDeviceLost
	}
	if d.stallAcquire {
		return 0, fmt.Errorf("%w: no image available after %v", ErrTimeout, timeout)
	}
	img := d.nextImage
	d.nextImage = (d.nextImage + 1) % d.images
	return img, nil
}

func (d *Headless) Submit(cmd *CommandBuffer, f Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return ErrDeviceLost
	}

	var frame Frame
	for _, c := range cmd.Commands() {
		switch c.Op {
		case OpCopy:
			if err := copyBuffer(c.Src, c.Dst, c.Size); err != nil {
				return err
			}
			frame.Copies++
			frame.CopiedBytes += c.Size
		case OpSetViewProjection:
			frame.View, frame.Projection = c.View, c.Projection
		case OpDraw:
			frame.Draws = append(frame.Draws, DrawCall{Buffer: c.Dst, Vertices: c.Vertices, Instances: c.Instances})
		}
	}
	frame.Image = -1
	d.frames = append(d.frames, frame)
	d.submitted++

	if f != nil {
		hf := f.(*fence)
		if d.hold {
			d.pending = append(d.pending, hf)
		} else {
			hf.signaled = true
		}
	}
	return nil
}

func copyBuffer(src, dst Buffer, size int) error {
	s, ok1 := src.(*buffer)
	t, ok2 := dst.(*buffer)
	if !ok1 || !ok2 {
		return fmt.Errorf("gpu: copy between foreign buffers")
	}
	if s.destroyed || t.destroyed {
		return ErrDestroyed
	}
	if size > s.size || size > t.size {
		return fmt.Errorf("gpu: copy of %d bytes exceeds buffer size", size)
	}
	if len(t.data) < size {
		grown := make([]byte, size)
		copy(grown, t.data)
		t.data = grown
	}
	var from []byte
	if s.data != nil {
		from = s.data[:size]
	} else {
		from = make([]byte, size)
	}
	copy(t.data, from)
	return nil
}

func (d *Headless) Present(image int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return ErrDeviceLost
	}
	if image < 0 || image >= d.images {
		return fmt.Errorf("gpu: present of invalid image %d", image)
	}
	if n := len(d.frames); n > 0 && d.frames[n-1].Image < 0 {
		d.frames[n-1].Image = image
	}
	d.presented++
	return nil
}

func (d *Headless) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lost {
		return ErrDeviceLost
	}
	d.completeLocked()
	return nil
}

// Hold makes subsequent submissions leave their fences unsignaled until
// Complete is called.
func (d *Headless) Hold(hold bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hold = hold
}

// Complete signals the fences of all held submissions.
func (d *Headless) Complete() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completeLocked()
}

func (d *Headless) completeLocked() {
	for _, f := range d.pending {
		f.signaled = true
	}
	d.pending = d.pending[:0]
}

// StallAcquire makes AcquireImage time out while set.
func (d *Headless) StallAcquire(stall bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stallAcquire = stall
}

// Lose puts the device in the lost state.
func (d *Headless) Lose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lost = true
}

// Frames returns every submission executed so far.
func (d *Headless) Frames() []Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Frame(nil), d.frames...)
}

// Submitted returns the number of submissions.
func (d *Headless) Submitted() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitted
}

// Presented returns the number of presented images.
func (d *Headless) Presented() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presented
}

// LiveBuffers returns the number of buffers not yet destroyed.
func (d *Headless) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

// LiveFences returns the number of fences not yet destroyed.
func (d *Headless) LiveFences() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.fences)
}

// Contents returns a copy of the bytes the device holds for b. Device-local
// buffers only hold what was copied into them.
func (d *Headless) Contents(b Buffer) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	hb, ok := b.(*buffer)
	if !ok {
		return nil
	}
	return append([]byte(nil), hb.data...)
}
