package render

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelstream/internal/block"
	"github.com/OCharnyshevich/voxelstream/internal/render/gpu"
	"github.com/OCharnyshevich/voxelstream/internal/world"
	"github.com/OCharnyshevich/voxelstream/internal/world/chunk"
	"github.com/OCharnyshevich/voxelstream/internal/world/gen"
)

func newTestPool(t *testing.T) (*Pool, *gpu.Headless, *block.Catalog) {
	t.Helper()
	dev := gpu.NewHeadless(0)
	cat := testCatalog(t)
	p, err := NewPool(dev, cat)
	if err != nil {
		t.Fatal(err)
	}
	p.BindCamera(NewCamera(16.0 / 9.0))
	t.Cleanup(func() { p.Close() })
	return p, dev, cat
}

// gridWith returns a grid holding n dirt blocks along the bottom row.
func gridWith(t *testing.T, cat *block.Catalog, n int) *chunk.Grid {
	t.Helper()
	dirt := blockID(t, cat, "dirt")
	g := chunk.NewGrid()
	for i := 0; i < n; i++ {
		g.Set(i%chunk.Size, 0, i/chunk.Size, dirt)
	}
	return g
}

func render(t *testing.T, p *Pool) {
	t.Helper()
	if err := p.Render(mgl32.Vec3{0, 20, 0}); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestPoolChunkLoadedBuildsFaces(t *testing.T) {
	p, _, cat := newTestPool(t)
	pos := chunk.Pos{X: 3, Z: 4}
	p.ChunkLoaded(pos, gridWith(t, cat, 1))

	idx, ok := p.live[pos]
	if !ok {
		t.Fatal("chunk not live after ChunkLoaded")
	}
	s := p.slots[idx]
	if s.faces != block.FaceCount {
		t.Errorf("faces = %d, want %d", s.faces, block.FaceCount)
	}
	for i, d := range s.dirty {
		if !d {
			t.Errorf("frame %d not dirty", i)
		}
	}

	data, err := s.staging.Map()
	if err != nil {
		t.Fatal(err)
	}
	dirt := blockID(t, cat, "dirt")
	for i, f := range block.Faces {
		got := DecodeFace(data[i*FaceSize:])
		want := FaceInstance{Face: f, Texture: cat.FaceTexture(dirt, f), Position: [3]int32{3 * chunk.Size, 0, 4 * chunk.Size}}
		if got != want {
			t.Errorf("staged face %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestPoolReusesFreedSlot(t *testing.T) {
	p, dev, cat := newTestPool(t)
	a, b := chunk.Pos{X: 0, Z: 0}, chunk.Pos{X: 9, Z: 9}

	p.ChunkLoaded(a, gridWith(t, cat, 2))
	buffers := dev.LiveBuffers()
	idx := p.live[a]

	p.ChunkUnloaded(a)
	if _, ok := p.live[a]; ok {
		t.Fatal("chunk still live after ChunkUnloaded")
	}
	if got := dev.LiveBuffers(); got != buffers {
		t.Errorf("buffers after unload = %d, want %d", got, buffers)
	}

	p.ChunkLoaded(b, gridWith(t, cat, 3))
	if got := p.live[b]; got != idx {
		t.Errorf("slot = %d, want reused %d", got, idx)
	}
	st := p.Stats()
	if st.Slots != 1 || st.Live != 1 {
		t.Errorf("stats = %+v, want one live slot", st)
	}
	if got := dev.LiveBuffers(); got != buffers {
		t.Errorf("buffers = %d, want %d", got, buffers)
	}
	if p.slots[idx].faces != 3*block.FaceCount {
		t.Errorf("faces = %d, want %d", p.slots[idx].faces, 3*block.FaceCount)
	}
}

func TestPoolReuseMarksEveryFrameDirty(t *testing.T) {
	p, _, cat := newTestPool(t)
	a, b := chunk.Pos{X: 1}, chunk.Pos{X: 2}

	p.ChunkLoaded(a, gridWith(t, cat, 1))
	render(t, p)
	render(t, p)
	for i, d := range p.slots[p.live[a]].dirty {
		if d {
			t.Fatalf("frame %d still dirty after two frames", i)
		}
	}

	p.ChunkUnloaded(a)
	p.ChunkLoaded(b, gridWith(t, cat, 1))
	for i, d := range p.slots[p.live[b]].dirty {
		if !d {
			t.Errorf("frame %d of reused slot not dirty", i)
		}
	}
}

func TestPoolPerFrameDirtyBits(t *testing.T) {
	p, dev, cat := newTestPool(t)
	pos := chunk.Pos{}
	p.ChunkLoaded(pos, gridWith(t, cat, 2))
	s := &p.slots[p.live[pos]]
	size := 2 * block.FaceCount * FaceSize

	render(t, p)
	if s.dirty[0] || !s.dirty[1] {
		t.Fatalf("dirty after frame 0 = %v, want [false true]", s.dirty)
	}
	render(t, p)
	if s.dirty[1] {
		t.Fatal("frame 1 still dirty after its turn")
	}
	render(t, p)

	frames := dev.Frames()
	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(frames))
	}
	wantCopies := []int{1, 1, 0}
	for i, fr := range frames {
		if fr.Copies != wantCopies[i] {
			t.Errorf("frame %d copies = %d, want %d", i, fr.Copies, wantCopies[i])
		}
		if fr.Copies > 0 && fr.CopiedBytes != size {
			t.Errorf("frame %d copied %d bytes, want %d", i, fr.CopiedBytes, size)
		}
		if len(fr.Draws) != 1 {
			t.Fatalf("frame %d draws = %d, want 1", i, len(fr.Draws))
		}
		d := fr.Draws[0]
		if d.Vertices != QuadVertices || d.Instances != uint32(2*block.FaceCount) {
			t.Errorf("frame %d draw = %+v", i, d)
		}
		if d.Buffer != s.device[i%FramesInFlight] {
			t.Errorf("frame %d drew from the wrong frame's buffer", i)
		}
	}

	staged, _ := s.staging.Map()
	for i := range s.device {
		got := dev.Contents(s.device[i])
		if string(got) != string(staged[:size]) {
			t.Errorf("device buffer %d does not match staging", i)
		}
	}
}

func TestPoolDrawOrder(t *testing.T) {
	p, dev, cat := newTestPool(t)
	positions := []chunk.Pos{{X: 1, Z: 0}, {X: -1, Z: 3}, {X: 0, Z: 5}, {X: -1, Z: -2}}
	for i, pos := range positions {
		p.ChunkLoaded(pos, gridWith(t, cat, i+1))
	}
	render(t, p)

	sorted := append([]chunk.Pos(nil), positions...)
	chunk.SortPositions(sorted)
	draws := dev.Frames()[0].Draws
	if len(draws) != len(sorted) {
		t.Fatalf("draws = %d, want %d", len(draws), len(sorted))
	}
	for i, pos := range sorted {
		if draws[i].Buffer != p.slots[p.live[pos]].device[0] {
			t.Errorf("draw %d is not chunk %v", i, pos)
		}
	}
}

func TestPoolChunkUpdated(t *testing.T) {
	p, _, cat := newTestPool(t)
	pos := chunk.Pos{X: 5, Z: 5}
	g := gridWith(t, cat, 1)
	p.ChunkLoaded(pos, g)
	render(t, p)

	g.Set(7, 7, 7, blockID(t, cat, "grass_block"))
	p.ChunkUpdated(pos, g)

	s := p.slots[p.live[pos]]
	if s.faces != 2*block.FaceCount {
		t.Errorf("faces = %d, want %d", s.faces, 2*block.FaceCount)
	}
	if !s.dirty[0] || !s.dirty[1] {
		t.Errorf("dirty = %v, want all set", s.dirty)
	}
	if st := p.Stats(); st.Live != 1 {
		t.Errorf("live = %d, want 1", st.Live)
	}
}

func TestPoolDefersReuseUntilFramesComplete(t *testing.T) {
	p, dev, cat := newTestPool(t)
	a, b, c := chunk.Pos{X: 0}, chunk.Pos{X: 1}, chunk.Pos{X: 2}

	p.ChunkLoaded(a, gridWith(t, cat, 1))
	dev.Hold(true)
	render(t, p)

	// Frame 0 may still read a's slot.
	p.ChunkUnloaded(a)
	p.ChunkLoaded(b, gridWith(t, cat, 1))
	if got := p.live[b]; got == 0 {
		t.Fatal("slot reused while its frame was in flight")
	}
	if st := p.Stats(); st.Retired != 1 || st.Slots != 2 {
		t.Fatalf("stats = %+v, want 1 retired of 2", st)
	}

	dev.Complete()
	p.ChunkLoaded(c, gridWith(t, cat, 1))
	if got := p.live[c]; got != 0 {
		t.Errorf("slot = %d, want reclaimed 0", got)
	}
	if st := p.Stats(); st.Retired != 0 || st.Slots != 2 {
		t.Errorf("stats = %+v, want no retired slots", st)
	}
}

func TestPoolFenceTimeout(t *testing.T) {
	p, dev, cat := newTestPool(t)
	p.ChunkLoaded(chunk.Pos{}, gridWith(t, cat, 1))
	dev.Hold(true)

	render(t, p)
	render(t, p)
	err := p.Render(mgl32.Vec3{})
	if !errors.Is(err, gpu.ErrTimeout) {
		t.Fatalf("Render = %v, want ErrTimeout", err)
	}
	dev.Complete()
}

func TestPoolAcquireTimeout(t *testing.T) {
	p, dev, _ := newTestPool(t)
	dev.StallAcquire(true)
	if err := p.Render(mgl32.Vec3{}); !errors.Is(err, gpu.ErrTimeout) {
		t.Fatalf("Render = %v, want ErrTimeout", err)
	}
}

func TestPoolRenderWithoutCamera(t *testing.T) {
	dev := gpu.NewHeadless(0)
	p, err := NewPool(dev, testCatalog(t))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if err := p.Render(mgl32.Vec3{}); !errors.Is(err, ErrNoCamera) {
		t.Fatalf("Render = %v, want ErrNoCamera", err)
	}
	if dev.Submitted() != 0 {
		t.Error("frame submitted without a camera")
	}
}

func TestPoolDeviceLost(t *testing.T) {
	p, dev, cat := newTestPool(t)
	dev.Lose()
	p.ChunkLoaded(chunk.Pos{}, gridWith(t, cat, 1))
	if err := p.Render(mgl32.Vec3{}); !errors.Is(err, gpu.ErrDeviceLost) {
		t.Fatalf("Render = %v, want ErrDeviceLost", err)
	}
}

func TestPoolClose(t *testing.T) {
	dev := gpu.NewHeadless(0)
	cat := testCatalog(t)
	p, err := NewPool(dev, cat)
	if err != nil {
		t.Fatal(err)
	}
	p.ChunkLoaded(chunk.Pos{}, gridWith(t, cat, 1))
	p.ChunkLoaded(chunk.Pos{X: 1}, gridWith(t, cat, 1))
	p.ChunkUnloaded(chunk.Pos{X: 1})

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if dev.LiveBuffers() != 0 || dev.LiveFences() != 0 {
		t.Errorf("leaked %d buffers and %d fences", dev.LiveBuffers(), dev.LiveFences())
	}
}

func TestPoolFollowsManager(t *testing.T) {
	p, dev, cat := newTestPool(t)
	m := world.NewManager(cat, gen.NewFlat(0))
	m.Subscribe(p)

	if err := m.LoadAutomatic(world.BlockPos{}); err != nil {
		t.Fatal(err)
	}
	if st := p.Stats(); st.Live != world.RingSize || st.Slots != world.RingSize {
		t.Fatalf("stats = %+v, want %d live slots", st, world.RingSize)
	}
	render(t, p)

	// Walking one chunk east frees three slots and refills them.
	if err := m.LoadAutomatic(world.BlockPos{X: chunk.Size}); err != nil {
		t.Fatal(err)
	}
	if st := p.Stats(); st.Live != world.RingSize || st.Slots != world.RingSize {
		t.Errorf("stats = %+v, want %d live slots", st, world.RingSize)
	}

	m.SetBlock(world.BlockPos{X: chunk.Size, Y: 0, Z: 0}, block.Air)
	render(t, p)
	draws := dev.Frames()[1].Draws
	if len(draws) != world.RingSize {
		t.Fatalf("draws = %d, want %d", len(draws), world.RingSize)
	}
	var instances uint32
	for _, d := range draws {
		instances += d.Instances
	}
	want := uint32(world.RingSize*chunk.Size*chunk.Size-1) * block.FaceCount
	if instances != want {
		t.Errorf("instances = %d, want %d", instances, want)
	}
}
