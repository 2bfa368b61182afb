// Package world keeps the set of resident chunks around an observer and
// notifies listeners as chunks are loaded, unloaded and modified.
package world

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/OCharnyshevich/voxelstream/internal/block"
	"github.com/OCharnyshevich/voxelstream/internal/world/chunk"
	"github.com/OCharnyshevich/voxelstream/internal/world/gen"
)

// BlockPos represents a block position in the world.
type BlockPos struct {
	X, Y, Z int
}

// Listener receives chunk lifecycle notifications. Calls happen synchronously
// on the goroutine driving the Manager.
type Listener interface {
	// ChunkLoaded is called once after a chunk becomes resident.
	ChunkLoaded(pos chunk.Pos, g *chunk.Grid)
	// ChunkUnloaded is called after a chunk stops being resident.
	ChunkUnloaded(pos chunk.Pos)
	// ChunkUpdated is called after a block of a resident chunk was written.
	ChunkUpdated(pos chunk.Pos, g *chunk.Grid)
}

// Edit is a block written into a chunk after generation.
type Edit struct {
	// Index is the local position as returned by chunk.Index.
	Index int
	Block block.ID
}

// EditStore persists chunk edits across unload and reload.
type EditStore interface {
	LoadEdits(pos chunk.Pos) ([]Edit, error)
	SaveEdits(pos chunk.Pos, edits []Edit) error
}

// ringOffsets spans the residency ring around the observer's chunk.
var ringOffsets = [3]int{-1, 0, 1}

// RingSize is the number of chunks kept resident around the observer.
const RingSize = len(ringOffsets) * len(ringOffsets)

// Manager owns the resident chunks. It is not safe for concurrent use.
type Manager struct {
	catalog   *block.Catalog
	generator gen.Generator
	store     EditStore
	log       *slog.Logger

	chunks    map[chunk.Pos]*chunk.Grid
	edits     map[chunk.Pos]map[int]block.ID
	listeners []Listener

	ring      [RingSize]chunk.Pos
	ringValid bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithEditStore persists block edits so they survive unloading.
func WithEditStore(s EditStore) Option {
	return func(m *Manager) { m.store = s }
}

// NewManager creates a Manager that fills new chunks with generator.
func NewManager(cat *block.Catalog, generator gen.Generator, opts ...Option) *Manager {
	m := &Manager{
		catalog:   cat,
		generator: generator,
		log:       slog.Default(),
		chunks:    make(map[chunk.Pos]*chunk.Grid),
		edits:     make(map[chunk.Pos]map[int]block.ID),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers l for lifecycle notifications.
func (m *Manager) Subscribe(l Listener) {
	m.listeners = append(m.listeners, l)
}

// LoadAutomatic makes the 3x3 ring of chunks around the observer resident
// and unloads every other chunk.
func (m *Manager) LoadAutomatic(observer BlockPos) error {
	center := chunk.PosOf(observer.X, observer.Z)

	var ring [RingSize]chunk.Pos
	i := 0
	for _, dx := range ringOffsets {
		for _, dz := range ringOffsets {
			ring[i] = chunk.Pos{X: center.X + dx, Z: center.Z + dz}
			i++
		}
	}

	for _, pos := range m.Resident() {
		if !inRing(&ring, pos) {
			if err := m.Unload(pos); err != nil {
				return err
			}
		}
	}

	for _, pos := range ring {
		if _, err := m.Load(pos); err != nil {
			return err
		}
	}

	if !m.ringValid || ring != m.ring {
		m.log.Debug("residency ring moved", "center", center, "resident", len(m.chunks))
	}
	m.ring = ring
	m.ringValid = true
	return nil
}

func inRing(ring *[RingSize]chunk.Pos, pos chunk.Pos) bool {
	for _, p := range ring {
		if p == pos {
			return true
		}
	}
	return false
}

// Load makes pos resident, generating it if needed. Loading a resident
// chunk returns it without notifying listeners.
func (m *Manager) Load(pos chunk.Pos) (*chunk.Grid, error) {
	if g, ok := m.chunks[pos]; ok {
		return g, nil
	}

	g := chunk.NewGrid()
	if err := m.generator.Generate(m.catalog, g, pos); err != nil {
		return nil, fmt.Errorf("generate chunk %v: %w", pos, err)
	}
	if err := m.restoreEdits(pos, g); err != nil {
		return nil, err
	}

	m.chunks[pos] = g
	m.log.Debug("chunk loaded", "chunk", pos)

	for _, l := range m.listeners {
		l.ChunkLoaded(pos, g)
	}
	return g, nil
}

// Unload drops pos if it is resident, persisting its edits first.
func (m *Manager) Unload(pos chunk.Pos) error {
	if _, ok := m.chunks[pos]; !ok {
		return nil
	}
	if err := m.saveEdits(pos); err != nil {
		return err
	}

	delete(m.chunks, pos)
	delete(m.edits, pos)
	m.log.Debug("chunk unloaded", "chunk", pos)

	for _, l := range m.listeners {
		l.ChunkUnloaded(pos)
	}
	return nil
}

// GetBlock returns the block at p. Positions outside the vertical range
// or in chunks that are not resident are air.
func (m *Manager) GetBlock(p BlockPos) block.ID {
	if !chunk.InRange(p.Y) {
		return block.Air
	}
	g, ok := m.chunks[chunk.PosOf(p.X, p.Z)]
	if !ok {
		return block.Air
	}
	x, y, z := chunk.Local(p.X, p.Y, p.Z)
	return g.Get(x, y, z)
}

// SetBlock writes id at p and then notifies listeners that the chunk changed.
// Writes of unregistered ids, outside the vertical range or into
// non-resident chunks are ignored.
func (m *Manager) SetBlock(p BlockPos, id block.ID) {
	if !chunk.InRange(p.Y) || !m.catalog.Valid(id) {
		return
	}
	pos := chunk.PosOf(p.X, p.Z)
	g, ok := m.chunks[pos]
	if !ok {
		return
	}

	x, y, z := chunk.Local(p.X, p.Y, p.Z)
	g.Set(x, y, z, id)

	edits := m.edits[pos]
	if edits == nil {
		edits = make(map[int]block.ID)
		m.edits[pos] = edits
	}
	edits[chunk.Index(x, y, z)] = id

	for _, l := range m.listeners {
		l.ChunkUpdated(pos, g)
	}
}

// Chunk returns the grid of a resident chunk.
func (m *Manager) Chunk(pos chunk.Pos) (*chunk.Grid, bool) {
	g, ok := m.chunks[pos]
	return g, ok
}

// IsResident reports whether pos is loaded.
func (m *Manager) IsResident(pos chunk.Pos) bool {
	_, ok := m.chunks[pos]
	return ok
}

// Len returns the number of resident chunks.
func (m *Manager) Len() int { return len(m.chunks) }

// Resident returns the resident chunk positions sorted by X then Z.
func (m *Manager) Resident() []chunk.Pos {
	keys := make([]chunk.Pos, 0, len(m.chunks))
	for k := range m.chunks {
		keys = append(keys, k)
	}
	chunk.SortPositions(keys)
	return keys
}

// SpawnHeight returns the first free y above the generated surface at the
// given world column.
func (m *Manager) SpawnHeight(x, z int) int {
	pos := chunk.PosOf(x, z)
	lx, _, lz := chunk.Local(x, 0, z)
	return m.generator.HeightAt(pos, lx, lz) + 1
}

// Flush persists the edits of every resident chunk.
func (m *Manager) Flush() error {
	for _, pos := range m.Resident() {
		if err := m.saveEdits(pos); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) restoreEdits(pos chunk.Pos, g *chunk.Grid) error {
	if m.store == nil {
		return nil
	}
	edits, err := m.store.LoadEdits(pos)
	if err != nil {
		return fmt.Errorf("load edits of chunk %v: %w", pos, err)
	}
	if len(edits) == 0 {
		return nil
	}

	restored := make(map[int]block.ID, len(edits))
	for _, e := range edits {
		if e.Index < 0 || e.Index >= chunk.Volume {
			return fmt.Errorf("load edits of chunk %v: index %d out of range", pos, e.Index)
		}
		if !m.catalog.Valid(e.Block) {
			return fmt.Errorf("load edits of chunk %v: %w: id %d", pos, block.ErrUnknownBlock, e.Block)
		}
		x, y, z := chunk.Coords(e.Index)
		g.Set(x, y, z, e.Block)
		restored[e.Index] = e.Block
	}
	m.edits[pos] = restored
	return nil
}

func (m *Manager) saveEdits(pos chunk.Pos) error {
	edits := m.edits[pos]
	if m.store == nil || len(edits) == 0 {
		return nil
	}

	out := make([]Edit, 0, len(edits))
	for idx, id := range edits {
		out = append(out, Edit{Index: idx, Block: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	if err := m.store.SaveEdits(pos, out); err != nil {
		return fmt.Errorf("save edits of chunk %v: %w", pos, err)
	}
	return nil
}
