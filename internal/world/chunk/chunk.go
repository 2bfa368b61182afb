// Package chunk defines the fixed-size block grid that is the unit of residency.
package chunk

import (
	"fmt"
	"sort"

	"github.com/OCharnyshevich/voxelstream/internal/block"
)

const (
	// Shift is log2 of the chunk edge length.
	Shift = 5
	// Size is the chunk edge length in blocks.
	Size = 1 << Shift
	// Volume is the number of blocks in a chunk.
	Volume = Size * Size * Size

	mask = Size - 1
)

// Local coordinates fit in a byte.
const _ uint8 = Size - 1

// Pos identifies a chunk column by its X and Z chunk coordinates.
type Pos struct{ X, Z int }

// PosOf returns the chunk containing world block column (x, z).
func PosOf(x, z int) Pos {
	return Pos{X: x >> Shift, Z: z >> Shift}
}

// Origin returns the world coordinates of the chunk's (0, 0) column.
func (p Pos) Origin() (x, z int) {
	return p.X << Shift, p.Z << Shift
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Z)
}

// SortPositions orders ps by X then Z.
func SortPositions(ps []Pos) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		return ps[i].Z < ps[j].Z
	})
}

// Local converts world block coordinates to coordinates inside their chunk.
func Local(x, y, z int) (lx, ly, lz int) {
	return x & mask, y & mask, z & mask
}

// InRange reports whether world y lies inside the vertical extent of a chunk.
func InRange(y int) bool {
	return y >= 0 && y < Size
}

// Grid holds one block id per position, indexed [y][x][z] so vertical
// scans of a layer stay contiguous.
type Grid struct {
	blocks [Size][Size][Size]block.ID
}

// NewGrid returns a grid filled with air.
func NewGrid() *Grid {
	g := &Grid{}
	g.Fill(block.Air)
	return g
}

// Get returns the block at local coordinates. x, y, z must be in [0, Size).
func (g *Grid) Get(x, y, z int) block.ID {
	return g.blocks[y][x][z]
}

// Set stores a block at local coordinates. x, y, z must be in [0, Size).
func (g *Grid) Set(x, y, z int, id block.ID) {
	g.blocks[y][x][z] = id
}

// Fill sets every position to id.
func (g *Grid) Fill(id block.ID) {
	for y := range g.blocks {
		for x := range g.blocks[y] {
			for z := range g.blocks[y][x] {
				g.blocks[y][x][z] = id
			}
		}
	}
}

// Index returns the linear index of local coordinates in [y][x][z] order.
func Index(x, y, z int) int {
	return y<<(2*Shift) | x<<Shift | z
}

// Coords is the inverse of Index.
func Coords(i int) (x, y, z int) {
	return (i >> Shift) & mask, (i >> (2 * Shift)) & mask, i & mask
}

// Count returns the number of non-air blocks.
func (g *Grid) Count() int {
	n := 0
	for y := range g.blocks {
		for x := range g.blocks[y] {
			for _, id := range g.blocks[y][x] {
				if id != block.Air {
					n++
				}
			}
		}
	}
	return n
}
