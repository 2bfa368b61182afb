package gen

import (
	"github.com/OCharnyshevich/voxelstream/internal/block"
	"github.com/OCharnyshevich/voxelstream/internal/world/chunk"
)

// Flat generates a level surface: grass at a fixed height with dirt below.
type Flat struct {
	height int
}

// NewFlat creates a Flat generator with its grass layer at height.
func NewFlat(height int) *Flat {
	return &Flat{height: height}
}

func (f *Flat) Generate(cat *block.Catalog, g *chunk.Grid, _ chunk.Pos) error {
	pal, err := resolvePalette(cat)
	if err != nil {
		return err
	}
	for x := 0; x < chunk.Size; x++ {
		for z := 0; z < chunk.Size; z++ {
			fillColumn(g, x, z, f.height, pal)
		}
	}
	return nil
}

func (f *Flat) HeightAt(_ chunk.Pos, _, _ int) int {
	return f.height
}
