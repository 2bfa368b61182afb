// Package gen fills chunk grids with terrain.
package gen

import (
	"fmt"

	"github.com/OCharnyshevich/voxelstream/internal/block"
	"github.com/OCharnyshevich/voxelstream/internal/world/chunk"
)

// Names of the blocks the generators place.
const (
	GrassBlock = "grass_block"
	DirtBlock  = "dirt"
)

// Generator fills a chunk grid deterministically from its position.
type Generator interface {
	Generate(cat *block.Catalog, g *chunk.Grid, pos chunk.Pos) error
	// HeightAt returns the surface height of local column (lx, lz) in chunk pos.
	HeightAt(pos chunk.Pos, lx, lz int) int
}

type palette struct {
	grass block.ID
	dirt  block.ID
}

func resolvePalette(cat *block.Catalog) (palette, error) {
	grass, err := cat.ID(GrassBlock)
	if err != nil {
		return palette{}, fmt.Errorf("terrain palette: %w", err)
	}
	dirt, err := cat.ID(DirtBlock)
	if err != nil {
		return palette{}, fmt.Errorf("terrain palette: %w", err)
	}
	return palette{grass: grass, dirt: dirt}, nil
}

// fillColumn writes air above height, grass at height and dirt below it.
func fillColumn(g *chunk.Grid, x, z, height int, pal palette) {
	if height < 0 {
		height = 0
	}
	if height > chunk.Size-1 {
		height = chunk.Size - 1
	}

	for y := chunk.Size - 1; y > height; y-- {
		g.Set(x, y, z, block.Air)
	}
	g.Set(x, height, z, pal.grass)
	for y := height - 1; y >= 0; y-- {
		g.Set(x, y, z, pal.dirt)
	}
}
