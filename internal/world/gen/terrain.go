package gen

import (
	"math"

	"github.com/OCharnyshevich/voxelstream/internal/block"
	"github.com/OCharnyshevich/voxelstream/internal/world/chunk"
)

const (
	// Samples is the number of noise samples per chunk along each horizontal axis.
	Samples = 4
	// tile is the edge length in columns covered by one sample.
	tile = chunk.Size / Samples

	baseHeight  = chunk.Size / 2
	heightRange = chunk.Size/8 - 1

	// Noise2D output lies within ±√2/2.
	noiseBound = math.Sqrt2 / 2
)

// Terrain generates rolling grass-over-dirt terrain from gradient noise.
// Each of the Samples x Samples noise samples of a chunk is applied unchanged
// to a tile of columns, so the surface is terraced in tile-sized steps.
type Terrain struct {
	seed  int64
	noise *Noise
}

// NewTerrain creates a Terrain generator for seed.
func NewTerrain(seed int64) *Terrain {
	return &Terrain{seed: seed, noise: NewNoise(seed)}
}

// Seed returns the world seed.
func (t *Terrain) Seed() int64 { return t.seed }

func (t *Terrain) Generate(cat *block.Catalog, g *chunk.Grid, pos chunk.Pos) error {
	pal, err := resolvePalette(cat)
	if err != nil {
		return err
	}

	for sx := 0; sx < Samples; sx++ {
		for sz := 0; sz < Samples; sz++ {
			height := t.sampleHeight(pos, sx, sz)
			for x := sx * tile; x < (sx+1)*tile; x++ {
				for z := sz * tile; z < (sz+1)*tile; z++ {
					fillColumn(g, x, z, height, pal)
				}
			}
		}
	}
	return nil
}

func (t *Terrain) HeightAt(pos chunk.Pos, lx, lz int) int {
	return t.sampleHeight(pos, lx/tile, lz/tile)
}

// sampleHeight maps the noise sample at the centre of tile (sx, sz) to a surface height.
func (t *Terrain) sampleHeight(pos chunk.Pos, sx, sz int) int {
	nx := float64(pos.X*Samples+sx) + 0.5
	nz := float64(pos.Z*Samples+sz) + 0.5

	v := (t.noise.Noise2D(nx, nz)/noiseBound + 1) / 2
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return baseHeight + int(heightRange*v)
}
