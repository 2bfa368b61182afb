package block

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/OCharnyshevich/voxelstream/internal/assets"
)

// ID is a dense block identifier assigned in registration order.
type ID uint32

// TextureID indexes a layer of the block texture atlas.
type TextureID uint32

// Air is the reserved id for empty space. It is never assigned to a registered block.
const Air ID = math.MaxUint32

// Configuration errors reported while building a catalog.
var (
	ErrDuplicateBlock = errors.New("block already registered")
	ErrUnknownBlock   = errors.New("block not registered")
	ErrUnknownFace    = errors.New("unknown face direction")
	ErrMissingFace    = errors.New("face texture not specified")
	ErrTextureSize    = errors.New("block texture has wrong dimensions")
)

// Source provides the block definitions and textures a Catalog is built from.
type Source interface {
	BlockDefinition(name string) (assets.BlockDefinition, error)
	Texture(name string) (image.Image, error)
}

// Catalog maps block names to ids and per-face texture ids.
// It is built once at startup and is read-only afterwards.
type Catalog struct {
	src Source

	ids   map[string]ID
	names []string
	faces [][FaceCount]TextureID

	textureIDs   map[string]TextureID
	textureNames []string
}

// NewCatalog creates an empty Catalog that loads definitions from src.
func NewCatalog(src Source) *Catalog {
	return &Catalog{
		src:        src,
		ids:        make(map[string]ID),
		textureIDs: make(map[string]TextureID),
	}
}

// Register loads the definition of the named block and assigns it the next id.
// Textures referenced by the definition get ids in first-seen order.
func (c *Catalog) Register(name string) (ID, error) {
	if _, ok := c.ids[name]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateBlock, name)
	}

	def, err := c.src.BlockDefinition(name)
	if err != nil {
		return 0, fmt.Errorf("load block %s: %w", name, err)
	}

	// Resolve every face before touching catalog state so a bad
	// definition leaves no partial registration behind.
	var textures [FaceCount]string
	var seen [FaceCount]bool
	for faceName, texture := range def.Faces {
		f, err := ParseFace(faceName)
		if err != nil {
			return 0, fmt.Errorf("block %s: %w", name, err)
		}
		textures[f] = texture
		seen[f] = true
	}
	for _, f := range Faces {
		if !seen[f] {
			return 0, fmt.Errorf("block %s: %w: %s", name, ErrMissingFace, f)
		}
	}

	var faces [FaceCount]TextureID
	for _, f := range Faces {
		faces[f] = c.textureID(textures[f])
	}

	id := ID(len(c.names))
	c.ids[name] = id
	c.names = append(c.names, name)
	c.faces = append(c.faces, faces)
	return id, nil
}

// RegisterAll registers names in order and stops at the first error.
func (c *Catalog) RegisterAll(names ...string) error {
	for _, name := range names {
		if _, err := c.Register(name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) textureID(name string) TextureID {
	if id, ok := c.textureIDs[name]; ok {
		return id
	}
	id := TextureID(len(c.textureNames))
	c.textureIDs[name] = id
	c.textureNames = append(c.textureNames, name)
	return id
}

// ID returns the id of a registered block.
func (c *Catalog) ID(name string) (ID, error) {
	id, ok := c.ids[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownBlock, name)
	}
	return id, nil
}

// Name returns the registered name of id, or "air" for Air.
func (c *Catalog) Name(id ID) string {
	if id == Air {
		return "air"
	}
	if int(id) >= len(c.names) {
		return fmt.Sprintf("block(%d)", uint32(id))
	}
	return c.names[id]
}

// FaceTexture returns the texture of the given face of a registered block.
// id must be a registered, non-air block.
func (c *Catalog) FaceTexture(id ID, f Face) TextureID {
	return c.faces[id][f]
}

// Valid reports whether id is Air or a registered block.
func (c *Catalog) Valid(id ID) bool {
	return id == Air || int(id) < len(c.names)
}

// Len returns the number of registered blocks.
func (c *Catalog) Len() int { return len(c.names) }

// TextureCount returns the number of distinct textures referenced so far.
func (c *Catalog) TextureCount() int { return len(c.textureNames) }

// TextureNames returns texture names indexed by TextureID.
func (c *Catalog) TextureNames() []string {
	out := make([]string, len(c.textureNames))
	copy(out, c.textureNames)
	return out
}
