package block

import (
	"fmt"
	"image"
	"image/draw"
)

// TextureSize is the edge length in texels of every block texture.
const TextureSize = 16

// TextureComponents is the number of bytes per texel (RGBA).
const TextureComponents = 4

// Atlas is a texture array holding every block texture, one layer per TextureID.
// Layers are stacked vertically: layer i occupies rows [i*TextureSize, (i+1)*TextureSize).
type Atlas struct {
	Width  int
	Height int
	Layers int
	Pix    []byte
}

// Layer returns the RGBA bytes of one texture layer.
func (a *Atlas) Layer(id TextureID) []byte {
	const size = TextureSize * TextureSize * TextureComponents
	off := int(id) * size
	return a.Pix[off : off+size]
}

// BuildAtlas loads every referenced texture and stacks them in TextureID order.
func (c *Catalog) BuildAtlas() (*Atlas, error) {
	const layerBytes = TextureSize * TextureSize * TextureComponents

	a := &Atlas{
		Width:  TextureSize,
		Height: TextureSize * len(c.textureNames),
		Layers: len(c.textureNames),
		Pix:    make([]byte, 0, layerBytes*len(c.textureNames)),
	}

	for _, name := range c.textureNames {
		img, err := c.src.Texture(name)
		if err != nil {
			return nil, fmt.Errorf("load texture %s: %w", name, err)
		}
		b := img.Bounds()
		if b.Dx() != TextureSize || b.Dy() != TextureSize {
			return nil, fmt.Errorf("%w: %s is %dx%d, want %dx%d",
				ErrTextureSize, name, b.Dx(), b.Dy(), TextureSize, TextureSize)
		}

		rgba, ok := img.(*image.RGBA)
		if !ok || rgba.Stride != TextureSize*TextureComponents || b.Min != (image.Point{}) {
			rgba = image.NewRGBA(image.Rect(0, 0, TextureSize, TextureSize))
			draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		}
		a.Pix = append(a.Pix, rgba.Pix[:layerBytes]...)
	}
	return a, nil
}
