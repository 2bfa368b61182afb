// Package assets reads block definitions and textures from an asset pack laid out as
//
//	blocks/<name>.json     {"faces": {"north": "<texture>", ...}}
//	textures/<name>.png    16x16 RGBA
package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNotFound is returned when the requested resource is not in the pack.
var ErrNotFound = errors.New("asset not found")

// BlockDefinition is the declarative description of one block.
type BlockDefinition struct {
	// Faces maps a face direction name to a texture name.
	Faces map[string]string `json:"faces"`
}

// FS is an asset pack backed by an fs.FS.
type FS struct {
	fsys   fs.FS
	schema *jsonschema.Schema
}

// NewFS creates an asset pack reading from fsys.
func NewFS(fsys fs.FS) (*FS, error) {
	schema, err := compileBlockSchema()
	if err != nil {
		return nil, err
	}
	return &FS{fsys: fsys, schema: schema}, nil
}

// Dir creates an asset pack rooted at a directory on disk.
func Dir(dir string) (*FS, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open asset dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open asset dir: %s is not a directory", dir)
	}
	return NewFS(os.DirFS(dir))
}

// BlockDefinition reads and validates blocks/<name>.json.
func (a *FS) BlockDefinition(name string) (BlockDefinition, error) {
	var def BlockDefinition

	p := path.Join("blocks", name+".json")
	raw, err := a.read(p)
	if err != nil {
		return def, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return def, fmt.Errorf("%s: %w", p, err)
	}
	if err := a.schema.Validate(doc); err != nil {
		return def, fmt.Errorf("%s: %w", p, err)
	}
	if err := json.Unmarshal(raw, &def); err != nil {
		return def, fmt.Errorf("%s: %w", p, err)
	}
	return def, nil
}

// Texture decodes textures/<name>.png.
func (a *FS) Texture(name string) (image.Image, error) {
	p := path.Join("textures", name+".png")
	raw, err := a.read(p)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	return img, nil
}

func (a *FS) read(p string) ([]byte, error) {
	raw, err := fs.ReadFile(a.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return raw, nil
}
