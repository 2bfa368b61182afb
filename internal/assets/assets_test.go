package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0xAB, 0x10, 0x10, 0xFF
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestBlockDefinition(t *testing.T) {
	a, err := NewFS(fstest.MapFS{
		"blocks/dirt.json": {Data: []byte(`{"faces":{"north":"dirt","top":"dirt_top"}}`)},
	})
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	def, err := a.BlockDefinition("dirt")
	if err != nil {
		t.Fatalf("BlockDefinition: %v", err)
	}
	if def.Faces["north"] != "dirt" || def.Faces["top"] != "dirt_top" {
		t.Errorf("faces = %v", def.Faces)
	}
}

func TestBlockDefinitionRejectsBadDocuments(t *testing.T) {
	a, err := NewFS(fstest.MapFS{
		"blocks/nofaces.json":  {Data: []byte(`{"texture":"x"}`)},
		"blocks/badfaces.json": {Data: []byte(`{"faces":["north"]}`)},
		"blocks/empty.json":    {Data: []byte(`{"faces":{"north":""}}`)},
		"blocks/broken.json":   {Data: []byte(`{"faces":`)},
	})
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	for _, name := range []string{"nofaces", "badfaces", "empty", "broken"} {
		if _, err := a.BlockDefinition(name); err == nil {
			t.Errorf("BlockDefinition(%q) succeeded, want error", name)
		}
	}
}

func TestMissingResource(t *testing.T) {
	a, err := NewFS(fstest.MapFS{})
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if _, err := a.BlockDefinition("stone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("BlockDefinition error = %v, want ErrNotFound", err)
	}
	if _, err := a.Texture("stone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Texture error = %v, want ErrNotFound", err)
	}
}

func TestTexture(t *testing.T) {
	a, err := NewFS(fstest.MapFS{
		"textures/dirt.png": {Data: encodePNG(t, 16, 16)},
		"textures/bad.png":  {Data: []byte("not a png")},
	})
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	img, err := a.Texture("dirt")
	if err != nil {
		t.Fatalf("Texture: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Errorf("bounds = %v, want 16x16", b)
	}
	if got := color.RGBAModel.Convert(img.At(3, 3)).(color.RGBA).R; got != 0xAB {
		t.Errorf("pixel R = %#x, want 0xAB", got)
	}

	if _, err := a.Texture("bad"); err == nil {
		t.Error("decoding garbage succeeded")
	}
}

func TestBuiltin(t *testing.T) {
	a := Builtin()
	for _, name := range []string{"dirt", "grass_block", "stone"} {
		def, err := a.BlockDefinition(name)
		if err != nil {
			t.Fatalf("BlockDefinition(%q): %v", name, err)
		}
		if len(def.Faces) != 6 {
			t.Errorf("%s has %d faces, want 6", name, len(def.Faces))
		}
		for _, tex := range def.Faces {
			img, err := a.Texture(tex)
			if err != nil {
				t.Fatalf("Texture(%q): %v", tex, err)
			}
			if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
				t.Errorf("texture %s is %v", tex, b)
			}
		}
	}
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "blocks"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "blocks", "dirt.json"), []byte(`{"faces":{"top":"dirt"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := Dir(dir)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if _, err := a.BlockDefinition("dirt"); err != nil {
		t.Errorf("BlockDefinition: %v", err)
	}

	if _, err := Dir(filepath.Join(dir, "missing")); err == nil {
		t.Error("Dir on a missing directory succeeded")
	}
}

func TestFetchLocalDirectory(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "blocks"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "blocks", "dirt.json"), []byte(`{"faces":{"top":"dirt"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "pack")

	if err := Fetch(context.Background(), dst, src); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	a, err := Dir(dst)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if _, err := a.BlockDefinition("dirt"); err != nil {
		t.Errorf("BlockDefinition after fetch: %v", err)
	}
}
