package storage

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCharnyshevich/voxelstream/internal/assets"
	"github.com/OCharnyshevich/voxelstream/internal/block"
	"github.com/OCharnyshevich/voxelstream/internal/config"
	"github.com/OCharnyshevich/voxelstream/internal/player"
	"github.com/OCharnyshevich/voxelstream/internal/world"
	"github.com/OCharnyshevich/voxelstream/internal/world/chunk"
	"github.com/OCharnyshevich/voxelstream/internal/world/gen"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStorage(t *testing.T, dir string) *Storage {
	t.Helper()
	s, err := New(dir, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewCreatesDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	newTestStorage(t, dir)

	for _, d := range []string{dir, filepath.Join(dir, "world")} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created", d)
		}
	}
}

func TestConfigRoundTrip(t *testing.T) {
	s := newTestStorage(t, t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Seed = 42
	cfg.Generator = config.GeneratorFlat
	cfg.FenceTimeout = 750 * time.Millisecond
	cfg.Blocks = []string{"grass_block", "dirt", "stone"}
	if s.HasConfig() {
		t.Fatal("HasConfig before save")
	}
	if err := s.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if !s.HasConfig() {
		t.Fatal("HasConfig after save = false")
	}

	loaded := config.DefaultConfig()
	if err := s.LoadConfig(loaded); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Seed != 42 || loaded.Generator != config.GeneratorFlat {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.FenceTimeout != 750*time.Millisecond {
		t.Errorf("FenceTimeout = %v, want 750ms", loaded.FenceTimeout)
	}
	if len(loaded.Blocks) != 3 || loaded.Blocks[2] != "stone" {
		t.Errorf("Blocks = %v", loaded.Blocks)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	s := newTestStorage(t, t.TempDir())
	cfg := config.DefaultConfig()
	if err := s.LoadConfig(cfg); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Seed != config.DefaultConfig().Seed {
		t.Error("missing file changed the config")
	}
}

func TestLoadConfigPartialFile(t *testing.T) {
	dir := t.TempDir()
	s := newTestStorage(t, dir)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("seed: 5\nacquire_timeout: 2s\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	if err := s.LoadConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Seed != 5 || cfg.AcquireTimeout != 2*time.Second {
		t.Errorf("loaded = %+v", cfg)
	}
	if cfg.Generator != config.GeneratorTerrain {
		t.Errorf("Generator = %q, want default kept", cfg.Generator)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	s := newTestStorage(t, dir)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("seed: [1, 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.LoadConfig(config.DefaultConfig()); err == nil {
		t.Error("expected parse error")
	}
}

func TestObserverRoundTrip(t *testing.T) {
	s := newTestStorage(t, t.TempDir())

	got, err := s.LoadObserver()
	if err != nil || got != nil {
		t.Fatalf("LoadObserver on empty dir = %v, %v", got, err)
	}

	want := player.Position{X: 1.5, Y: 20, Z: -3.25, Yaw: 45, Pitch: -10}
	if err := s.SaveObserver(want); err != nil {
		t.Fatal(err)
	}
	got, err = s.LoadObserver()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || *got != want {
		t.Errorf("LoadObserver = %+v, want %+v", got, want)
	}
}

func TestEditsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := newTestStorage(t, dir)
	pos := chunk.Pos{X: -4, Z: 9}

	if edits, err := s.LoadEdits(pos); err != nil || edits != nil {
		t.Fatalf("LoadEdits on empty store = %v, %v", edits, err)
	}

	in := []world.Edit{
		{Index: chunk.Index(31, 31, 31), Block: 1},
		{Index: 0, Block: block.Air},
		{Index: chunk.Index(3, 4, 5), Block: 0},
	}
	if err := s.SaveEdits(pos, in); err != nil {
		t.Fatalf("SaveEdits: %v", err)
	}

	out, err := s.LoadEdits(pos)
	if err != nil {
		t.Fatalf("LoadEdits: %v", err)
	}
	want := []world.Edit{in[1], in[2], in[0]}
	if len(out) != len(want) {
		t.Fatalf("edits = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("edit %d = %v, want %v", i, out[i], want[i])
		}
	}

	if n, err := s.EditedChunks(); err != nil || n != 1 {
		t.Errorf("EditedChunks = %d, %v", n, err)
	}

	// Saved edits survive reopening.
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	reopened := newTestStorage(t, dir)
	out, err = reopened.LoadEdits(pos)
	if err != nil || len(out) != len(want) {
		t.Fatalf("LoadEdits after reopen = %v, %v", out, err)
	}
}

func TestSaveEditsReplacesAndDeletes(t *testing.T) {
	s := newTestStorage(t, t.TempDir())
	pos := chunk.Pos{X: 1, Z: 1}

	if err := s.SaveEdits(pos, []world.Edit{{Index: 1, Block: 1}, {Index: 2, Block: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveEdits(pos, []world.Edit{{Index: 7, Block: 0}}); err != nil {
		t.Fatal(err)
	}
	out, err := s.LoadEdits(pos)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != (world.Edit{Index: 7, Block: 0}) {
		t.Errorf("edits = %v, want the replacement", out)
	}

	if err := s.SaveEdits(pos, nil); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.EditedChunks(); n != 0 {
		t.Errorf("EditedChunks = %d after delete, want 0", n)
	}
}

func TestDecodeEditsCorrupt(t *testing.T) {
	valid := encodeEdits([]world.Edit{{Index: 10, Block: 3}})
	tests := map[string][]byte{
		"empty":     nil,
		"truncated": valid[:len(valid)-1],
		"trailing":  append(append([]byte(nil), valid...), 0),
		"index":     encodeEdits([]world.Edit{{Index: chunk.Volume, Block: 1}}),
	}
	for name, b := range tests {
		if _, err := decodeEdits(b); !errors.Is(err, errCorruptEdits) {
			t.Errorf("%s: err = %v, want errCorruptEdits", name, err)
		}
	}
}

func TestManagerPersistsThroughStorage(t *testing.T) {
	s := newTestStorage(t, t.TempDir())
	cat := block.NewCatalog(assets.Builtin())
	if err := cat.RegisterAll(gen.DirtBlock, gen.GrassBlock); err != nil {
		t.Fatal(err)
	}
	m := world.NewManager(cat, gen.NewFlat(4), world.WithEditStore(s), world.WithLogger(testLogger()))

	if err := m.LoadAutomatic(world.BlockPos{}); err != nil {
		t.Fatal(err)
	}
	p := world.BlockPos{X: -3, Y: 4, Z: 7}
	m.SetBlock(p, block.Air)

	// Walking far away unloads and saves the edited chunk.
	if err := m.LoadAutomatic(world.BlockPos{X: 100 * chunk.Size}); err != nil {
		t.Fatal(err)
	}
	if n, err := s.EditedChunks(); err != nil || n != 1 {
		t.Fatalf("EditedChunks = %d, %v; want 1", n, err)
	}

	if err := m.LoadAutomatic(world.BlockPos{}); err != nil {
		t.Fatal(err)
	}
	if got := m.GetBlock(p); got != block.Air {
		t.Errorf("GetBlock after reload = %d, want air", got)
	}
}
