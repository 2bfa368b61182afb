// Package storage persists the driver's config, chunk edits and observer
// state under a data directory.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/OCharnyshevich/voxelstream/internal/config"
	"github.com/OCharnyshevich/voxelstream/internal/player"
)

// Storage handles persistence for config, world edits and observer data.
type Storage struct {
	dir string
	log *slog.Logger

	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder

	closed bool
}

// New creates a new Storage rooted at dir, creating subdirectories as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	dirs := []string{
		dir,
		filepath.Join(dir, "world"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", d, err)
		}
	}

	db, err := openEdits(filepath.Join(dir, "world", "edits.db"))
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Storage{dir: dir, log: log, db: db, enc: enc, dec: dec}, nil
}

// Close releases the edit database and codecs.
func (s *Storage) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.dec.Close()
	err := s.enc.Close()
	if cerr := s.db.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close edit database: %w", cerr)
	}
	return err
}

// LoadConfig reads config.yaml into cfg. If the file does not exist, cfg is unchanged.
func (s *Storage) LoadConfig(cfg *config.Config) error {
	path := filepath.Join(s.dir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	s.log.Info("loaded config from file", "path", path)
	return nil
}

// HasConfig reports whether config.yaml exists.
func (s *Storage) HasConfig() bool {
	_, err := os.Stat(filepath.Join(s.dir, "config.yaml"))
	return err == nil
}

// SaveConfig writes cfg to config.yaml atomically.
func (s *Storage) SaveConfig(cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return atomicWrite(filepath.Join(s.dir, "config.yaml"), data)
}

// LoadObserver reads observer.json and returns the saved position, or nil if not found.
func (s *Storage) LoadObserver() (*player.Position, error) {
	path := filepath.Join(s.dir, "observer.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read observer: %w", err)
	}

	var od ObserverData
	if err := json.Unmarshal(data, &od); err != nil {
		return nil, fmt.Errorf("parse observer: %w", err)
	}
	pos := od.Position.toPosition()
	return &pos, nil
}

// SaveObserver persists the observer's position to disk.
func (s *Storage) SaveObserver(pos player.Position) error {
	od := ObserverData{Position: positionData(pos)}
	return s.atomicWriteJSON(filepath.Join(s.dir, "observer.json"), &od)
}

// atomicWriteJSON marshals v to JSON and writes it atomically using a temp file + rename.
func (s *Storage) atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	return atomicWrite(path, data)
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

var errCorruptEdits = errors.New("corrupt chunk edits")
