package storage

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/OCharnyshevich/voxelstream/internal/block"
	"github.com/OCharnyshevich/voxelstream/internal/world"
	"github.com/OCharnyshevich/voxelstream/internal/world/chunk"
)

var _ world.EditStore = (*Storage)(nil)

func openEdits(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open edit database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS chunk_edits (
			x INTEGER NOT NULL,
			z INTEGER NOT NULL,
			edits INTEGER NOT NULL,
			data BLOB NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (x, z)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init edit database: %w", err)
		}
	}
	return db, nil
}

// LoadEdits returns the edits saved for the chunk at pos, or nil if none.
func (s *Storage) LoadEdits(pos chunk.Pos) ([]world.Edit, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT data FROM chunk_edits WHERE x = ? AND z = ?`, pos.X, pos.Z).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query edits of chunk %v: %w", pos, err)
	}

	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress edits of chunk %v: %w", pos, err)
	}
	edits, err := decodeEdits(raw)
	if err != nil {
		return nil, fmt.Errorf("decode edits of chunk %v: %w", pos, err)
	}
	return edits, nil
}

// SaveEdits replaces the edits saved for the chunk at pos. Saving no edits
// removes the chunk's record.
func (s *Storage) SaveEdits(pos chunk.Pos, edits []world.Edit) error {
	if len(edits) == 0 {
		if _, err := s.db.Exec(`DELETE FROM chunk_edits WHERE x = ? AND z = ?`, pos.X, pos.Z); err != nil {
			return fmt.Errorf("delete edits of chunk %v: %w", pos, err)
		}
		return nil
	}

	blob := s.enc.EncodeAll(encodeEdits(edits), nil)
	_, err := s.db.Exec(`INSERT INTO chunk_edits (x, z, edits, data, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(x, z) DO UPDATE SET edits = excluded.edits, data = excluded.data, updated_at = excluded.updated_at`,
		pos.X, pos.Z, len(edits), blob, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save edits of chunk %v: %w", pos, err)
	}
	s.log.Debug("saved chunk edits", "chunk", pos, "edits", len(edits), "bytes", len(blob))
	return nil
}

// EditedChunks returns the number of chunks with saved edits.
func (s *Storage) EditedChunks() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunk_edits`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count edited chunks: %w", err)
	}
	return n, nil
}

// encodeEdits writes the edit count followed by index deltas and block ids
// as varints, with indices in ascending order.
func encodeEdits(edits []world.Edit) []byte {
	sorted := append([]world.Edit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	buf := make([]byte, 0, binary.MaxVarintLen64*(1+2*len(sorted)))
	buf = binary.AppendUvarint(buf, uint64(len(sorted)))
	prev := 0
	for _, e := range sorted {
		buf = binary.AppendUvarint(buf, uint64(e.Index-prev))
		buf = binary.AppendUvarint(buf, uint64(e.Block))
		prev = e.Index
	}
	return buf
}

func decodeEdits(b []byte) ([]world.Edit, error) {
	n, k := binary.Uvarint(b)
	if k <= 0 || n > chunk.Volume {
		return nil, errCorruptEdits
	}
	b = b[k:]

	edits := make([]world.Edit, 0, n)
	idx := 0
	for i := uint64(0); i < n; i++ {
		delta, k := binary.Uvarint(b)
		if k <= 0 || delta >= chunk.Volume {
			return nil, errCorruptEdits
		}
		b = b[k:]
		id, k := binary.Uvarint(b)
		if k <= 0 || id > uint64(block.Air) {
			return nil, errCorruptEdits
		}
		b = b[k:]

		idx += int(delta)
		if idx >= chunk.Volume {
			return nil, errCorruptEdits
		}
		edits = append(edits, world.Edit{Index: idx, Block: block.ID(id)})
	}
	if len(b) != 0 {
		return nil, errCorruptEdits
	}
	return edits, nil
}
