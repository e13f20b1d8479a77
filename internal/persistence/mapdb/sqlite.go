package mapdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"wavemap/internal/gen/catalogs"
	"wavemap/internal/gen/wave"
)

// Store indexes a generated map in SQLite: one row per materialized cell
// plus run metadata and optional dense layer exports. Writes go through a
// single writer goroutine so the solver never blocks on disk.
type Store struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqCell reqKind = iota + 1
	reqLayer
	reqMeta
	reqSync
)

type req struct {
	kind reqKind

	cell  cellRow
	layer layerRow
	meta  metaRow
	done  chan struct{}
}

type cellRow struct {
	X, Y, Z   int
	Prototype string
}

type layerRow struct {
	Y    int
	MinX int
	MinZ int
	SX   int
	SZ   int
	RLE  string
}

type metaRow struct {
	Key   string
	Value string
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db: db,
		// Buffered for bursty build-queue drains without stalling the solve.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS cells (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			prototype TEXT NOT NULL,
			PRIMARY KEY (x, y, z)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cells_layer ON cells(y);`,
		`CREATE TABLE IF NOT EXISTS layers (
			y INTEGER PRIMARY KEY,
			min_x INTEGER NOT NULL,
			min_z INTEGER NOT NULL,
			size_x INTEGER NOT NULL,
			size_z INTEGER NOT NULL,
			rle TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Build implements wave.Builder: each drained build-queue entry becomes
// one cell row. The engine treats this as fire-and-forget.
func (s *Store) Build(c wave.Coord, p *catalogs.Prototype) {
	s.WriteCell(c.X, c.Y, c.Z, p.ID)
}

func (s *Store) WriteCell(x, y, z int, prototype string) {
	if s == nil || s.closed.Load() {
		return
	}
	s.ch <- req{kind: reqCell, cell: cellRow{X: x, Y: y, Z: z, Prototype: prototype}}
}

// WriteLayer records a dense RLE export of one height layer.
func (s *Store) WriteLayer(y, minX, minZ, sizeX, sizeZ int, rle string) {
	if s == nil || s.closed.Load() {
		return
	}
	s.ch <- req{kind: reqLayer, layer: layerRow{Y: y, MinX: minX, MinZ: minZ, SX: sizeX, SZ: sizeZ, RLE: rle}}
}

func (s *Store) PutMeta(key, value string) {
	if s == nil || s.closed.Load() {
		return
	}
	s.ch <- req{kind: reqMeta, meta: metaRow{Key: key, Value: value}}
}

// Flush blocks until every previously queued write has been committed.
func (s *Store) Flush() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqSync, done: done}
	<-done
}

func (s *Store) loop() {
	ctx := context.Background()

	insertCell, _ := s.db.Prepare(`INSERT OR REPLACE INTO cells(x,y,z,prototype) VALUES(?,?,?,?)`)
	insertLayer, _ := s.db.Prepare(`INSERT OR REPLACE INTO layers(y,min_x,min_z,size_x,size_z,rle) VALUES(?,?,?,?,?,?)`)
	insertMeta, _ := s.db.Prepare(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`)
	defer func() {
		if insertCell != nil {
			_ = insertCell.Close()
		}
		if insertLayer != nil {
			_ = insertLayer.Close()
		}
		if insertMeta != nil {
			_ = insertMeta.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}

		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqCell:
			if insertCell == nil {
				continue
			}
			if _, err := tx.Stmt(insertCell).Exec(r.cell.X, r.cell.Y, r.cell.Z, r.cell.Prototype); err != nil {
				rollback()
				continue
			}
			opCount++
		case reqLayer:
			if insertLayer == nil {
				continue
			}
			if _, err := tx.Stmt(insertLayer).Exec(r.layer.Y, r.layer.MinX, r.layer.MinZ, r.layer.SX, r.layer.SZ, r.layer.RLE); err != nil {
				rollback()
				continue
			}
			opCount++
		case reqMeta:
			if insertMeta == nil {
				continue
			}
			if _, err := tx.Stmt(insertMeta).Exec(r.meta.Key, r.meta.Value); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}

// CountCells returns the number of materialized cell rows.
func (s *Store) CountCells() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM cells`).Scan(&n)
	return n, err
}

// GetCell returns the prototype id stored at a coordinate, or "" when the
// cell was never materialized.
func (s *Store) GetCell(x, y, z int) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT prototype FROM cells WHERE x=? AND y=? AND z=?`, x, y, z).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

// GetMeta returns the value for a metadata key, or "" when unset.
func (s *Store) GetMeta(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

// GetLayer returns a stored layer export.
func (s *Store) GetLayer(y int) (minX, minZ, sizeX, sizeZ int, rle string, err error) {
	err = s.db.QueryRow(`SELECT min_x,min_z,size_x,size_z,rle FROM layers WHERE y=?`, y).
		Scan(&minX, &minZ, &sizeX, &sizeZ, &rle)
	if err == sql.ErrNoRows {
		return 0, 0, 0, 0, "", nil
	}
	return minX, minZ, sizeX, sizeZ, rle, err
}
