package mapdb

import (
	"path/filepath"
	"testing"

	"wavemap/internal/encoding"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "map.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CellsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	s.WriteCell(0, 0, 0, "ground")
	s.WriteCell(1, 0, 0, "platform")
	s.WriteCell(0, 1, 0, "air")
	// Rewriting a coordinate replaces the row.
	s.WriteCell(0, 0, 0, "rock")
	s.Flush()

	n, err := s.CountCells()
	if err != nil {
		t.Fatalf("CountCells: %v", err)
	}
	if n != 3 {
		t.Fatalf("cell count = %d, want 3", n)
	}

	got, err := s.GetCell(0, 0, 0)
	if err != nil {
		t.Fatalf("GetCell: %v", err)
	}
	if got != "rock" {
		t.Fatalf("GetCell(0,0,0) = %q, want rock", got)
	}
	if got, _ := s.GetCell(9, 9, 9); got != "" {
		t.Fatalf("absent cell returned %q", got)
	}
}

func TestStore_MetaAndLayers(t *testing.T) {
	s := openTestStore(t)

	s.PutMeta("run_id", "r1")
	s.PutMeta("seed", "1337")

	rle := encoding.EncodeRLE([]uint16{1, 1, 0, 2})
	s.WriteLayer(0, -2, -2, 2, 2, rle)
	s.Flush()

	if v, err := s.GetMeta("run_id"); err != nil || v != "r1" {
		t.Fatalf("GetMeta(run_id) = %q, %v", v, err)
	}
	if v, _ := s.GetMeta("missing"); v != "" {
		t.Fatalf("unset key returned %q", v)
	}

	minX, minZ, sx, sz, gotRLE, err := s.GetLayer(0)
	if err != nil {
		t.Fatalf("GetLayer: %v", err)
	}
	if minX != -2 || minZ != -2 || sx != 2 || sz != 2 || gotRLE != rle {
		t.Fatalf("layer mismatch: (%d,%d,%d,%d) %q", minX, minZ, sx, sz, gotRLE)
	}
	ids, err := encoding.DecodeRLE(gotRLE)
	if err != nil || len(ids) != 4 {
		t.Fatalf("stored layer not decodable: %v %v", ids, err)
	}
}

func TestStore_WriteAfterCloseIsDropped(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "map.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Must not panic or block on the closed channel.
	s.WriteCell(0, 0, 0, "ground")
	s.PutMeta("k", "v")
	s.Flush()
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
