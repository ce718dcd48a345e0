package vector

import (
	"path/filepath"
	"testing"
)

func TestSnapshot_RoundTripFile(t *testing.T) {
	idx, _ := NewFlatIndex(4)
	vecs := map[string][]float32{
		"cv-1": {0.5, 0.5, 0.5, 0.5},
		"cv-2": {1, 0, 0, 0},
		"cv-3": {0, 0, 1, 0},
	}
	for _, id := range []string{"cv-1", "cv-2", "cv-3"} {
		if err := idx.Add(id, vecs[id]); err != nil {
			t.Fatal(err)
		}
	}
	query := []float32{0.9, 0.1, 0, 0}
	before, err := idx.Search(query, 3)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "candidates.idx")
	if err := idx.Snapshot().WriteFile(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := ReadSnapshotFile(path)
	if err != nil {
		t.Fatal(err)
	}
	restored, _ := NewFlatIndex(4)
	if err := restored.Restore(loaded); err != nil {
		t.Fatal(err)
	}

	after, err := restored.Search(query, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != len(after) {
		t.Fatalf("result counts differ: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Errorf("rank %d: %s vs %s", i, before[i].ID, after[i].ID)
		}
		if before[i].Distance != after[i].Distance {
			t.Errorf("rank %d distance: %f vs %f", i, before[i].Distance, after[i].Distance)
		}
	}
}

func TestSnapshot_RestoreDimensionMismatch(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	snap := &Snapshot{Dimensions: 4, IDs: []string{"a"}, Vectors: [][]float32{{1, 0, 0, 0}}}
	if err := idx.Restore(snap); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if idx.Positions() != 0 {
		t.Error("failed restore must leave the index unchanged")
	}
}

func TestReadSnapshotFile_Missing(t *testing.T) {
	if _, err := ReadSnapshotFile(filepath.Join(t.TempDir(), "nope.idx")); err == nil {
		t.Fatal("expected error for missing snapshot file")
	}
}
