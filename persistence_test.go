package occumap

import (
	"path/filepath"
	"testing"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

func newTestTiledbContext(t *testing.T) *tiledb.Context {
	t.Helper()
	config, err := tiledb.NewConfig()
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}
	defer config.Free()

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	return ctx
}

func TestSaveLoadOccupancyRoundTrip(t *testing.T) {
	ctx := newTestTiledbContext(t)
	uri := filepath.Join(t.TempDir(), "map")

	const treeHeight = 2
	const minCellWidth = F(0.5)
	const minLogOdds, maxLogOdds = F(-4), F(4)

	m := NewHashedWaveletOctree(treeHeight, minCellWidth, minLogOdds, maxLogOdds)
	block := m.GetOrAllocateBlock(Index3{0, 0, 0})
	block.setReconstructedValue(0, Index3{1, 0, 0}, 2.5)
	block.setReconstructedValue(0, Index3{2, 1, 0}, -1.5)

	if err := SaveOccupancy(ctx, uri, m); err != nil {
		t.Fatalf("SaveOccupancy failed: %v", err)
	}

	loaded, err := LoadOccupancy(ctx, uri, treeHeight, minCellWidth, minLogOdds, maxLogOdds)
	if err != nil {
		t.Fatalf("LoadOccupancy failed: %v", err)
	}

	leaf := Index3{1, 0, 0}
	if got := loaded.GetCellValue(leaf); absF(got-2.5) > 1e-2 {
		t.Fatalf("GetCellValue(%+v) after round trip = %v, want ~2.5", leaf, got)
	}
}

func TestSaveOccupancyEmptyMapIsNoop(t *testing.T) {
	ctx := newTestTiledbContext(t)
	uri := filepath.Join(t.TempDir(), "empty-map")

	m := NewHashedWaveletOctree(2, 0.5, -4, 4)
	if err := SaveOccupancy(ctx, uri, m); err != nil {
		t.Fatalf("SaveOccupancy(empty map) returned error: %v", err)
	}
}
