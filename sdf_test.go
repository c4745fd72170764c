package occumap

import "testing"

func TestSDFGeneratorGenerateEmptyMapIsAllDefault(t *testing.T) {
	m := NewHashedWaveletOctree(2, 1.0, -4, 4)
	g := SDFGenerator{Classifier: DefaultClassifier(), MaxDistance: 3.0}

	sdf := g.Generate(m)
	if !sdf.Empty() {
		t.Fatalf("Generate(empty occupancy map) allocated blocks, want none")
	}
}

func TestSDFGeneratorGenerateSeedsNearOccupiedVoxel(t *testing.T) {
	m := NewHashedWaveletOctree(2, 1.0, -4, 4)
	block := m.GetOrAllocateBlock(Index3{0, 0, 0})
	block.setReconstructedValue(0, Index3{2, 2, 2}, 3.0)  // occupied
	block.setReconstructedValue(0, Index3{3, 2, 2}, -3.0) // free, adjacent

	g := SDFGenerator{Classifier: DefaultClassifier(), MaxDistance: 3.0}
	sdf := g.Generate(m)

	got := sdf.GetCellValue(Index3{3, 2, 2})
	if got <= 0 || got >= g.MaxDistance {
		t.Fatalf("SDF value adjacent to an occupied voxel = %v, want in (0, %v)", got, g.MaxDistance)
	}
}

func TestSDFGeneratorGenerateRespectsProfiler(t *testing.T) {
	m := NewHashedWaveletOctree(2, 1.0, -4, 4)
	block := m.GetOrAllocateBlock(Index3{0, 0, 0})
	block.setReconstructedValue(0, Index3{2, 2, 2}, 3.0)
	block.setReconstructedValue(0, Index3{3, 2, 2}, -3.0)

	profiler := NewTimingProfiler()
	g := SDFGenerator{Classifier: DefaultClassifier(), MaxDistance: 3.0, Profiler: profiler}
	g.Generate(m)

	for _, scope := range []string{"sdf.Generate", "sdf.seed", "sdf.propagate"} {
		if _, ok := profiler.Durations[scope]; !ok {
			t.Fatalf("profiler missing recorded scope %q", scope)
		}
	}
}

func TestNeighborOffsets26ExcludesOriginAndHas26Entries(t *testing.T) {
	offsets := neighborOffsets26()
	if len(offsets) != 26 {
		t.Fatalf("neighborOffsets26() returned %d offsets, want 26", len(offsets))
	}
	for _, o := range offsets {
		if o == (Index3{0, 0, 0}) {
			t.Fatalf("neighborOffsets26() included the origin")
		}
	}
}
