package occumap

import "math"

// SDFGenerator derives a Euclidean-approximate signed distance field from
// an occupancy map by bucketed wavefront propagation.
type SDFGenerator struct {
	Classifier  Classifier
	MaxDistance F
	// Profiler records the seed/propagate scope durations, if set.
	// A nil Profiler is treated as NoopProfiler.
	Profiler Profiler
}

// Generate runs seed+propagate over occupancyMap, returning a HashedBlocks
// of F with default value +MaxDistance.
func (g SDFGenerator) Generate(occupancyMap *HashedWaveletOctree) *HashedBlocks {
	profiler := g.Profiler
	if profiler == nil {
		profiler = NoopProfiler{}
	}
	defer profiler.StartScope("sdf.Generate")()

	minCellWidth := occupancyMap.GetMinCellWidth()
	sdf := NewHashedBlocks(occupancyMap.GetTreeHeight(), minCellWidth, g.MaxDistance)

	numBins := int(math.Ceil(float64(g.MaxDistance/minCellWidth))) + 1
	open := NewBucketQueue(numBins, g.MaxDistance)

	func() {
		defer profiler.StartScope("sdf.seed")()
		g.seed(occupancyMap, sdf, open)
	}()
	func() {
		defer profiler.StartScope("sdf.propagate")()
		g.propagate(occupancyMap, sdf, open)
	}()
	return sdf
}

// seed initializes the SDF at every free voxel bordering an occupied
// node, the starting frontier for propagate's wavefront.
func (g SDFGenerator) seed(occupancyMap *HashedWaveletOctree, sdf *HashedBlocks, open *BucketQueue) {
	minCellWidth := occupancyMap.GetMinCellWidth()
	occupancyMap.ForEachLeaf(func(nodeIdx OctreeIndex, value F) {
		if !g.Classifier.Is(value, OccupancyOccupied) {
			return
		}
		minCorner := nodeIdx.MinCornerIndex()
		maxCorner := nodeIdx.MaxCornerIndex()
		grid := Grid{
			Min: Index3{minCorner.X - 1, minCorner.Y - 1, minCorner.Z - 1},
			Max: Index3{maxCorner.X + 1, maxCorner.Y + 1, maxCorner.Z + 1},
		}
		grid.ForEach(func(idx Index3) {
			nearestInner := CwiseMinIndex3(CwiseMaxIndex3(idx, minCorner), maxCorner)
			if idx == nearestInner {
				// Inside the occupied node; handled by propagation's sign flip.
				return
			}
			occ := occupancyMap.GetCellValue(idx)
			if !g.Classifier.Is(occ, OccupancyFree) {
				return
			}
			ptr := sdf.GetOrAllocateValue(idx)
			uninitialized := *ptr == sdf.GetDefaultValue()
			diff := SubIndex3(idx, nearestInner)
			dist := 0.5 * minCellWidth * NormVec3(Index3ToVec3(diff))
			if dist < *ptr {
				*ptr = dist
			}
			if uninitialized {
				open.Push(dist, idx)
			}
		})
	})
}

// propagate runs the bucketed wavefront expansion, including the sign-flip
// handling at the occupied/free zero-crossing.
func (g SDFGenerator) propagate(occupancyMap *HashedWaveletOctree, sdf *HashedBlocks, open *BucketQueue) {
	minCellWidth := occupancyMap.GetMinCellWidth()
	offsets := neighborOffsets26()
	lengths := make([]F, len(offsets))
	for i, o := range offsets {
		lengths[i] = NormVec3(Index3ToVec3(o)) * minCellWidth
	}

	for !open.Empty() {
		idx := open.Front()
		open.Pop()
		sdfValue := sdf.GetCellValue(idx)
		dfValue := absF(sdfValue)

		for i, off := range offsets {
			candidate := dfValue + lengths[i]
			if candidate >= g.MaxDistance {
				continue
			}

			neighborIdx := AddIndex3(idx, off)
			neighborPtr := sdf.GetOrAllocateValue(neighborIdx)
			uninitialized := *neighborPtr == sdf.GetDefaultValue()
			if uninitialized {
				occ := occupancyMap.GetCellValue(neighborIdx)
				if g.Classifier.Is(occ, OccupancyUnobserved) {
					continue
				}
				if g.Classifier.Is(occ, OccupancyOccupied) {
					*neighborPtr = -sdf.GetDefaultValue()
				}
			}

			crossedSurface := signbitF(*neighborPtr) != signbitF(sdfValue)
			if crossedSurface {
				if *neighborPtr < 0 {
					candidate = lengths[i] - dfValue
				} else {
					continue
				}
			}

			neighborDf := absF(*neighborPtr)
			if candidate < neighborDf {
				neighborDf = candidate
			}
			*neighborPtr = copysignF(neighborDf, *neighborPtr)

			if uninitialized {
				open.Push(candidate, neighborIdx)
			}
		}
	}
}

func signbitF(v F) bool {
	return math.Signbit(float64(v))
}

func copysignF(mag, sign F) F {
	return F(math.Copysign(float64(mag), float64(sign)))
}

// neighborOffsets26 returns the 26 integer offsets of a 3x3x3 Moore
// neighborhood, excluding the origin.
func neighborOffsets26() []Index3 {
	offsets := make([]Index3, 0, 26)
	for dz := I(-1); dz <= 1; dz++ {
		for dy := I(-1); dy <= 1; dy++ {
			for dx := I(-1); dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				offsets = append(offsets, Index3{dx, dy, dz})
			}
		}
	}
	return offsets
}
