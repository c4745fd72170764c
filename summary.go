package occumap

import "math"

// MapSummary reports the geometric extent and composition of an occupancy
// map: a single min/max/count rollup over every leaf.
type MapSummary struct {
	MinCorner     Vec3
	MaxCorner     Vec3
	NumBlocks     int
	NumNodes      int
	NumLeaves     int
	NumOccupied   int
	NumFree       int
	NumUnobserved int
}

// Summarize walks every leaf of m once, classifying it with c and folding
// its extent into the running bounding box. NumNodes sums each block's
// sparse-tree node count, a rough measure of compression effectiveness
// relative to NumBlocks*(1<<treeHeight)^3 dense cells.
func Summarize(m *HashedWaveletOctree, c Classifier) MapSummary {
	s := MapSummary{NumBlocks: m.Size()}
	minCellWidth := m.GetMinCellWidth()

	for _, block := range m.blocks {
		s.NumNodes += block.NodeCount()
	}

	first := true
	m.ForEachLeaf(func(idx OctreeIndex, value F) {
		s.NumLeaves++
		switch c.Classify(value) {
		case OccupancyOccupied:
			s.NumOccupied++
		case OccupancyFree:
			s.NumFree++
		default:
			s.NumUnobserved++
		}

		box := idx.ToAABB(minCellWidth)
		if first {
			s.MinCorner, s.MaxCorner = box.Min, box.Max
			first = false
			return
		}
		s.MinCorner = Vec3{
			F(math.Min(float64(s.MinCorner.X), float64(box.Min.X))),
			F(math.Min(float64(s.MinCorner.Y), float64(box.Min.Y))),
			F(math.Min(float64(s.MinCorner.Z), float64(box.Min.Z))),
		}
		s.MaxCorner = Vec3{
			F(math.Max(float64(s.MaxCorner.X), float64(box.Max.X))),
			F(math.Max(float64(s.MaxCorner.Y), float64(box.Max.Y))),
			F(math.Max(float64(s.MaxCorner.Z), float64(box.Max.Z))),
		}
	})
	return s
}
