package occumap

import "math"

// kUnknownRangeImageValueLowerBound/UpperBound are the identity elements
// of the min/max reducers respectively, standing in for "no observation
// here".
const (
	kUnknownRangeImageValueLowerBound F = math.MaxFloat32
	kUnknownRangeImageValueUpperBound F = 0
	kRangeMin                         F = 0.5
)

// RangeImage2D is a dense H x W grid of range values.
type RangeImage2D struct {
	Rows, Cols int
	Values     []F
}

// NewRangeImage2D allocates a grid filled with init.
func NewRangeImage2D(rows, cols int, init F) *RangeImage2D {
	v := make([]F, rows*cols)
	for i := range v {
		v[i] = init
	}
	return &RangeImage2D{Rows: rows, Cols: cols, Values: v}
}

func (r *RangeImage2D) At(row, col int) F {
	return r.Values[row*r.Cols+col]
}

func (r *RangeImage2D) Set(row, col int, v F) {
	r.Values[row*r.Cols+col] = v
}

// Reset fills every pixel with v, used by importPointcloud to clear the
// range image to "unknown" before re-populating it.
func (r *RangeImage2D) Reset(v F) {
	for i := range r.Values {
		r.Values[i] = v
	}
}

// valueOrInit applies the kRangeMin filter: spurious near-sensor returns
// are treated as unobserved so they cannot poison the min-pool bounds.
func valueOrInit(value, init F) F {
	if value < kRangeMin {
		return init
	}
	return value
}

// Reducer combines two range values into one, used to build the
// min/max-reduced bounds pyramids.
type Reducer func(a, b F) F

func MinReducer(a, b F) F {
	if a < b {
		return a
	}
	return b
}

func MaxReducer(a, b F) F {
	if a > b {
		return a
	}
	return b
}

// Pyramid is a stack of successively half-resolution RangeImage2D levels,
// level 0 being the finest.
type Pyramid struct {
	Levels  []*RangeImage2D
	reducer Reducer
	init    F
}

// BuildPyramid appends maxHeight successively halved levels to base (a
// level that is already 1x1 stays 1x1), padding any odd dimension with
// init.
func BuildPyramid(base *RangeImage2D, reducer Reducer, init F, maxHeight int) *Pyramid {
	levels := make([]*RangeImage2D, 0, maxHeight+1)
	levels = append(levels, base)
	cur := base
	for i := 0; i < maxHeight; i++ {
		rows := (cur.Rows + 1) / 2
		cols := (cur.Cols + 1) / 2
		if rows < 1 {
			rows = 1
		}
		if cols < 1 {
			cols = 1
		}
		next := NewRangeImage2D(rows, cols, init)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				v := init
				for dr := 0; dr < 2; dr++ {
					for dc := 0; dc < 2; dc++ {
						rr := r*2 + dr
						cc := c*2 + dc
						cell := init
						if rr < cur.Rows && cc < cur.Cols {
							cell = cur.At(rr, cc)
						}
						v = reducer(v, cell)
					}
				}
				next.Set(r, c, v)
			}
		}
		levels = append(levels, next)
		cur = next
	}
	return &Pyramid{Levels: levels, reducer: reducer, init: init}
}

// QuadIndex identifies a node of the 2D bounds pyramid, analogous to
// OctreeIndex but over a quadtree of image pixels.
type QuadIndex struct {
	Height   int
	Position Index2
}

// HierarchicalRangeImage pairs a base range image with min/max-reduced
// bounds pyramids, giving O(1)-per-level interval bound queries.
// AzimuthWraps is a construction-time flag rather than a compile-time
// generic parameter; both code paths it selects between are exercised and
// tested independently.
type HierarchicalRangeImage struct {
	Base         *RangeImage2D
	MinPyramid   *Pyramid
	MaxPyramid   *Pyramid
	AzimuthWraps bool
	MaxHeight    int
	paddedSize   int
}

// NewHierarchicalRangeImage builds the bounds pyramids from base.
func NewHierarchicalRangeImage(base *RangeImage2D, azimuthWraps bool) *HierarchicalRangeImage {
	n := base.Rows
	if base.Cols > n {
		n = base.Cols
	}
	maxHeight := ceilLog2(n)
	// The lower-bound pyramid sees every pixel below kRangeMin (including
	// the unknown value 0) as kUnknownRangeImageValueLowerBound; the
	// upper-bound pyramid is built from base unfiltered.
	lowerBase := NewRangeImage2D(base.Rows, base.Cols, kUnknownRangeImageValueLowerBound)
	for i, v := range base.Values {
		lowerBase.Values[i] = valueOrInit(v, kUnknownRangeImageValueLowerBound)
	}
	minP := BuildPyramid(lowerBase, MinReducer, kUnknownRangeImageValueLowerBound, maxHeight)
	maxP := BuildPyramid(base, MaxReducer, kUnknownRangeImageValueUpperBound, maxHeight)
	return &HierarchicalRangeImage{
		Base: base, MinPyramid: minP, MaxPyramid: maxP,
		AzimuthWraps: azimuthWraps, MaxHeight: maxHeight,
		paddedSize: 1 << uint(maxHeight),
	}
}

func ceilLog2(n int) int {
	h := 0
	size := 1
	for size < n {
		size *= 2
		h++
	}
	return h
}

// GetBounds returns the {lower, upper} bound for the pixel square a single
// quadtree node covers.
func (h *HierarchicalRangeImage) GetBounds(q QuadIndex) (lower, upper F) {
	lo := h.MinPyramid.Levels[q.Height].At(int(q.Position.Y), int(q.Position.X))
	hi := h.MaxPyramid.Levels[q.Height].At(int(q.Position.Y), int(q.Position.X))
	return lo, hi
}

// GetRangeBounds returns the {lower, upper} bound over the rectangular
// pixel interval [left, right] (inclusive), combining O(log H + log W)
// pyramid reads via a quadtree range descent. If AzimuthWraps and
// right.X < left.X, the interval is interpreted as wrapping through
// column 0 and split into two sub-queries.
func (h *HierarchicalRangeImage) GetRangeBounds(left, right Index2) (lower, upper F) {
	if h.AzimuthWraps && right.X < left.X {
		lo1, hi1 := h.queryRect(int(left.X), h.paddedSize-1, int(left.Y), int(right.Y))
		lo2, hi2 := h.queryRect(0, int(right.X), int(left.Y), int(right.Y))
		return MinReducer(lo1, lo2), MaxReducer(hi1, hi2)
	}
	return h.queryRect(int(left.X), int(right.X), int(left.Y), int(right.Y))
}

func (h *HierarchicalRangeImage) queryRect(qx0, qx1, qy0, qy1 int) (lower, upper F) {
	return h.queryNode(h.MaxHeight, 0, 0, qx0, qx1, qy0, qy1)
}

func (h *HierarchicalRangeImage) queryNode(level, nodeX, nodeY, qx0, qx1, qy0, qy1 int) (lower, upper F) {
	size := 1 << uint(level)
	x0 := nodeX * size
	x1 := x0 + size - 1
	y0 := nodeY * size
	y1 := y0 + size - 1
	if x1 < qx0 || x0 > qx1 || y1 < qy0 || y0 > qy1 {
		return kUnknownRangeImageValueLowerBound, kUnknownRangeImageValueUpperBound
	}
	if qx0 <= x0 && x1 <= qx1 && qy0 <= y0 && y1 <= qy1 {
		lvl := h.MinPyramid.Levels
		if level >= len(lvl) {
			level = len(lvl) - 1
		}
		lx, ly := clampToLevel(h.MinPyramid.Levels[level], nodeX, nodeY)
		lo := h.MinPyramid.Levels[level].At(ly, lx)
		hi := h.MaxPyramid.Levels[level].At(ly, lx)
		return lo, hi
	}
	if level == 0 {
		lx, ly := clampToLevel(h.Base, nodeX, nodeY)
		v := h.Base.At(ly, lx)
		return v, v
	}
	lower = kUnknownRangeImageValueLowerBound
	upper = kUnknownRangeImageValueUpperBound
	for cy := 0; cy < 2; cy++ {
		for cx := 0; cx < 2; cx++ {
			clo, chi := h.queryNode(level-1, nodeX*2+cx, nodeY*2+cy, qx0, qx1, qy0, qy1)
			lower = MinReducer(lower, clo)
			upper = MaxReducer(upper, chi)
		}
	}
	return lower, upper
}

func clampToLevel(img *RangeImage2D, x, y int) (int, int) {
	if x >= img.Cols {
		x = img.Cols - 1
	}
	if y >= img.Rows {
		y = img.Rows - 1
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y
}
