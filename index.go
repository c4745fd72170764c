package occumap

// OctreeIndex identifies a node in the sparse octree: a height above the
// leaf level and a position in units of the node's own width.
// Height 0 is a leaf cell of width MinCellWidth; a node at height h covers
// a cube of side MinCellWidth*2^h whose min corner is
// position*2^h*MinCellWidth.
type OctreeIndex struct {
	Height   int
	Position Index3
}

// NumChildren is the branching factor of the octree (D=3 => 2^3).
const NumChildren = 8

// ChildIndex computes the index of a child given its relative child number
// 0..7, whose bit pattern encodes the (x,y,z) offset: bit0=x, bit1=y,
// bit2=z, matching AABB.Corners' convention.
func (idx OctreeIndex) ChildIndex(relative int) OctreeIndex {
	child := OctreeIndex{Height: idx.Height - 1}
	base := Index3{idx.Position.X * 2, idx.Position.Y * 2, idx.Position.Z * 2}
	if relative&1 != 0 {
		base.X++
	}
	if relative&2 != 0 {
		base.Y++
	}
	if relative&4 != 0 {
		base.Z++
	}
	child.Position = base
	return child
}

// ParentIndex computes the parent of a node (height+1).
func (idx OctreeIndex) ParentIndex() OctreeIndex {
	return OctreeIndex{
		Height: idx.Height + 1,
		Position: Index3{
			floorDiv2(idx.Position.X),
			floorDiv2(idx.Position.Y),
			floorDiv2(idx.Position.Z),
		},
	}
}

func floorDiv2(v I) I {
	if v >= 0 {
		return v / 2
	}
	return -((-v + 1) / 2)
}

// RelativeChildIndex returns which of the 8 children of idx.ParentIndex()
// this index is, the inverse of ChildIndex.
func (idx OctreeIndex) RelativeChildIndex() int {
	rel := 0
	if mod2(idx.Position.X) != 0 {
		rel |= 1
	}
	if mod2(idx.Position.Y) != 0 {
		rel |= 2
	}
	if mod2(idx.Position.Z) != 0 {
		rel |= 4
	}
	return rel
}

func mod2(v I) I {
	m := v % 2
	if m < 0 {
		m += 2
	}
	return m
}

// Width returns the side length of the cube covered by this node.
func (idx OctreeIndex) Width(minCellWidth F) F {
	return minCellWidth * F(int64(1)<<uint(idx.Height))
}

// MinCorner returns the world-frame minimum corner of the node's cube.
func (idx OctreeIndex) MinCorner(minCellWidth F) Vec3 {
	w := idx.Width(minCellWidth)
	return Vec3{F(idx.Position.X) * w, F(idx.Position.Y) * w, F(idx.Position.Z) * w}
}

// ToAABB returns the node's cube as an AABB in world coordinates.
func (idx OctreeIndex) ToAABB(minCellWidth F) AABB {
	min := idx.MinCorner(minCellWidth)
	w := idx.Width(minCellWidth)
	return AABB{Min: min, Max: Vec3{min.X + w, min.Y + w, min.Z + w}}
}

// MinCornerIndex / MaxCornerIndex return the inclusive leaf-index range
// covered by a node at any height, at leaf (height 0) resolution. Used by
// the SDF generator's seeding grid.
func (idx OctreeIndex) MinCornerIndex() Index3 {
	side := I(int64(1) << uint(idx.Height))
	return Index3{idx.Position.X * side, idx.Position.Y * side, idx.Position.Z * side}
}

func (idx OctreeIndex) MaxCornerIndex() Index3 {
	side := I(int64(1) << uint(idx.Height))
	min := idx.MinCornerIndex()
	return Index3{min.X + side - 1, min.Y + side - 1, min.Z + side - 1}
}

// PointToFloorIndex converts a world point into the leaf index whose cell
// contains it (floor division by MinCellWidth).
func PointToFloorIndex(p Vec3, minCellWidth F) Index3 {
	return Index3{
		floorDivF(p.X, minCellWidth),
		floorDivF(p.Y, minCellWidth),
		floorDivF(p.Z, minCellWidth),
	}
}

// PointToCeilIndex is PointToFloorIndex's ceiling counterpart, used to
// compute the max corner of a FOV AABB (integrator.go).
func PointToCeilIndex(p Vec3, minCellWidth F) Index3 {
	return Index3{
		ceilDivF(p.X, minCellWidth),
		ceilDivF(p.Y, minCellWidth),
		ceilDivF(p.Z, minCellWidth),
	}
}

func floorDivF(v, w F) I {
	q := v / w
	fq := fastFloor(q)
	return I(fq)
}

func ceilDivF(v, w F) I {
	q := v / w
	fq := fastFloor(q)
	if F(fq) != q {
		fq++
	}
	return I(fq)
}

func fastFloor(v F) int64 {
	iv := int64(v)
	if v < 0 && F(iv) != v {
		iv--
	}
	return iv
}

// IndexAndHeightToNodeIndex converts a leaf-resolution index plus a target
// height into the OctreeIndex of the node at that height containing it
// (floor division by 2^height, i.e. an arithmetic right shift, expressed
// in units of that height's node width).
func IndexAndHeightToNodeIndex(leafIndex Index3, height int) OctreeIndex {
	return OctreeIndex{
		Height: height,
		Position: Index3{
			shiftDown(leafIndex.X, height),
			shiftDown(leafIndex.Y, height),
			shiftDown(leafIndex.Z, height),
		},
	}
}

func shiftDown(v I, h int) I {
	if h <= 0 {
		return v
	}
	div := I(int64(1) << uint(h))
	return floorDivI(v, div)
}

func floorDivI(v, d I) I {
	q := v / d
	if (v%d != 0) && ((v < 0) != (d < 0)) {
		q--
	}
	return q
}

// BlockIndexFromWorld returns the block index (at system-wide tree_height)
// containing a world point.
func BlockIndexFromWorld(p Vec3, minCellWidth F, treeHeight int) Index3 {
	leaf := PointToFloorIndex(p, minCellWidth)
	node := IndexAndHeightToNodeIndex(leaf, treeHeight)
	return node.Position
}

// Grid enumerates every Index3 in the inclusive box [min, max], in
// x-fastest, then y, then z order. Used to enumerate FOV blocks and SDF
// seeding padding grids.
type Grid struct {
	Min, Max Index3
}

// ForEach visits every index in the grid.
func (g Grid) ForEach(visit func(Index3)) {
	for z := g.Min.Z; z <= g.Max.Z; z++ {
		for y := g.Min.Y; y <= g.Max.Y; y++ {
			for x := g.Min.X; x <= g.Max.X; x++ {
				visit(Index3{x, y, z})
			}
		}
	}
}

// Count returns the number of indices the grid covers.
func (g Grid) Count() int64 {
	dx := int64(g.Max.X) - int64(g.Min.X) + 1
	dy := int64(g.Max.Y) - int64(g.Min.Y) + 1
	dz := int64(g.Max.Z) - int64(g.Min.Z) + 1
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return 0
	}
	return dx * dy * dz
}
