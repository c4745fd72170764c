package occumap

import "testing"

func TestChildIndexParentIndexRoundTrip(t *testing.T) {
	parent := OctreeIndex{Height: 3, Position: Index3{-2, 5, 1}}
	for rel := 0; rel < NumChildren; rel++ {
		child := parent.ChildIndex(rel)
		if child.Height != parent.Height-1 {
			t.Fatalf("ChildIndex(%d).Height = %d, want %d", rel, child.Height, parent.Height-1)
		}
		if got := child.RelativeChildIndex(); got != rel {
			t.Fatalf("RelativeChildIndex() = %d, want %d", got, rel)
		}
		if got := child.ParentIndex(); got != parent {
			t.Fatalf("ChildIndex(%d).ParentIndex() = %+v, want %+v", rel, got, parent)
		}
	}
}

func TestPointToFloorIndexNegative(t *testing.T) {
	w := F(0.5)
	cases := []struct {
		p    Vec3
		want Index3
	}{
		{Vec3{0.1, 0.1, 0.1}, Index3{0, 0, 0}},
		{Vec3{-0.1, -0.1, -0.1}, Index3{-1, -1, -1}},
		{Vec3{-0.5, 0, 0.5}, Index3{-1, 0, 1}},
	}
	for _, c := range cases {
		if got := PointToFloorIndex(c.p, w); got != c.want {
			t.Fatalf("PointToFloorIndex(%+v, %v) = %+v, want %+v", c.p, w, got, c.want)
		}
	}
}

func TestPointToCeilIndexIsFloorOrFloorPlusOne(t *testing.T) {
	w := F(1.0)
	p := Vec3{1.25, -1.25, 0}
	floor := PointToFloorIndex(p, w)
	ceil := PointToCeilIndex(p, w)
	if ceil.X != floor.X+1 || ceil.Y != floor.Y+1 || ceil.Z != floor.Z {
		t.Fatalf("PointToCeilIndex(%+v) = %+v, PointToFloorIndex = %+v", p, ceil, floor)
	}
}

func TestIndexAndHeightToNodeIndexGroupsEightLeaves(t *testing.T) {
	base := Index3{8, 8, 8} // aligned to height-1 (2^1) boundary
	node := IndexAndHeightToNodeIndex(base, 1)
	for dx := I(0); dx < 2; dx++ {
		for dy := I(0); dy < 2; dy++ {
			for dz := I(0); dz < 2; dz++ {
				leaf := Index3{base.X + dx, base.Y + dy, base.Z + dz}
				got := IndexAndHeightToNodeIndex(leaf, 1)
				if got != node {
					t.Fatalf("IndexAndHeightToNodeIndex(%+v, 1) = %+v, want %+v", leaf, got, node)
				}
			}
		}
	}
}

func TestIndexAndHeightToNodeIndexNegative(t *testing.T) {
	got := IndexAndHeightToNodeIndex(Index3{-1, -1, -1}, 1)
	want := OctreeIndex{Height: 1, Position: Index3{-1, -1, -1}}
	if got != want {
		t.Fatalf("IndexAndHeightToNodeIndex(-1,-1,-1, 1) = %+v, want %+v", got, want)
	}
}

func TestGridForEachVisitsInclusiveBox(t *testing.T) {
	g := Grid{Min: Index3{0, 0, 0}, Max: Index3{1, 1, 0}}
	count := 0
	g.ForEach(func(Index3) { count++ })
	if count != 4 {
		t.Fatalf("Grid visited %d indices, want 4", count)
	}
	if got := g.Count(); got != 4 {
		t.Fatalf("Grid.Count() = %d, want 4", got)
	}
}

func TestGridCountEmptyWhenInverted(t *testing.T) {
	g := Grid{Min: Index3{5, 0, 0}, Max: Index3{0, 0, 0}}
	if got := g.Count(); got != 0 {
		t.Fatalf("Grid.Count() on inverted box = %d, want 0", got)
	}
}

func TestOctreeIndexWidthAndAABB(t *testing.T) {
	idx := OctreeIndex{Height: 2, Position: Index3{1, 0, 0}}
	w := idx.Width(0.1)
	if w != F(0.4) {
		t.Fatalf("Width(0.1) at height 2 = %v, want 0.4", w)
	}
	box := idx.ToAABB(0.1)
	if box.Min.X != 0.4 || box.Max.X != 0.8 {
		t.Fatalf("ToAABB = %+v, want min.X=0.4 max.X=0.8", box)
	}
}

func TestBlockIndexFromWorldMatchesIndexAndHeight(t *testing.T) {
	p := Vec3{12.3, -4.5, 0.2}
	minCellWidth := F(0.1)
	treeHeight := 6
	got := BlockIndexFromWorld(p, minCellWidth, treeHeight)
	want := IndexAndHeightToNodeIndex(PointToFloorIndex(p, minCellWidth), treeHeight).Position
	if got != want {
		t.Fatalf("BlockIndexFromWorld = %+v, want %+v", got, want)
	}
}
