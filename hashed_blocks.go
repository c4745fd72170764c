package occumap

// BlockIndex identifies a Block: the sub-tree rooted at (treeHeight,
// blockIndex), the unit of allocation/eviction/parallel update.
type BlockIndex = Index3

// hashMix is a VDB-style integer hash mix; any well-distributed hash
// works, the property tests only require absence of systematic collisions
// on axis-aligned walks.
func hashMix(idx Index3) uint64 {
	const (
		p1 = 73856093
		p2 = 19349663
		p3 = 83492791
	)
	x := uint64(uint32(idx.X)) * p1
	y := uint64(uint32(idx.Y)) * p2
	z := uint64(uint32(idx.Z)) * p3
	return x ^ y ^ z
}

// denseBlock is a dense array of side^3 leaf cells, used by HashedBlocks
// (the uncompressed flat-value variant, e.g. the SDF generator's output).
type denseBlock struct {
	cells []F
	side  int
}

func newDenseBlock(side int, defaultValue F) *denseBlock {
	cells := make([]F, side*side*side)
	for i := range cells {
		cells[i] = defaultValue
	}
	return &denseBlock{cells: cells, side: side}
}

func (b *denseBlock) offset(local Index3) int {
	return int(local.Z)*b.side*b.side + int(local.Y)*b.side + int(local.X)
}

// HashedBlocks is a sparse, hashed, block-granular map from Index3 (block
// index) to a dense array of F leaf cells. Missing keys behave
// as a block entirely filled with defaultValue. It is the uncompressed
// sibling of HashedWaveletOctree, used where no scale-pyramid compression
// is needed (the SDF generator's output map).
type HashedBlocks struct {
	blocks       map[Index3]*denseBlock
	treeHeight   int
	minCellWidth F
	defaultValue F
}

// NewHashedBlocks constructs an empty HashedBlocks container. treeHeight
// fixes the block side length to 2^treeHeight leaf cells per axis.
func NewHashedBlocks(treeHeight int, minCellWidth, defaultValue F) *HashedBlocks {
	return &HashedBlocks{
		blocks:       make(map[Index3]*denseBlock),
		treeHeight:   treeHeight,
		minCellWidth: minCellWidth,
		defaultValue: defaultValue,
	}
}

func (h *HashedBlocks) GetMinCellWidth() F   { return h.minCellWidth }
func (h *HashedBlocks) GetDefaultValue() F   { return h.defaultValue }
func (h *HashedBlocks) GetBlockSize() int    { return 1 << uint(h.treeHeight) }
func (h *HashedBlocks) GetTreeHeight() int   { return h.treeHeight }
func (h *HashedBlocks) Empty() bool          { return len(h.blocks) == 0 }
func (h *HashedBlocks) Size() int            { return len(h.blocks) }

// blockAndLocal splits a leaf index into its owning block index and the
// block-local offset, handling negative indices with floor semantics.
func (h *HashedBlocks) blockAndLocal(leaf Index3) (BlockIndex, Index3) {
	side := I(h.GetBlockSize())
	bx, lx := floorDivMod(leaf.X, side)
	by, ly := floorDivMod(leaf.Y, side)
	bz, lz := floorDivMod(leaf.Z, side)
	return Index3{bx, by, bz}, Index3{lx, ly, lz}
}

func floorDivMod(v, d I) (q, r I) {
	q = v / d
	r = v % d
	if r < 0 {
		q--
		r += d
	}
	return q, r
}

// GetBlock returns the block at idx if allocated.
func (h *HashedBlocks) GetBlock(idx BlockIndex) (*denseBlock, bool) {
	b, ok := h.blocks[idx]
	return b, ok
}

// GetOrAllocateBlock returns the block at idx, allocating a
// default-initialized one on miss.
func (h *HashedBlocks) GetOrAllocateBlock(idx BlockIndex) *denseBlock {
	if b, ok := h.blocks[idx]; ok {
		return b
	}
	b := newDenseBlock(h.GetBlockSize(), h.defaultValue)
	h.blocks[idx] = b
	return b
}

// GetCellValue returns the value at a leaf index, defaultValue if its
// block is unallocated.
func (h *HashedBlocks) GetCellValue(leaf Index3) F {
	bidx, local := h.blockAndLocal(leaf)
	b, ok := h.blocks[bidx]
	if !ok {
		return h.defaultValue
	}
	return b.cells[b.offset(local)]
}

// GetOrAllocateValue returns a pointer to the leaf cell's value, allocating
// its block on miss. Used by the SDF generator for in-place min() updates.
func (h *HashedBlocks) GetOrAllocateValue(leaf Index3) *F {
	bidx, local := h.blockAndLocal(leaf)
	b := h.GetOrAllocateBlock(bidx)
	return &b.cells[b.offset(local)]
}

// EraseBlockIf removes every block for which pred(blockIndex) is true.
// Deleting from a Go map while ranging over it is well defined, so pred is
// called once per block in a single pass and each matching block is
// deleted as soon as pred reports it.
func (h *HashedBlocks) EraseBlockIf(pred func(BlockIndex) bool) {
	for idx := range h.blocks {
		if pred(idx) {
			delete(h.blocks, idx)
		}
	}
}

// ForEachLeaf yields every allocated leaf cell as (OctreeIndex, value) in
// unspecified order; height is always 0 since HashedBlocks
// stores uncompressed per-leaf values.
func (h *HashedBlocks) ForEachLeaf(visit func(OctreeIndex, F)) {
	side := I(h.GetBlockSize())
	for bidx, b := range h.blocks {
		for z := I(0); z < side; z++ {
			for y := I(0); y < side; y++ {
				for x := I(0); x < side; x++ {
					local := Index3{x, y, z}
					v := b.cells[b.offset(local)]
					if v == h.defaultValue {
						continue
					}
					leaf := Index3{
						bidx.X*side + x,
						bidx.Y*side + y,
						bidx.Z*side + z,
					}
					visit(OctreeIndex{Height: 0, Position: leaf}, v)
				}
			}
		}
	}
}
