package occumap

// ChunkedWaveletOctreeBlock is the chunked storage variant of
// WaveletOctreeBlock. Instead of one heap-allocated node per tree node,
// groups of ChunkHeight consecutive levels share a single flat-array
// allocation (a Chunk), improving cache locality for the coarse levels
// every recursive descent revisits.
//
// A node's identity inside this structure is a NodeHandle: a (chunk,
// offset) pair when the node is in-chunk, or a bare *Chunk when it is the
// root of a child chunk reached by crossing a chunk boundary. There is
// deliberately no optional pointer standing in for "no parent chunk"; the
// two cases are distinguished structurally instead.
const ChunkHeight = 2

// nodesPerChunk holds the root (offset 0) and its NumChildren children
// (offsets 1..NumChildren), the two levels ChunkHeight=2 covers.
const nodesPerChunk = 1 + NumChildren

// Chunk is one ChunkHeight-deep, densely allocated slab of the sparse
// octree. childChunks[offset][relativeChild] is non-nil only for offsets at
// the chunk's boundary level, where descending further crosses into a new
// Chunk; each of a boundary node's children roots its own Chunk.
type Chunk struct {
	details     [nodesPerChunk][7]F
	allocated   [nodesPerChunk]bool
	childChunks [nodesPerChunk][NumChildren]*Chunk
}

// nodeOffsetToLevelIndex splits a within-chunk offset into its level
// (0=root, ChunkHeight-1=boundary) and its index within that level.
func nodeOffsetToLevelIndex(offset int) (level, indexInLevel int) {
	if offset == 0 {
		return 0, 0
	}
	return 1, offset - 1
}

// nodeOffsetToChildOffset returns the in-chunk offset of relativeChild of
// the node at offset, and whether that child is still in-chunk (false
// means the child lives at the root of childChunks[offset][relativeChild]).
func nodeOffsetToChildOffset(offset, relativeChild int) (childOffset int, inChunk bool) {
	level, _ := nodeOffsetToLevelIndex(offset)
	if level < ChunkHeight-1 {
		return 1 + relativeChild, true
	}
	return 0, false
}

// NodeHandle identifies a node anywhere in a ChunkedWaveletOctreeBlock:
// either an offset inside chunk, or (when Chunk is the non-nil field and
// InChunk is false) the root of a separately allocated child chunk.
type NodeHandle struct {
	Chunk   *Chunk
	Offset  int
	InChunk bool
}

func (n NodeHandle) details() [7]F {
	return n.Chunk.details[n.Offset]
}

func (n NodeHandle) setDetails(d [7]F) {
	n.Chunk.details[n.Offset] = d
	n.Chunk.allocated[n.Offset] = true
}

func (n NodeHandle) isAllocated() bool {
	return n.Chunk.allocated[n.Offset]
}

// getOrAllocateChild returns the NodeHandle of relativeChild, allocating
// a new Chunk at a boundary crossing if needed.
func (n NodeHandle) getOrAllocateChild(relativeChild int) NodeHandle {
	childOffset, inChunk := nodeOffsetToChildOffset(n.Offset, relativeChild)
	if inChunk {
		n.Chunk.allocated[childOffset] = true
		return NodeHandle{Chunk: n.Chunk, Offset: childOffset, InChunk: true}
	}
	child := n.Chunk.childChunks[n.Offset][relativeChild]
	if child == nil {
		child = &Chunk{}
		n.Chunk.childChunks[n.Offset][relativeChild] = child
	}
	return NodeHandle{Chunk: child, Offset: 0, InChunk: false}
}

// getChild is getOrAllocateChild's non-allocating counterpart, returning
// ok=false if relativeChild has never been touched.
func (n NodeHandle) getChild(relativeChild int) (NodeHandle, bool) {
	childOffset, inChunk := nodeOffsetToChildOffset(n.Offset, relativeChild)
	if inChunk {
		h := NodeHandle{Chunk: n.Chunk, Offset: childOffset, InChunk: true}
		return h, h.isAllocated()
	}
	child := n.Chunk.childChunks[n.Offset][relativeChild]
	if child == nil {
		return NodeHandle{}, false
	}
	return NodeHandle{Chunk: child, Offset: 0, InChunk: false}, true
}

func (n NodeHandle) hasAnyChild() bool {
	for rel := 0; rel < NumChildren; rel++ {
		if h, ok := n.getChild(rel); ok && h.isAllocated() {
			return true
		}
	}
	return false
}

// ChunkedWaveletOctreeBlock is the chunked sibling of WaveletOctreeBlock,
// identical semantics over chunked storage.
type ChunkedWaveletOctreeBlock struct {
	rootScale  F
	root       *Chunk
	treeHeight int
	minLogOdds F
	maxLogOdds F
}

// NewChunkedWaveletOctreeBlock constructs an empty chunked block.
func NewChunkedWaveletOctreeBlock(treeHeight int, minLogOdds, maxLogOdds F) *ChunkedWaveletOctreeBlock {
	return &ChunkedWaveletOctreeBlock{
		root:       &Chunk{},
		treeHeight: treeHeight,
		minLogOdds: minLogOdds,
		maxLogOdds: maxLogOdds,
	}
}

func (b *ChunkedWaveletOctreeBlock) GetRootScale() F  { return b.rootScale }
func (b *ChunkedWaveletOctreeBlock) SetRootScale(v F) { b.rootScale = v }

func (b *ChunkedWaveletOctreeBlock) rootHandle() NodeHandle {
	return NodeHandle{Chunk: b.root, Offset: 0, InChunk: true}
}

// GetCellValue reconstructs the value at a block-relative OctreeIndex,
// descending chunk boundaries transparently via NodeHandle.
func (b *ChunkedWaveletOctreeBlock) GetCellValue(idx OctreeIndex) F {
	value := b.rootScale
	handle := b.rootHandle()
	height := b.treeHeight
	for height > idx.Height {
		height--
		rel := nodeRelativeChildAt(idx, height)
		children := Transform{}.Backward(value, handle.details())
		value = children[rel]
		child, ok := handle.getChild(rel)
		if !ok {
			break
		}
		handle = child
	}
	return value
}

// descendPath walks (allocating as needed) from the block root to idx,
// returning the NodeHandle at idx's height.
func (b *ChunkedWaveletOctreeBlock) descendPath(idx OctreeIndex) NodeHandle {
	handle := b.rootHandle()
	value := b.rootScale
	height := b.treeHeight
	for height > idx.Height {
		height--
		rel := nodeRelativeChildAt(idx, height)
		children := Transform{}.Backward(value, handle.details())
		value = children[rel]
		handle = handle.getOrAllocateChild(rel)
	}
	return handle
}

// ForEachLeaf visits every leaf of the current tree shape with its
// reconstructed value, mirroring WaveletOctreeBlock.ForEachLeaf over
// chunked storage: a node with no allocated children and all-zero details
// is visited once, one with no allocated children but non-zero details is
// visited as its NumChildren children.
func (b *ChunkedWaveletOctreeBlock) ForEachLeaf(blockOrigin Index3, visit func(OctreeIndex, F)) {
	root := OctreeIndex{Height: b.treeHeight, Position: blockOrigin}
	b.forEachLeafRec(b.rootHandle(), b.rootScale, root, visit)
}

func (b *ChunkedWaveletOctreeBlock) forEachLeafRec(handle NodeHandle, value F, idx OctreeIndex, visit func(OctreeIndex, F)) {
	if !handle.hasAnyChild() && handle.details() == [7]F{} {
		visit(idx, value)
		return
	}
	children := Transform{}.Backward(value, handle.details())
	for rel := 0; rel < NumChildren; rel++ {
		childIdx := idx.ChildIndex(rel)
		child, ok := handle.getChild(rel)
		if !ok {
			visit(childIdx, children[rel])
			continue
		}
		b.forEachLeafRec(child, children[rel], childIdx, visit)
	}
}

// HashedChunkedWaveletOctree is the chunked sibling of HashedWaveletOctree,
// used where update locality across many integrations benefits from
// chunk-granular allocation over one-node-at-a-time.
type HashedChunkedWaveletOctree struct {
	blocks       map[Index3]*ChunkedWaveletOctreeBlock
	treeHeight   int
	minCellWidth F
	minLogOdds   F
	maxLogOdds   F
}

func NewHashedChunkedWaveletOctree(treeHeight int, minCellWidth, minLogOdds, maxLogOdds F) *HashedChunkedWaveletOctree {
	return &HashedChunkedWaveletOctree{
		blocks:       make(map[Index3]*ChunkedWaveletOctreeBlock),
		treeHeight:   treeHeight,
		minCellWidth: minCellWidth,
		minLogOdds:   minLogOdds,
		maxLogOdds:   maxLogOdds,
	}
}

func (h *HashedChunkedWaveletOctree) GetMinCellWidth() F { return h.minCellWidth }
func (h *HashedChunkedWaveletOctree) GetDefaultValue() F { return 0 }
func (h *HashedChunkedWaveletOctree) GetBlockSize() int  { return 1 << uint(h.treeHeight) }
func (h *HashedChunkedWaveletOctree) Empty() bool        { return len(h.blocks) == 0 }
func (h *HashedChunkedWaveletOctree) Size() int          { return len(h.blocks) }

func (h *HashedChunkedWaveletOctree) GetBlock(idx BlockIndex) (*ChunkedWaveletOctreeBlock, bool) {
	b, ok := h.blocks[idx]
	return b, ok
}

func (h *HashedChunkedWaveletOctree) GetOrAllocateBlock(idx BlockIndex) *ChunkedWaveletOctreeBlock {
	if b, ok := h.blocks[idx]; ok {
		return b
	}
	b := NewChunkedWaveletOctreeBlock(h.treeHeight, h.minLogOdds, h.maxLogOdds)
	h.blocks[idx] = b
	return b
}

// EraseBlockIf gives HashedChunkedWaveletOctree the same cropping
// capability as HashedWaveletOctree; only the hashed variants implement
// it.
func (h *HashedChunkedWaveletOctree) EraseBlockIf(pred func(BlockIndex) bool) {
	for idx := range h.blocks {
		if pred(idx) {
			delete(h.blocks, idx)
		}
	}
}

func (h *HashedChunkedWaveletOctree) blockOriginLeaf(idx BlockIndex) Index3 {
	side := I(h.GetBlockSize())
	return Index3{idx.X * side, idx.Y * side, idx.Z * side}
}

func (h *HashedChunkedWaveletOctree) ForEachLeaf(visit func(OctreeIndex, F)) {
	for bidx, block := range h.blocks {
		block.ForEachLeaf(h.blockOriginLeaf(bidx), visit)
	}
}
