package occumap

import "testing"

func TestChunkedWaveletOctreeBlockFreshIsUniformZero(t *testing.T) {
	b := NewChunkedWaveletOctreeBlock(3, -4, 4)
	idx := OctreeIndex{Height: 0, Position: Index3{2, 2, 2}}
	if got := b.GetCellValue(idx); got != 0 {
		t.Fatalf("GetCellValue on fresh chunked block = %v, want 0", got)
	}
}

func TestChunkedWaveletOctreeBlockDescendPathCrossesChunkBoundary(t *testing.T) {
	b := NewChunkedWaveletOctreeBlock(ChunkHeight+1, -4, 4)
	idx := OctreeIndex{Height: 0, Position: Index3{1, 0, 0}}

	handle := b.descendPath(idx)
	if handle.Chunk == b.root {
		t.Fatalf("descendPath at a depth beyond ChunkHeight stayed in the root chunk")
	}
}

func TestChunkedWaveletOctreeBlockForEachLeafAfterWrite(t *testing.T) {
	b := NewChunkedWaveletOctreeBlock(ChunkHeight, -4, 4)
	handle := b.descendPath(OctreeIndex{Height: 0, Position: Index3{1, 0, 0}})
	handle.setDetails([7]F{0.1, 0, 0, 0, 0, 0, 0})

	visited := 0
	b.ForEachLeaf(Index3{0, 0, 0}, func(idx OctreeIndex, v F) {
		visited++
	})
	if visited == 0 {
		t.Fatalf("ForEachLeaf visited no leaves after a write")
	}
}

func TestHashedChunkedWaveletOctreeGetOrAllocateBlockIsStable(t *testing.T) {
	h := NewHashedChunkedWaveletOctree(2, 0.1, -4, 4)
	a := h.GetOrAllocateBlock(Index3{0, 0, 0})
	b := h.GetOrAllocateBlock(Index3{0, 0, 0})
	if a != b {
		t.Fatalf("GetOrAllocateBlock returned different blocks for the same index")
	}
	if h.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", h.Size())
	}
}

func TestHashedChunkedWaveletOctreeCropRemovesFarBlocks(t *testing.T) {
	h := NewHashedChunkedWaveletOctree(2, 1.0, -4, 4) // block width 4
	h.GetOrAllocateBlock(Index3{0, 0, 0})
	h.GetOrAllocateBlock(Index3{20, 0, 0})

	removed, err := h.Crop(Vec3{0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Crop returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Crop removed %d blocks, want 1", removed)
	}
	if h.Size() != 1 {
		t.Fatalf("Size() after Crop = %d, want 1", h.Size())
	}
}

func TestHashedChunkedWaveletOctreeSatisfiesMapVariant(t *testing.T) {
	var _ MapVariant = (*HashedChunkedWaveletOctree)(nil)
	var _ Croppable = (*HashedChunkedWaveletOctree)(nil)
}
