package occumap

import "testing"

func TestHashedBlocksCropRemovesFarBlocks(t *testing.T) {
	h := NewHashedBlocks(2, 1.0, 0) // block width 4
	h.GetOrAllocateBlock(Index3{0, 0, 0})
	h.GetOrAllocateBlock(Index3{10, 0, 0})

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

func TestCropVariantDispatchesToEachMapVariant(t *testing.T) {
	blocks := NewHashedBlocks(2, 1.0, 0)
	blocks.GetOrAllocateBlock(Index3{10, 0, 0})
	if removed, err := CropVariant(blocks, Vec3{0, 0, 0}, 1); err != nil || removed != 1 {
		t.Fatalf("CropVariant(HashedBlocks) = (%d, %v), want (1, nil)", removed, err)
	}

	wavelet := NewHashedWaveletOctree(2, 1.0, -4, 4)
	wavelet.GetOrAllocateBlock(Index3{10, 0, 0})
	if removed, err := CropVariant(wavelet, Vec3{0, 0, 0}, 1); err != nil || removed != 1 {
		t.Fatalf("CropVariant(HashedWaveletOctree) = (%d, %v), want (1, nil)", removed, err)
	}

	chunked := NewHashedChunkedWaveletOctree(2, 1.0, -4, 4)
	chunked.GetOrAllocateBlock(Index3{10, 0, 0})
	if removed, err := CropVariant(chunked, Vec3{0, 0, 0}, 1); err != nil || removed != 1 {
		t.Fatalf("CropVariant(HashedChunkedWaveletOctree) = (%d, %v), want (1, nil)", removed, err)
	}
}

type nonCroppableVariant struct{}

func (nonCroppableVariant) isMapVariant() {}

func TestCropVariantReportsUnsupportedForNonCroppableVariant(t *testing.T) {
	if _, err := CropVariant(nonCroppableVariant{}, Vec3{}, 1); err != ErrUnsupportedMapVariant {
		t.Fatalf("CropVariant(non-croppable) = %v, want ErrUnsupportedMapVariant", err)
	}
}
