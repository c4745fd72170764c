package occumap

// MapVariant is the tagged union of map container shapes the engine can
// hold: HashedBlocks, HashedWaveletOctree, and
// HashedChunkedWaveletOctree all implement it.
type MapVariant interface {
	isMapVariant()
}

func (h *HashedBlocks) isMapVariant()               {}
func (h *HashedWaveletOctree) isMapVariant()         {}
func (h *HashedChunkedWaveletOctree) isMapVariant() {}

// Croppable is the capability required of hashed MapVariants: erase every
// block farther than radius from center. A future non-hashed MapVariant
// simply does not implement it; CropVariant reports ErrUnsupportedMapVariant in
// that case instead of panicking on a type assertion.
type Croppable interface {
	Crop(center Vec3, radius F) (removed int, err error)
}

// Crop on HashedBlocks discards dense blocks using the same AABB.MinDistanceTo bound as the wavelet
// variants.
func (h *HashedBlocks) Crop(center Vec3, radius F) (int, error) {
	removed := 0
	blockWidth := h.minCellWidth * F(h.GetBlockSize())
	h.EraseBlockIf(func(idx BlockIndex) bool {
		origin := Vec3{F(idx.X) * blockWidth, F(idx.Y) * blockWidth, F(idx.Z) * blockWidth}
		box := AABB{Min: origin, Max: Vec3{origin.X + blockWidth, origin.Y + blockWidth, origin.Z + blockWidth}}
		hit := box.MinDistanceTo(center) > radius
		if hit {
			removed++
		}
		return hit
	})
	return removed, nil
}

// Crop discards every block of a chunked occupancy map whose AABB lies
// entirely farther than radius from center.
func (h *HashedChunkedWaveletOctree) Crop(center Vec3, radius F) (int, error) {
	removed := 0
	blockWidth := h.minCellWidth * F(h.GetBlockSize())
	h.EraseBlockIf(func(idx BlockIndex) bool {
		origin := Vec3{F(idx.X) * blockWidth, F(idx.Y) * blockWidth, F(idx.Z) * blockWidth}
		box := AABB{Min: origin, Max: Vec3{origin.X + blockWidth, origin.Y + blockWidth, origin.Z + blockWidth}}
		hit := box.MinDistanceTo(center) > radius
		if hit {
			removed++
		}
		return hit
	})
	return removed, nil
}

// CropVariant applies the cropping operation to any MapVariant that
// implements Croppable, reporting ErrUnsupportedMapVariant otherwise.
func CropVariant(m MapVariant, center Vec3, radius F) (int, error) {
	c, ok := m.(Croppable)
	if !ok {
		return 0, ErrUnsupportedMapVariant
	}
	return c.Crop(center, radius)
}
