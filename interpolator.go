package occumap

import "math"

// InterpolateOccupancy trilinearly interpolates occupancy between the 8
// leaf centers surrounding point, falling back to a nearest-leaf lookup
// if any of the 8 corners is unobserved.
func InterpolateOccupancy(m *HashedWaveletOctree, point Vec3) (F, bool) {
	w := m.GetMinCellWidth()
	if w <= 0 {
		return 0, false
	}

	// Leaf cell i covers [i*w, (i+1)*w) with center (i+0.5)*w; solve for
	// the fractional cell coordinate so that corner i0 sits at or below
	// point and i0+1 sits at or above it.
	gx := point.X/w - 0.5
	gy := point.Y/w - 0.5
	gz := point.Z/w - 0.5

	i0x, i0y, i0z := floorF(gx), floorF(gy), floorF(gz)
	tx, ty, tz := gx-F(i0x), gy-F(i0y), gz-F(i0z)

	var corners [8]F
	anyUnobserved := false
	for i := 0; i < 8; i++ {
		ix, iy, iz := i0x, i0y, i0z
		if i&1 != 0 {
			ix++
		}
		if i&2 != 0 {
			iy++
		}
		if i&4 != 0 {
			iz++
		}
		v := m.GetCellValue(Index3{I(ix), I(iy), I(iz)})
		if v == 0 {
			anyUnobserved = true
		}
		corners[i] = v
	}

	if anyUnobserved {
		nearest := PointToFloorIndex(point, w)
		return m.GetCellValue(nearest), true
	}

	// Standard trilinear blend over the unit cube (tx,ty,tz).
	c00 := corners[0]*(1-tx) + corners[1]*tx
	c10 := corners[2]*(1-tx) + corners[3]*tx
	c01 := corners[4]*(1-tx) + corners[5]*tx
	c11 := corners[6]*(1-tx) + corners[7]*tx

	c0 := c00*(1-ty) + c10*ty
	c1 := c01*(1-ty) + c11*ty

	return c0*(1-tz) + c1*tz, true
}

func floorF(v F) int64 {
	return int64(math.Floor(float64(v)))
}
