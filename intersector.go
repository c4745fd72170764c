package occumap

// RangeImageIntersector classifies a world-frame AABB against a posed
// range image's bounds pyramid.
type RangeImageIntersector struct {
	RangeImage *HierarchicalRangeImage
	Projection ProjectionModel
	MinRange   F
	MaxRange   F
	Pose       Transform3D // T_W_C, the sensor pose the range image was captured at
}

// NewRangeImageIntersector constructs an intersector scoped to one
// integration call.
func NewRangeImageIntersector(ri *HierarchicalRangeImage, proj ProjectionModel, minRange, maxRange F, pose Transform3D) *RangeImageIntersector {
	return &RangeImageIntersector{RangeImage: ri, Projection: proj, MinRange: minRange, MaxRange: maxRange, Pose: pose}
}

// DetermineUpdateType classifies aabb against the range image in four
// steps: project corners to pixels, reject if off-image, bound the pixel
// interval's range against the bounds pyramid, then bound the AABB's own
// distance from the sensor.
func (ri *RangeImageIntersector) DetermineUpdateType(aabb AABB) UpdateType {
	toSensor := ri.Pose.Inverse()
	corners := aabb.Corners()

	dims := ri.Projection.GetDimensions()
	minRow, maxRow := I(dims.Y), I(-1)
	minCol, maxCol := I(dims.X), I(-1)
	anyInRange := false
	for _, c := range corners {
		local := toSensor.Apply(c)
		image, depth := ri.Projection.CartesianToSensor(local)
		if depth <= 0 {
			continue
		}
		idx, _ := ri.Projection.ImageToNearestIndexAndOffset(image)
		if idx.X < minCol {
			minCol = idx.X
		}
		if idx.X > maxCol {
			maxCol = idx.X
		}
		if idx.Y < minRow {
			minRow = idx.Y
		}
		if idx.Y > maxRow {
			maxRow = idx.Y
		}
		anyInRange = true
	}
	if !anyInRange {
		return UpdateTypeFullyUnobserved
	}
	// Step 2: pixel interval entirely outside the image.
	if maxCol < 0 || minCol >= dims.X || maxRow < 0 || minRow >= dims.Y {
		return UpdateTypeFullyUnobserved
	}
	if minCol < 0 {
		minCol = 0
	}
	if maxCol >= dims.X {
		maxCol = dims.X - 1
	}
	if minRow < 0 {
		minRow = 0
	}
	if maxRow >= dims.Y {
		maxRow = dims.Y - 1
	}

	// Step 3: query bounds pyramids over the pixel interval.
	rangeLower, rangeUpper := ri.RangeImage.GetRangeBounds(
		Index2{minCol, minRow}, Index2{maxCol, maxRow})

	// Step 4: distance bounds of the AABB from the sensor origin.
	dNear, dFar := aabb.NearFarDistanceTo(ri.Pose.T)

	if dNear > ri.MaxRange || dFar < ri.MinRange {
		return UpdateTypeFullyUnobserved
	}
	if rangeUpper+kNoiseThreshold < dNear {
		return UpdateTypeFullyUnobserved
	}
	if dFar+kNoiseThreshold < rangeLower {
		return UpdateTypeFreeOrUnknown
	}
	return UpdateTypePossiblyOccupied
}
