package occumap

import "testing"

func TestRangeImageIntersectorFullyUnobservedBehindSensor(t *testing.T) {
	base := NewRangeImage2D(64, 64, kUnknownRangeImageValueUpperBound)
	ri := NewHierarchicalRangeImage(base, false)
	proj := sphericalModel()
	intersector := NewRangeImageIntersector(ri, proj, 0.5, 50, Identity3D())

	// An AABB behind the sensor (negative X) still projects into the
	// spherical image, but the image holds no returns: the upper range
	// bound over its pixels is 0, nearer than the box.
	aabb := AABB{Min: Vec3{-5, -1, -1}, Max: Vec3{-4, 1, 1}}
	if got := intersector.DetermineUpdateType(aabb); got != UpdateTypeFullyUnobserved {
		t.Fatalf("DetermineUpdateType(behind sensor) = %v, want FullyUnobserved", got)
	}
}

func TestRangeImageIntersectorPossiblyOccupiedAtSurfaceRange(t *testing.T) {
	proj := SphericalProjectionModel{
		Rows: 32, Cols: 64,
		AzimuthMin: -3.14, AzimuthMax: 3.14,
		ElevationMin: -0.5, ElevationMax: 0.5,
	}
	base := NewRangeImage2D(proj.Rows, proj.Cols, kUnknownRangeImageValueLowerBound)
	// Fill the whole image with a return at range 5: every pixel observed a surface there.
	for r := 0; r < base.Rows; r++ {
		for c := 0; c < base.Cols; c++ {
			base.Set(r, c, 5.0)
		}
	}
	ri := NewHierarchicalRangeImage(base, false)
	intersector := NewRangeImageIntersector(ri, proj, 0.1, 50, Identity3D())

	// A small voxel straddling range 5 along +X should read as possibly occupied.
	aabb := AABB{Min: Vec3{4.9, -0.05, -0.05}, Max: Vec3{5.1, 0.05, 0.05}}
	if got := intersector.DetermineUpdateType(aabb); got != UpdateTypePossiblyOccupied {
		t.Fatalf("DetermineUpdateType(at surface) = %v, want PossiblyOccupied", got)
	}
}

func TestRangeImageIntersectorFreeOrUnknownBeforeSurface(t *testing.T) {
	proj := SphericalProjectionModel{
		Rows: 32, Cols: 64,
		AzimuthMin: -3.14, AzimuthMax: 3.14,
		ElevationMin: -0.5, ElevationMax: 0.5,
	}
	base := NewRangeImage2D(proj.Rows, proj.Cols, kUnknownRangeImageValueLowerBound)
	for r := 0; r < base.Rows; r++ {
		for c := 0; c < base.Cols; c++ {
			base.Set(r, c, 10.0)
		}
	}
	ri := NewHierarchicalRangeImage(base, false)
	intersector := NewRangeImageIntersector(ri, proj, 0.1, 50, Identity3D())

	aabb := AABB{Min: Vec3{2.0, -0.05, -0.05}, Max: Vec3{2.2, 0.05, 0.05}}
	if got := intersector.DetermineUpdateType(aabb); got != UpdateTypeFreeOrUnknown {
		t.Fatalf("DetermineUpdateType(before surface) = %v, want FreeOrUnknown", got)
	}
}
