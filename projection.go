package occumap

import "math"

// ProjectionModel maps sensor-frame Cartesian points to range-image pixel
// coordinates and back.
type ProjectionModel interface {
	// CartesianToSensor projects p (already in the sensor frame) to its
	// image-plane coordinate and range.
	CartesianToSensor(p Vec3) (image Vec2, depth F)
	// CartesianToSensorZ returns the scalar distance used for depth-gated
	// range tests (min_range/max_range comparisons).
	CartesianToSensorZ(p Vec3) F
	// ImageToNearestIndexAndOffset rounds a continuous image coordinate to
	// its nearest pixel index plus the residual sub-pixel offset.
	ImageToNearestIndexAndOffset(image Vec2) (Index2, Vec2)
	// GetDimensions returns the sensor's native image size as
	// Index2{X: cols, Y: rows}.
	GetDimensions() Index2
}

// SphericalProjectionModel is a spherical (LiDAR-style) projection: azimuth
// maps to columns, elevation to rows, range is Euclidean distance.
type SphericalProjectionModel struct {
	Rows, Cols       int
	AzimuthMin       F // radians
	AzimuthMax       F
	ElevationMin     F
	ElevationMax     F
	AzimuthWraps     bool
}

func (m SphericalProjectionModel) GetDimensions() Index2 {
	return Index2{I(m.Cols), I(m.Rows)}
}

func (m SphericalProjectionModel) CartesianToSensorZ(p Vec3) F {
	return NormVec3(p)
}

func (m SphericalProjectionModel) CartesianToSensor(p Vec3) (Vec2, F) {
	depth := NormVec3(p)
	if depth == 0 {
		return Vec2{}, 0
	}
	azimuth := F(math.Atan2(float64(p.Y), float64(p.X)))
	horizDist := F(math.Sqrt(float64(p.X*p.X + p.Y*p.Y)))
	elevation := F(math.Atan2(float64(p.Z), float64(horizDist)))

	azSpan := m.AzimuthMax - m.AzimuthMin
	elSpan := m.ElevationMax - m.ElevationMin
	col := (azimuth - m.AzimuthMin) / azSpan * F(m.Cols)
	row := (elevation - m.ElevationMin) / elSpan * F(m.Rows)
	return Vec2{col, row}, depth
}

func (m SphericalProjectionModel) ImageToNearestIndexAndOffset(image Vec2) (Index2, Vec2) {
	col := F(math.Floor(float64(image.X) + 0.5))
	row := F(math.Floor(float64(image.Y) + 0.5))
	offset := Vec2{image.X - col, image.Y - row}
	return Index2{I(col), I(row)}, offset
}
