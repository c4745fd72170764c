package occumap

import "math"

// WGS84Coefficients holds the local-degree-length coefficients used to
// convert a local ENU offset from a geographic origin into longitude and
// latitude.
type WGS84Coefficients struct {
	A, B, C, D, E, F, G float64
}

// NewWGS84Coefficients returns the standard WGS84 empirical coefficients.
func NewWGS84Coefficients() WGS84Coefficients {
	return WGS84Coefficients{
		A: 111132.92, B: 559.82, C: 1.175, D: 0.0023,
		E: 111412.84, F: 93.5, G: 0.118,
	}
}

// GeoOrigin anchors a map's local frame to a geographic position so that
// a voxel's local XYZ can be reported as longitude/latitude. Entirely
// optional: the engine never requires it internally.
type GeoOrigin struct {
	Longitude float64
	Latitude  float64
	Coeffs    WGS84Coefficients
}

// ToLonLat converts a point's local X (east) / Y (north) offset in metres
// from the origin into longitude/latitude degrees.
func (g GeoOrigin) ToLonLat(local Vec3) (lon, lat float64) {
	c := g.Coeffs
	latRad := g.Latitude * math.Pi / 180

	metersPerDegLat := c.A - c.B*math.Cos(2*latRad) + c.C*math.Cos(4*latRad) - c.D*math.Cos(6*latRad)
	metersPerDegLon := c.E*math.Cos(latRad) - c.F*math.Cos(3*latRad) + c.G*math.Cos(5*latRad)

	dLat := float64(local.Y) / metersPerDegLat
	dLon := float64(local.X) / metersPerDegLon

	return g.Longitude + dLon, g.Latitude + dLat
}

// BlockLonLatExtent reports the geographic bounding box of every allocated
// node m.ForEachLeaf visits, for operator-facing summaries.
func BlockLonLatExtent(m *HashedWaveletOctree, origin GeoOrigin) (minLon, minLat, maxLon, maxLat float64) {
	first := true
	minCellWidth := m.GetMinCellWidth()
	m.ForEachLeaf(func(idx OctreeIndex, _ F) {
		lon, lat := origin.ToLonLat(idx.MinCorner(minCellWidth))
		if first {
			minLon, maxLon, minLat, maxLat = lon, lon, lat, lat
			first = false
			return
		}
		minLon = math.Min(minLon, lon)
		maxLon = math.Max(maxLon, lon)
		minLat = math.Min(minLat, lat)
		maxLat = math.Max(maxLat, lat)
	})
	return
}
