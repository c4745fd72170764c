package occumap

import (
	"math"
	"testing"
)

func TestGeoOriginToLonLatAtOriginIsIdentity(t *testing.T) {
	g := GeoOrigin{Longitude: -122.4, Latitude: 37.7, Coeffs: NewWGS84Coefficients()}
	lon, lat := g.ToLonLat(Vec3{0, 0, 0})
	if math.Abs(lon-g.Longitude) > 1e-9 || math.Abs(lat-g.Latitude) > 1e-9 {
		t.Fatalf("ToLonLat(origin) = (%v, %v), want (%v, %v)", lon, lat, g.Longitude, g.Latitude)
	}
}

func TestGeoOriginToLonLatMovesNorthIncreasesLatitude(t *testing.T) {
	g := GeoOrigin{Longitude: 0, Latitude: 0, Coeffs: NewWGS84Coefficients()}
	_, lat := g.ToLonLat(Vec3{0, 1000, 0})
	if lat <= g.Latitude {
		t.Fatalf("moving 1000m north did not increase latitude: %v", lat)
	}
}

func TestGeoOriginToLonLatMovesEastIncreasesLongitude(t *testing.T) {
	g := GeoOrigin{Longitude: 0, Latitude: 0, Coeffs: NewWGS84Coefficients()}
	lon, _ := g.ToLonLat(Vec3{1000, 0, 0})
	if lon <= g.Longitude {
		t.Fatalf("moving 1000m east did not increase longitude: %v", lon)
	}
}

func TestBlockLonLatExtentEmptyMapReturnsZeroValues(t *testing.T) {
	m := NewHashedWaveletOctree(2, 1.0, -4, 4)
	origin := GeoOrigin{Coeffs: NewWGS84Coefficients()}
	minLon, minLat, maxLon, maxLat := BlockLonLatExtent(m, origin)
	if minLon != 0 || minLat != 0 || maxLon != 0 || maxLat != 0 {
		t.Fatalf("BlockLonLatExtent(empty map) = (%v,%v,%v,%v), want all zero", minLon, minLat, maxLon, maxLat)
	}
}

func TestBlockLonLatExtentSpansAllocatedLeaves(t *testing.T) {
	m := NewHashedWaveletOctree(2, 1.0, -4, 4)
	block := m.GetOrAllocateBlock(Index3{0, 0, 0})
	block.setReconstructedValue(0, Index3{0, 0, 0}, 1.0)
	block.setReconstructedValue(0, Index3{3, 3, 3}, 1.0)

	origin := GeoOrigin{Coeffs: NewWGS84Coefficients()}
	minLon, minLat, maxLon, maxLat := BlockLonLatExtent(m, origin)
	if maxLon <= minLon {
		t.Fatalf("maxLon (%v) does not exceed minLon (%v)", maxLon, minLon)
	}
	if maxLat <= minLat {
		t.Fatalf("maxLat (%v) does not exceed minLat (%v)", maxLat, minLat)
	}
}
