package geo

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/fleetsight/tripwatch/internal/models"
)

const (
	// EarthRadiusMeters is Earth's mean radius.
	EarthRadiusMeters = 6371000.0
	EarthRadiusKm     = 6371.0
)

// HaversineKm returns the great-circle distance between two coordinates
// in kilometers.
func HaversineKm(a, b models.Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// HaversineMeters returns the great-circle distance between two
// coordinates in meters.
func HaversineMeters(a, b models.Coordinate) float64 {
	return HaversineKm(a, b) * 1000
}

// PointInPolygon reports whether p lies inside the polygon using the
// ray-casting algorithm. Polygons with fewer than 3 vertices contain
// nothing.
func PointInPolygon(p models.Coordinate, polygon []models.Coordinate) bool {
	if len(polygon) < 3 {
		return false
	}
	inside := false
	j := len(polygon) - 1
	for i := 0; i < len(polygon); i++ {
		vi, vj := polygon[i], polygon[j]
		if (vi.Lng > p.Lng) != (vj.Lng > p.Lng) &&
			p.Lat < (vj.Lat-vi.Lat)*(p.Lng-vi.Lng)/(vj.Lng-vi.Lng)+vi.Lat {
			inside = !inside
		}
		j = i
	}
	return inside
}

// NearestIndex returns the index of the polyline vertex closest to p and
// the distance to it in kilometers. Ties break to the lowest index.
// Returns (-1, +Inf) for an empty polyline.
func NearestIndex(p models.Coordinate, polyline []models.Coordinate) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for i, v := range polyline {
		d := HaversineKm(p, v)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}

// PolylineLengthKm sums the great-circle lengths of consecutive vertex
// pairs.
func PolylineLengthKm(polyline []models.Coordinate) float64 {
	var total float64
	for i := 1; i < len(polyline); i++ {
		total += HaversineKm(polyline[i-1], polyline[i])
	}
	return total
}

// DistanceAlongKm returns the cumulative polyline length from the first
// vertex up to the vertex at idx.
func DistanceAlongKm(polyline []models.Coordinate, idx int) float64 {
	if idx <= 0 {
		return 0
	}
	if idx >= len(polyline) {
		idx = len(polyline) - 1
	}
	var total float64
	for i := 1; i <= idx; i++ {
		total += HaversineKm(polyline[i-1], polyline[i])
	}
	return total
}

// InsideLocation reports whether p is inside the location's geofence.
// Point locations test distance against the trigger radius; zone
// locations use polygon containment with an optional fallback radius
// around each vertex.
func InsideLocation(p models.Coordinate, loc models.Location) bool {
	switch loc.Type {
	case models.LocationZone:
		if PointInPolygon(p, loc.Polygon) {
			return true
		}
		if loc.VertexRadius > 0 {
			for _, v := range loc.Polygon {
				if HaversineMeters(p, v) <= loc.VertexRadius {
					return true
				}
			}
		}
		return false
	default:
		center := models.Coordinate{Lat: loc.Lat, Lng: loc.Lng}
		return HaversineMeters(p, center) <= loc.TriggerRadius
	}
}
