// Package geo contains the coordinate and polygon math used by the deployment
// planner. All functions are metric approximations suitable for city-scale maps:
// one degree of latitude is treated as 110540 m and one degree of longitude as
// 111320 m scaled by cos(latitude). They are not geodesically exact and degrade
// near the poles and across the antimeridian.
package geo

import (
	"fmt"
	"math"
)

const (
	metersPerDegreeLat = 110540.0
	metersPerDegreeLng = 111320.0

	// Floor for cos(lat) in longitude conversions. Latitudes where the real
	// cosine falls below this are outside the supported operating range.
	minCosLat = 1e-6
)

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the coordinate is within WGS84 bounds.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Lat)
	}
	if math.IsNaN(c.Lng) || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Lng)
	}
	return nil
}

// Polygon is an ordered sequence of vertices, implicitly closed.
type Polygon []Coordinate

// Validate checks vertex count and every vertex range.
func (p Polygon) Validate() error {
	if len(p) < 3 {
		return fmt.Errorf("polygon needs at least 3 vertices, got %d", len(p))
	}
	for i, c := range p {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	return nil
}

// BoundingBox is an axis-aligned box around a polygon. Antimeridian-crossing
// polygons are not supported: East >= West is assumed.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Bounds returns the bounding box of the polygon. An empty polygon yields an
// all-NaN box; one or two vertices yield the degenerate box around them. It
// never panics, since it may be called on a drawing still in progress.
func Bounds(p Polygon) BoundingBox {
	if len(p) == 0 {
		nan := math.NaN()
		return BoundingBox{North: nan, South: nan, East: nan, West: nan}
	}

	b := BoundingBox{North: p[0].Lat, South: p[0].Lat, East: p[0].Lng, West: p[0].Lng}
	for _, c := range p[1:] {
		b.North = math.Max(b.North, c.Lat)
		b.South = math.Min(b.South, c.Lat)
		b.East = math.Max(b.East, c.Lng)
		b.West = math.Min(b.West, c.Lng)
	}
	return b
}

// Contains reports whether the coordinate lies inside or on the box.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat <= b.North && c.Lat >= b.South && c.Lng <= b.East && c.Lng >= b.West
}

// Centroid returns the arithmetic mean of the vertices. This is the vertex
// centroid, not the area centroid; for small, roughly convex drawn areas the
// two are close, but for non-convex or unevenly spaced polygons the result can
// fall outside the shape. An empty polygon yields a NaN coordinate.
func Centroid(p Polygon) Coordinate {
	if len(p) == 0 {
		return Coordinate{Lat: math.NaN(), Lng: math.NaN()}
	}

	var sumLat, sumLng float64
	for _, c := range p {
		sumLat += c.Lat
		sumLng += c.Lng
	}
	n := float64(len(p))
	return Coordinate{Lat: sumLat / n, Lng: sumLng / n}
}

// MetersToDegreeOffset converts a metric distance into degree offsets at the
// given latitude. The longitude component is clamped near the poles instead of
// propagating an infinity; callers must treat extreme latitudes as unsupported.
func MetersToDegreeOffset(meters, atLatitude float64) (dLat, dLng float64) {
	cosLat := math.Cos(atLatitude * math.Pi / 180)
	if cosLat < minCosLat {
		cosLat = minCosLat
	}

	dLat = meters / metersPerDegreeLat
	dLng = meters / (metersPerDegreeLng * cosLat)
	return dLat, dLng
}

// DistanceMeters returns the approximate metric distance between two points,
// using the same per-degree scale factors as MetersToDegreeOffset.
func DistanceMeters(a, b Coordinate) float64 {
	cosLat := math.Cos((a.Lat + b.Lat) / 2 * math.Pi / 180)
	if cosLat < minCosLat {
		cosLat = minCosLat
	}

	dy := (b.Lat - a.Lat) * metersPerDegreeLat
	dx := (b.Lng - a.Lng) * metersPerDegreeLng * cosLat
	return math.Hypot(dx, dy)
}

// CirclePolygon approximates a circle of radiusMeters around center as a
// closed counter-clockwise polygon with exactly segments+1 vertices, the last
// equal to the first. Fewer than 3 segments are raised to 3, so the result is
// always a valid non-self-intersecting polygon.
func CirclePolygon(center Coordinate, radiusMeters float64, segments int) Polygon {
	if segments < 3 {
		segments = 3
	}

	dLat, dLng := MetersToDegreeOffset(radiusMeters, center.Lat)

	poly := make(Polygon, 0, segments+1)
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		poly = append(poly, Coordinate{
			Lat: center.Lat + dLat*math.Sin(theta),
			Lng: center.Lng + dLng*math.Cos(theta),
		})
	}
	poly = append(poly, poly[0])
	return poly
}

// FormatCoordinate renders a coordinate for display, e.g. "32.0800° N, 34.7800° E".
func FormatCoordinate(c Coordinate) string {
	latDir, lngDir := "N", "E"
	if c.Lat < 0 {
		latDir = "S"
	}
	if c.Lng < 0 {
		lngDir = "W"
	}
	return fmt.Sprintf("%.4f° %s, %.4f° %s", math.Abs(c.Lat), latDir, math.Abs(c.Lng), lngDir)
}
