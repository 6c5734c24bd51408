package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPolygon(rng *rand.Rand, n int) Polygon {
	// Keep latitudes mid-range so the metric approximation stays sane.
	baseLat := rng.Float64()*120 - 60
	baseLng := rng.Float64()*340 - 170

	p := make(Polygon, 0, n)
	for i := 0; i < n; i++ {
		p = append(p, Coordinate{
			Lat: baseLat + rng.Float64()*0.1,
			Lng: baseLng + rng.Float64()*0.1,
		})
	}
	return p
}

func TestBoundsOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		p := randomPolygon(rng, 1+rng.Intn(12))
		b := Bounds(p)
		assert.GreaterOrEqual(t, b.North, b.South)
		assert.GreaterOrEqual(t, b.East, b.West)
	}
}

func TestBoundsDegenerate(t *testing.T) {
	b := Bounds(nil)
	assert.True(t, math.IsNaN(b.North))
	assert.True(t, math.IsNaN(b.South))
	assert.True(t, math.IsNaN(b.East))
	assert.True(t, math.IsNaN(b.West))

	pt := Coordinate{Lat: 32.08, Lng: 34.78}
	b = Bounds(Polygon{pt})
	assert.Equal(t, BoundingBox{North: 32.08, South: 32.08, East: 34.78, West: 34.78}, b)

	b = Bounds(Polygon{{Lat: 1, Lng: 2}, {Lat: -1, Lng: 4}})
	assert.Equal(t, BoundingBox{North: 1, South: -1, East: 4, West: 2}, b)
}

func TestCentroidInsideBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 500; i++ {
		p := randomPolygon(rng, 3+rng.Intn(10))
		c := Centroid(p)
		assert.True(t, Bounds(p).Contains(c), "centroid %v outside bounds of %v", c, p)
	}
}

func TestCentroidMean(t *testing.T) {
	p := Polygon{{Lat: 32.08, Lng: 34.78}, {Lat: 32.09, Lng: 34.79}, {Lat: 32.07, Lng: 34.80}}
	c := Centroid(p)
	assert.InDelta(t, 32.08, c.Lat, 1e-9)
	assert.InDelta(t, 34.79, c.Lng, 1e-9)

	c = Centroid(nil)
	assert.True(t, math.IsNaN(c.Lat))
	assert.True(t, math.IsNaN(c.Lng))
}

func TestCirclePolygon(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 100; i++ {
		center := Coordinate{Lat: rng.Float64()*120 - 60, Lng: rng.Float64()*340 - 170}
		radius := 50 + rng.Float64()*5000
		segments := 3 + rng.Intn(100)

		p := CirclePolygon(center, radius, segments)
		require.Len(t, p, segments+1)
		assert.Equal(t, p[0], p[len(p)-1])

		for _, v := range p {
			d := DistanceMeters(center, v)
			assert.InDelta(t, radius, d, radius*0.01, "vertex %v at %f m, want ~%f m", v, d, radius)
		}
	}
}

func TestCirclePolygonMinSegments(t *testing.T) {
	p := CirclePolygon(Coordinate{Lat: 32, Lng: 34}, 100, 0)
	assert.Len(t, p, 4)
}

func TestMetersToDegreeOffsetPoleClamp(t *testing.T) {
	dLat, dLng := MetersToDegreeOffset(1000, 90)
	assert.False(t, math.IsInf(dLng, 1))
	assert.False(t, math.IsNaN(dLng))
	assert.InDelta(t, 1000.0/110540.0, dLat, 1e-12)
}

func TestCoordinateValidate(t *testing.T) {
	assert.NoError(t, Coordinate{Lat: 32.08, Lng: 34.78}.Validate())
	assert.Error(t, Coordinate{Lat: 90.1, Lng: 0}.Validate())
	assert.Error(t, Coordinate{Lat: 0, Lng: -180.5}.Validate())
	assert.Error(t, Coordinate{Lat: math.NaN(), Lng: 0}.Validate())
}

func TestPolygonValidate(t *testing.T) {
	assert.Error(t, Polygon{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}.Validate())
	assert.NoError(t, Polygon{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}, {Lat: 3, Lng: 3}}.Validate())
	assert.Error(t, Polygon{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}, {Lat: 91, Lng: 3}}.Validate())
}

func TestFormatCoordinate(t *testing.T) {
	assert.Equal(t, "32.0800° N, 34.7800° E", FormatCoordinate(Coordinate{Lat: 32.08, Lng: 34.78}))
	assert.Equal(t, "12.5000° S, 45.0000° W", FormatCoordinate(Coordinate{Lat: -12.5, Lng: -45}))
}
