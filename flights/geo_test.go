package flights

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	// Toronto to Montreal is roughly 504 km.
	d := HaversineKm(43.6532, -79.3832, 45.5019, -73.5674)
	assert.InDelta(t, 504, d, 5)

	assert.Zero(t, HaversineKm(43.6532, -79.3832, 43.6532, -79.3832))
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 0, Bearing(0, 0, 1, 0), 0.01)   // due north
	assert.InDelta(t, 90, Bearing(0, 0, 0, 1), 0.01)  // due east
	assert.InDelta(t, 180, Bearing(1, 0, 0, 0), 0.01) // due south
	assert.InDelta(t, 270, Bearing(0, 1, 0, 0), 0.01) // due west
}

func TestCardinal(t *testing.T) {
	cases := []struct {
		deg  float64
		want string
	}{
		{0, "North"},
		{11.2, "North"},
		{11.3, "North-Northeast"},
		{45, "Northeast"},
		{90, "East"},
		{180, "South"},
		{270, "West"},
		{359, "North"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Cardinal(tc.deg), "bearing %g", tc.deg)
	}
}

func TestBoundingBoxIsCentered(t *testing.T) {
	lat, lon := 43.6532, -79.3832
	minLat, maxLat, minLon, maxLon := boundingBox(lat, lon, 25)

	assert.InDelta(t, lat, (minLat+maxLat)/2, 1e-9)
	assert.InDelta(t, lon, (minLon+maxLon)/2, 1e-9)
	assert.Less(t, minLat, lat)
	assert.Greater(t, maxLat, lat)
	assert.Less(t, minLon, lon)
	assert.Greater(t, maxLon, lon)
}

func TestCategoryName(t *testing.T) {
	heli := 8
	unknown := 99
	assert.Equal(t, "Rotorcraft", CategoryName(&heli))
	assert.Equal(t, "Unknown Type", CategoryName(&unknown))
	assert.Equal(t, "Unknown Type", CategoryName(nil))
}
