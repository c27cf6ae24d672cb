package flights

import "math"

// earthRadiusKm is the approximate Earth radius used for all great-circle math.
const earthRadiusKm = 6371

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1R := lat1 * math.Pi / 180
	lon1R := lon1 * math.Pi / 180
	lat2R := lat2 * math.Pi / 180
	lon2R := lon2 * math.Pi / 180

	dLat := lat2R - lat1R
	dLon := lon2R - lon1R

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1R)*math.Cos(lat2R)*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Bearing returns the initial bearing from point A to point B in degrees
// (0-360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1R := lat1 * math.Pi / 180
	lon1R := lon1 * math.Pi / 180
	lat2R := lat2 * math.Pi / 180
	lon2R := lon2 * math.Pi / 180

	dLon := lon2R - lon1R

	x := math.Sin(dLon) * math.Cos(lat2R)
	y := math.Cos(lat1R)*math.Sin(lat2R) - math.Sin(lat1R)*math.Cos(lat2R)*math.Cos(dLon)

	deg := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

var cardinals = [16]string{
	"North", "North-Northeast", "Northeast", "East-Northeast",
	"East", "East-Southeast", "Southeast", "South-Southeast",
	"South", "South-Southwest", "Southwest", "West-Southwest",
	"West", "West-Northwest", "Northwest", "North-Northwest",
}

// Cardinal converts a bearing in degrees to a 16-point compass rose name.
// Each direction covers 22.5 degrees; the 11.25 offset centers North on 0.
func Cardinal(deg float64) string {
	return cardinals[int((deg+11.25)/22.5)%16]
}

// boundingBox returns the min/max latitude and longitude of a square box of
// the given radius (km) centered on lat/lon.
func boundingBox(lat, lon, radiusKm float64) (minLat, maxLat, minLon, maxLon float64) {
	dLat := (radiusKm / earthRadiusKm) * (180 / math.Pi)
	dLon := (radiusKm / (earthRadiusKm * math.Cos(lat*math.Pi/180))) * (180 / math.Pi)
	return lat - dLat, lat + dLat, lon - dLon, lon + dLon
}
