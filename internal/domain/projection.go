package domain

import "math"

const (
	// earthRadius is the WGS 84 semi-major axis used by spherical Web Mercator.
	earthRadius = 6378137.0

	// mercatorHalfWorld is the easting of the antimeridian in EPSG:3857.
	mercatorHalfWorld = math.Pi * earthRadius

	// maxMercatorLat is the latitude at which Web Mercator northing reaches
	// mercatorHalfWorld; the projection is undefined at the poles.
	maxMercatorLat = 85.0511287798066

	// maxResolution is meters per pixel at zoom 0 for a 256 px tile grid.
	maxResolution = 2 * mercatorHalfWorld / 256
)

// Point is a planar display coordinate in EPSG:3857 meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FromLonLat projects WGS 84 degrees into EPSG:3857 meters. Latitudes beyond
// the Mercator limit are clamped.
func FromLonLat(lon, lat float64) (float64, float64) {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	x := earthRadius * lon * math.Pi / 180
	y := earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// ToLonLat is the inverse of FromLonLat.
func ToLonLat(x, y float64) (float64, float64) {
	lon := x / earthRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

// Resolution returns meters per pixel at the given zoom level.
func Resolution(zoom float64) float64 {
	return maxResolution / math.Pow(2, zoom)
}
