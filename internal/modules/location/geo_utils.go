// README: Great-circle helpers; the haversine fallback used when no routed distance is available.
package location

import (
	"math"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

const earthRadiusKm = 6371.0

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// greatCircleKm is the unrounded haversine distance between a and b.
func greatCircleKm(a, b types.Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	sinHalfLat := math.Sin((lat2 - lat1) / 2)
	sinHalfLng := math.Sin(radians(b.Lng-a.Lng) / 2)

	h := sinHalfLat*sinHalfLat + math.Cos(lat1)*math.Cos(lat2)*sinHalfLng*sinHalfLng
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Haversine returns the distance in km rounded to 2 decimals. It never fails.
func Haversine(a, b types.Point) float64 {
	return types.Round2(greatCircleKm(a, b))
}
