// README: Great-circle distance helpers.
package location

import (
	"math"

	"routematch/internal/types"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the haversine distance between two points in kilometres.
func DistanceKm(a, b types.Point) float64 {
	return haversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)
	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Offset returns the point reached by travelling distanceKm from p along the
// given bearing (degrees clockwise from north).
func Offset(p types.Point, distanceKm, bearingDeg float64) types.Point {
	lat := degreesToRadians(p.Lat)
	lng := degreesToRadians(p.Lng)
	brg := degreesToRadians(bearingDeg)
	d := distanceKm / earthRadiusKm

	newLat := math.Asin(math.Sin(lat)*math.Cos(d) + math.Cos(lat)*math.Sin(d)*math.Cos(brg))
	newLng := lng + math.Atan2(math.Sin(brg)*math.Sin(d)*math.Cos(lat), math.Cos(d)-math.Sin(lat)*math.Sin(newLat))
	return types.Point{Lat: newLat * 180 / math.Pi, Lng: newLng * 180 / math.Pi}
}
