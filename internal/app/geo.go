package app

import (
	"math"

	"ski_resort_finder/internal/domain"
)

const (
	EarthRadiusKm = 6371.0088
	kmPerDegLat   = 110.574
	kmPerDegLon   = 111.320
	minCosLat     = 0.01
)

// HaversineKm is the great-circle distance between a and b.
func HaversineKm(a, b domain.GeoPoint) float64 {
	lat1, lat2 := rad(a.Lat), rad(b.Lat)
	dLat := lat2 - lat1
	dLon := rad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// GenerateTiles lays a (2r+1)×(2r+1) grid of points around center, stepKm
// apart, rows south to north and columns west to east. Negative r yields the
// center only. Near the poles the longitude step is bounded by flooring
// |cos(lat)|; latitudes are clamped and longitudes wrapped into range.
func GenerateTiles(center domain.GeoPoint, stepKm float64, r int) []domain.GeoPoint {
	if r < 0 {
		r = 0
	}
	if stepKm < 0 {
		stepKm = -stepKm
	}
	cos := math.Abs(math.Cos(rad(center.Lat)))
	if cos < minCosLat {
		cos = minCosLat
	}
	dLat := stepKm / kmPerDegLat
	dLon := stepKm / (kmPerDegLon * cos)

	side := 2*r + 1
	out := make([]domain.GeoPoint, 0, side*side)
	for i := -r; i <= r; i++ {
		lat := clampLat(center.Lat + float64(i)*dLat)
		for j := -r; j <= r; j++ {
			out = append(out, domain.GeoPoint{Lat: lat, Lon: wrapLon(center.Lon + float64(j)*dLon)})
		}
	}
	return out
}

func clampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

func wrapLon(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
