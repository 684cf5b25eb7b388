package app_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ski_resort_finder/internal/app"
	"ski_resort_finder/internal/domain"
)

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 0, app.HaversineKm(amherst, amherst), 1e-9)

	oneDeg := app.HaversineKm(domain.GeoPoint{Lat: 0, Lon: 0}, domain.GeoPoint{Lat: 1, Lon: 0})
	assert.InDelta(t, 111.195, oneDeg, 0.01)

	boston := domain.GeoPoint{Lat: 42.3601, Lon: -71.0589}
	assert.InDelta(t, app.HaversineKm(amherst, boston), app.HaversineKm(boston, amherst), 1e-9)
}

func TestGenerateTiles_GridShapeAndOrder(t *testing.T) {
	for _, r := range []int{0, 1, 2} {
		tiles := app.GenerateTiles(amherst, 30, r)
		side := 2*r + 1
		require.Len(t, tiles, side*side)
		assert.Equal(t, amherst, tiles[len(tiles)/2], "center tile must be the input point")
	}

	tiles := app.GenerateTiles(amherst, 30, 1)
	// rows south to north, columns west to east
	assert.Less(t, tiles[0].Lat, tiles[3].Lat)
	assert.Less(t, tiles[0].Lon, tiles[1].Lon)
	assert.Equal(t, tiles[0].Lat, tiles[2].Lat)

	// neighbours are roughly one step apart
	assert.InDelta(t, 30, app.HaversineKm(tiles[4], tiles[5]), 0.5)
	assert.InDelta(t, 30, app.HaversineKm(tiles[4], tiles[7]), 0.5)
}

func TestGenerateTiles_NegativeRadiusIsSingleTile(t *testing.T) {
	tiles := app.GenerateTiles(amherst, 30, -3)
	require.Len(t, tiles, 1)
	assert.Equal(t, amherst, tiles[0])
}

func TestGenerateTiles_PolesAndDatelineStayInRange(t *testing.T) {
	for _, c := range []domain.GeoPoint{
		{Lat: 90, Lon: 0},
		{Lat: -89.999, Lon: 179.9},
		{Lat: 10, Lon: -179.95},
	} {
		for _, p := range app.GenerateTiles(c, 50, 2) {
			assert.False(t, math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0), "point %+v", p)
			assert.True(t, p.Valid(), "point %+v out of range for center %+v", p, c)
		}
	}
}
