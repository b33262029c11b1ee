package testutil

import (
	"github.com/paulmach/orb"

	"walk-router/internal/models"
)

// Region builds a square region of the given half size around (lng, lat)
func Region(id string, lng, lat, half float64) models.Region {
	ring := orb.Ring{
		{lng - half, lat - half},
		{lng + half, lat - half},
		{lng + half, lat + half},
		{lng - half, lat + half},
		{lng - half, lat - half},
	}
	r := models.Region{ID: id, Name: id, Polygon: orb.Polygon{ring}}
	r.Center = r.FindCenter()
	return r
}

// PointRegion builds a region whose center is exactly (lng, lat)
func PointRegion(id string, lng, lat float64) models.Region {
	return models.Region{ID: id, Name: id, Center: models.Coordinates{Lat: lat, Lng: lng}}
}

// GridRoads returns an n by n street grid with the given spacing in degrees
func GridRoads(n int, spacing float64) []orb.LineString {
	var roads []orb.LineString
	for i := 0; i <= n; i++ {
		row := orb.LineString{}
		col := orb.LineString{}
		for j := 0; j <= n; j++ {
			row = append(row, orb.Point{float64(j) * spacing, float64(i) * spacing})
			col = append(col, orb.Point{float64(i) * spacing, float64(j) * spacing})
		}
		roads = append(roads, row, col)
	}
	return roads
}
