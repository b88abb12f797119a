// Package geo measures travel across the world map.
package geo

import (
	"errors"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/ripmod/rip/pkg/core"
)

// DefaultMinutesPerPixel approximates a day's travel across 24 map cells on
// foot, with rests.
const DefaultMinutesPerPixel = 60.0

// ErrShortRoute is returned for routes with fewer than two points.
var ErrShortRoute = errors.New("route needs at least two points")

// Route builds a line string through map cells in order.
func Route(points ...core.MapPixel) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, ErrShortRoute
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, float64(p.X), float64(p.Y))
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// Distance returns the straight-line distance between two cells in cell
// units.
func Distance(from, to core.MapPixel) float64 {
	ls, err := Route(from, to)
	if err != nil {
		return 0
	}
	return ls.Length()
}

// PixelTimer estimates travel time from map distance.
type PixelTimer struct {
	MinutesPerPixel float64
}

// Minutes returns the whole minutes needed to travel between two cells.
func (t PixelTimer) Minutes(from, to core.MapPixel) int {
	rate := t.MinutesPerPixel
	if rate <= 0 {
		rate = DefaultMinutesPerPixel
	}
	return int(math.Ceil(Distance(from, to) * rate))
}
