package fridge

import (
	"fmt"
	"math"
)

// GeofenceRadius is the default distance, in metres, within which a store or zone counts as nearby.
const GeofenceRadius = 1600.0

const earthRadiusMeters = 6371008.8

type Point struct {
	Lat float64
	Lon float64
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lon)
}

func (p Point) String() string { return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon) }

// NearbyStore is a single shop location.
type NearbyStore struct {
	ID    string
	Name  string
	Point Point
}

// NearbyZone is a shop outline (a polygon's vertices).
type NearbyZone struct {
	ID     string
	Name   string
	Points []Point
}

// Distance returns the great-circle distance between a and b in metres.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// ZoneDistance is the minimum distance from p to any vertex of z.
func ZoneDistance(p Point, z NearbyZone) (float64, bool) {
	if len(z.Points) == 0 {
		return 0, false
	}
	best := math.Inf(1)
	for _, v := range z.Points {
		best = math.Min(best, Distance(p, v))
	}
	return best, true
}

// NearestStore returns the closest store within radius metres.
func NearestStore(loc Point, stores []NearbyStore, radius float64) (NearbyStore, float64, bool) {
	var (
		best  NearbyStore
		bestD = math.Inf(1)
		found bool
	)
	for _, s := range stores {
		if d := Distance(loc, s.Point); d <= radius && d < bestD {
			best, bestD, found = s, d, true
		}
	}
	return best, bestD, found
}

// NearestZone returns the closest zone within radius metres.
func NearestZone(loc Point, zones []NearbyZone, radius float64) (NearbyZone, float64, bool) {
	var (
		best  NearbyZone
		bestD = math.Inf(1)
		found bool
	)
	for _, z := range zones {
		if d, ok := ZoneDistance(loc, z); ok && d <= radius && d < bestD {
			best, bestD, found = z, d, true
		}
	}
	return best, bestD, found
}
