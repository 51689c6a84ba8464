// Package geo holds the spherical-earth primitives shared by fulfillment
// and return routing: great-circle distance, nearest-warehouse selection,
// and the cost/time conversion heuristics.
package geo

import (
	"errors"
	"math"

	"reloop-service/internal/models"
)

// ErrInvalidCoordinate is returned when a coordinate has a non-finite component.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

const (
	earthRadiusKm = 6371.0

	// CostPerKm is the logistics cost rate in INR per km.
	CostPerKm = 2.5

	// AvgSpeedKmh is the assumed average speed for local delivery.
	AvgSpeedKmh = 40.0

	// CO2PerKm is the estimated kg of CO2 emitted per km by a delivery truck.
	CO2PerKm = 0.2
)

// DistanceKm computes the haversine great-circle distance between two
// coordinates. The result is unrounded; callers round at presentation
// boundaries.
func DistanceKm(a, b models.Coordinate) (float64, error) {
	if !a.Valid() || !b.Valid() {
		return 0, ErrInvalidCoordinate
	}

	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c, nil
}

func toRad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

// DeliveryHours converts a distance to an estimated delivery duration at the
// average local speed, rounded to one decimal place.
func DeliveryHours(distanceKm float64) float64 {
	return math.Round(distanceKm/AvgSpeedKmh*10) / 10
}

// CostSaving returns the rupees avoided by shipping over localKm instead of
// baselineKm, rounded to whole rupees.
func CostSaving(baselineKm, localKm float64) int64 {
	return int64(math.Round((baselineKm - localKm) * CostPerKm))
}

// CO2Saved returns the kg of CO2 avoided over the given distance, rounded to
// one decimal place.
func CO2Saved(distanceKm float64) float64 {
	return math.Round(distanceKm*CO2PerKm*10) / 10
}

// Round2 rounds a distance to two decimal places for storage and display.
func Round2(km float64) float64 {
	return math.Round(km*100) / 100
}

// Match is the result of a nearest-warehouse scan. Warehouse is nil and
// DistanceKm zero when no candidate survives filtering.
type Match struct {
	Warehouse  *models.Warehouse
	DistanceKm float64
}

// Nearest selects the eligible warehouse (active, below capacity) closest to
// point. Ties break in favor of the first candidate encountered. Candidates
// with non-finite locations are skipped rather than failing the scan.
func Nearest(point models.Coordinate, candidates []models.Warehouse) (Match, error) {
	if !point.Valid() {
		return Match{}, ErrInvalidCoordinate
	}

	var nearest *models.Warehouse
	minDist := math.Inf(1)

	for i := range candidates {
		wh := &candidates[i]
		if !wh.Eligible() {
			continue
		}

		dist, err := DistanceKm(point, wh.Location())
		if err != nil {
			continue
		}
		if dist < minDist {
			minDist = dist
			nearest = wh
		}
	}

	if nearest == nil {
		return Match{}, nil
	}
	return Match{Warehouse: nearest, DistanceKm: Round2(minDist)}, nil
}

// Farthest returns the greatest distance from point to any warehouse in
// candidates, regardless of status or capacity. Used as the worst-case
// baseline for savings calculations.
func Farthest(point models.Coordinate, candidates []models.Warehouse) (Match, error) {
	if !point.Valid() {
		return Match{}, ErrInvalidCoordinate
	}

	var farthest *models.Warehouse
	maxDist := 0.0

	for i := range candidates {
		wh := &candidates[i]
		dist, err := DistanceKm(point, wh.Location())
		if err != nil {
			continue
		}
		if dist > maxDist {
			maxDist = dist
			farthest = wh
		}
	}

	if farthest == nil {
		return Match{}, nil
	}
	return Match{Warehouse: farthest, DistanceKm: maxDist}, nil
}
