package models

import (
	"cmp"
	"slices"
)

// TopLawyers is the maximum number of lawyers returned by a search
const TopLawyers = 10

// Lawyer represents a lawyer or law firm found near a location
type Lawyer struct {
	Name    string  `json:"name"`
	Rating  float64 `json:"rating"`
	Address string  `json:"address"`
	PlaceID string  `json:"place_id"`
}

// Coordinates represents a point on the globe
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within latitude and longitude bounds.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// RankLawyers sorts by rating descending, keeping input order for ties,
// and truncates to n entries. The input slice is not modified.
func RankLawyers(lawyers []Lawyer, n int) []Lawyer {
	ranked := slices.Clone(lawyers)
	slices.SortStableFunc(ranked, func(a, b Lawyer) int {
		return cmp.Compare(b.Rating, a.Rating)
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
