// Package model defines the municipality records and cache entries shared
// across packages.
package model

import "math"

// Municipality is one row of the tree-count dataset.
type Municipality struct {
	ID        string  `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	TreeCount int64   `json:"n_trees" yaml:"n_trees"`
	AreaKm2   float64 `json:"area_km2" yaml:"area_km2"`
	Centre    *Centre `json:"centre,omitempty" yaml:"centre,omitempty"`
}

// Density returns trees per square kilometre. It is recomputed on every call.
// ok is false when the area is zero, negative, NaN or infinite.
func (m Municipality) Density() (density float64, ok bool) {
	if !ValidArea(m.AreaKm2) {
		return 0, false
	}
	return float64(m.TreeCount) / m.AreaKm2, true
}

// ValidArea reports whether a can be used as a density denominator.
func ValidArea(a float64) bool {
	return a > 0 && !math.IsInf(a, 1) && !math.IsNaN(a)
}

// Centre is the geometric centre of a municipality, in WGS84 lon/lat.
type Centre struct {
	ID  string  `json:"id" yaml:"id"`
	Lon float64 `json:"lon" yaml:"lon"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// Ranked is a municipality with its position in a density ranking.
type Ranked struct {
	Rank         int          `json:"rank" yaml:"rank"`
	Municipality Municipality `json:"municipality" yaml:"municipality"`
	Density      float64      `json:"density" yaml:"density"`
}
