package density

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/treedensity/treedensity-cli/internal/model"
)

// Summary describes the density distribution of a dataset.
type Summary struct {
	Count          int     `json:"count" yaml:"count"`
	Excluded       int     `json:"excluded" yaml:"excluded"`
	TotalTrees     int64   `json:"total_trees" yaml:"total_trees"`
	TotalAreaKm2   float64 `json:"total_area_km2" yaml:"total_area_km2"`
	OverallDensity float64 `json:"overall_density" yaml:"overall_density"`
	MinDensity     float64 `json:"min_density" yaml:"min_density"`
	MaxDensity     float64 `json:"max_density" yaml:"max_density"`
	MeanDensity    float64 `json:"mean_density" yaml:"mean_density"`
	MedianDensity  float64 `json:"median_density" yaml:"median_density"`
	StdDevDensity  float64 `json:"stddev_density" yaml:"stddev_density"`
}

// Densities returns the densities of the usable records, in input order.
func Densities(records []model.Municipality) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if d, ok := r.Density(); ok {
			out = append(out, d)
		}
	}
	return out
}

// Summarize computes distribution statistics over the usable records.
// Invalid-area records are counted in Excluded regardless of policy.
func Summarize(records []model.Municipality) (Summary, error) {
	valid, invalid := Partition(records)
	if len(valid) == 0 {
		return Summary{}, ErrEmptyInput
	}

	s := Summary{Count: len(valid), Excluded: len(invalid)}
	for _, r := range valid {
		s.TotalTrees += r.TreeCount
		s.TotalAreaKm2 += r.AreaKm2
	}
	s.OverallDensity = float64(s.TotalTrees) / s.TotalAreaKm2

	ds := Densities(valid)
	s.MinDensity = floats.Min(ds)
	s.MaxDensity = floats.Max(ds)
	if len(ds) > 1 {
		s.MeanDensity, s.StdDevDensity = stat.MeanStdDev(ds, nil)
	} else {
		s.MeanDensity = ds[0]
	}

	sorted := slices.Clone(ds)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		s.MedianDensity = sorted[mid]
	} else {
		s.MedianDensity = (sorted[mid-1] + sorted[mid]) / 2
	}
	return s, nil
}
