// Package choropleth assigns density values to colour classes using a
// quantile scale.
package choropleth

import (
	"math"
	"slices"
	"sort"

	"github.com/rotisserie/eris"
)

var (
	// ErrEmptyDomain is returned when a scale is built without any finite value.
	ErrEmptyDomain = eris.New("choropleth: empty domain")
	// ErrNoColors is returned when a scale is built with an empty range.
	ErrNoColors = eris.New("choropleth: no colors")
)

// Break describes one class of a scale.
type Break struct {
	Class int     `json:"class" yaml:"class"`
	From  float64 `json:"from" yaml:"from"`
	To    float64 `json:"to" yaml:"to"`
	Color string  `json:"color" yaml:"color"`
}

// QuantileScale maps a continuous value to one of len(colors) classes so that
// each class holds roughly the same share of the domain.
type QuantileScale struct {
	domain     []float64
	colors     []string
	thresholds []float64
}

// NewQuantileScale builds a scale over domain. NaN and infinite values are
// ignored. The domain slice is not modified.
func NewQuantileScale(domain []float64, colors []string) (*QuantileScale, error) {
	if len(colors) == 0 {
		return nil, ErrNoColors
	}
	sorted := make([]float64, 0, len(domain))
	for _, v := range domain {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return nil, ErrEmptyDomain
	}
	slices.Sort(sorted)

	k := len(colors)
	thresholds := make([]float64, k-1)
	for i := range thresholds {
		thresholds[i] = quantileSorted(sorted, float64(i+1)/float64(k))
	}

	return &QuantileScale{
		domain:     sorted,
		colors:     slices.Clone(colors),
		thresholds: thresholds,
	}, nil
}

// quantileSorted is the R-7 estimator: linear interpolation between the
// closest ranks at h = (n-1)p.
func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if p <= 0 || n < 2 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	i := int(math.Floor(h))
	lo, hi := sorted[i], sorted[i+1]
	return lo + (hi-lo)*(h-float64(i))
}

// Class returns the class index of v, in [0, len(colors)).
func (s *QuantileScale) Class(v float64) int {
	return sort.Search(len(s.thresholds), func(i int) bool { return s.thresholds[i] > v })
}

// Color returns the colour assigned to v.
func (s *QuantileScale) Color(v float64) string {
	return s.colors[s.Class(v)]
}

// Thresholds returns the class boundaries, len(colors)-1 of them.
func (s *QuantileScale) Thresholds() []float64 {
	return slices.Clone(s.thresholds)
}

// Classes returns the number of classes.
func (s *QuantileScale) Classes() int {
	return len(s.colors)
}

// Breaks lists every class with its value interval. The first class starts at
// the domain minimum and the last ends at the domain maximum.
func (s *QuantileScale) Breaks() []Break {
	out := make([]Break, len(s.colors))
	for i := range out {
		from := s.domain[0]
		if i > 0 {
			from = s.thresholds[i-1]
		}
		to := s.domain[len(s.domain)-1]
		if i < len(s.thresholds) {
			to = s.thresholds[i]
		}
		out[i] = Break{Class: i, From: from, To: to, Color: s.colors[i]}
	}
	return out
}
