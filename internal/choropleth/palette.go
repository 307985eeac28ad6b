package choropleth

import (
	"slices"

	"github.com/rotisserie/eris"
)

// ErrUnsupportedClasses is returned for a colour scheme size with no palette.
var ErrUnsupportedClasses = eris.New("choropleth: unsupported class count")

// greens holds the sequential ColorBrewer Greens schemes, as shipped in
// d3-scale-chromatic, indexed by class count.
var greens = map[int][]string{
	3: {"#e5f5e0", "#a1d99b", "#31a354"},
	4: {"#edf8e9", "#bae4b3", "#74c476", "#238b45"},
	5: {"#edf8e9", "#bae4b3", "#74c476", "#31a354", "#006d2c"},
	6: {"#edf8e9", "#c7e9c0", "#a1d99b", "#74c476", "#31a354", "#006d2c"},
	7: {"#edf8e9", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#005a32"},
	8: {"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#005a32"},
	9: {"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b"},
}

// Greens returns the k-class Greens scheme, lightest first.
func Greens(k int) ([]string, error) {
	c, ok := greens[k]
	if !ok {
		return nil, eris.Wrapf(ErrUnsupportedClasses, "greens: k=%d (want 3..9)", k)
	}
	return slices.Clone(c), nil
}

// NewGreensScale builds a quantile scale over values using the k-class
// Greens scheme.
func NewGreensScale(values []float64, k int) (*QuantileScale, error) {
	colors, err := Greens(k)
	if err != nil {
		return nil, err
	}
	return NewQuantileScale(values, colors)
}
