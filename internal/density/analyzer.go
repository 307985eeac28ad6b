// Package density ranks municipalities by trees per square kilometre.
package density

import (
	"cmp"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/treedensity/treedensity-cli/internal/model"
)

// Analyzer computes density rankings. It holds no state besides its policy
// and never mutates the slices it is given.
type Analyzer struct {
	Policy AreaPolicy
}

// New returns an Analyzer using the given invalid-area policy.
func New(policy AreaPolicy) *Analyzer {
	if policy == "" {
		policy = PolicyExclude
	}
	return &Analyzer{Policy: policy}
}

// Partition splits records into those with a usable density and those
// without, keeping input order in both.
func Partition(records []model.Municipality) (valid, invalid []model.Municipality) {
	for _, r := range records {
		if _, ok := r.Density(); ok {
			valid = append(valid, r)
		} else {
			invalid = append(invalid, r)
		}
	}
	return valid, invalid
}

// MaxDensity returns the record with the highest density. The first record
// encountered wins ties.
func (a *Analyzer) MaxDensity(records []model.Municipality) (model.Ranked, error) {
	scored, err := a.score(records)
	if err != nil {
		return model.Ranked{}, err
	}
	if len(scored) == 0 {
		return model.Ranked{}, ErrEmptyInput
	}

	best := scored[0]
	for _, s := range scored[1:] {
		if s.Density > best.Density {
			best = s
		}
	}
	best.Rank = 1
	return best, nil
}

// TopNByDensity returns the n densest records in descending order. Ties keep
// their input order. Fewer than n records are returned when the input is
// shorter.
func (a *Analyzer) TopNByDensity(records []model.Municipality, n int) ([]model.Ranked, error) {
	if n < 0 {
		return nil, eris.Wrapf(ErrNegativeN, "n=%d", n)
	}
	scored, err := a.score(records)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(scored, func(x, y model.Ranked) int {
		return cmp.Compare(y.Density, x.Density)
	})

	if n < len(scored) {
		scored = scored[:n]
	}
	out := make([]model.Ranked, len(scored))
	for i, s := range scored {
		s.Rank = i + 1
		out[i] = s
	}
	return out, nil
}

// Rank returns every usable record ordered by density.
func (a *Analyzer) Rank(records []model.Municipality) ([]model.Ranked, error) {
	return a.TopNByDensity(records, len(records))
}

// score pairs each usable record with its density, applying the area policy.
// The returned slice is freshly allocated.
func (a *Analyzer) score(records []model.Municipality) ([]model.Ranked, error) {
	scored := make([]model.Ranked, 0, len(records))
	for _, r := range records {
		d, ok := r.Density()
		if !ok {
			if a.Policy == PolicyReject {
				return nil, eris.Wrapf(ErrInvalidArea, "municipality %q (%s) area_km2=%v", r.Name, r.ID, r.AreaKm2)
			}
			continue
		}
		scored = append(scored, model.Ranked{Municipality: r, Density: d})
	}
	return scored, nil
}
