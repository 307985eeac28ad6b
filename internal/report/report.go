// Package report renders density analysis results as text, JSON, YAML, CSV or
// XLSX.
package report

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/treedensity/treedensity-cli/internal/choropleth"
	"github.com/treedensity/treedensity-cli/internal/density"
	"github.com/treedensity/treedensity-cli/internal/model"
)

// Report is the presentation view of one analysis.
type Report struct {
	GeneratedAt   time.Time            `json:"generated_at" yaml:"generated_at"`
	Max           model.Ranked         `json:"max" yaml:"max"`
	Top           []model.Ranked       `json:"top" yaml:"top"`
	Summary       density.Summary      `json:"summary" yaml:"summary"`
	Breaks        []choropleth.Break   `json:"breaks" yaml:"breaks"`
	Excluded      []model.Municipality `json:"excluded" yaml:"excluded"`
	OrphanCentres []string             `json:"orphan_centres,omitempty" yaml:"orphan_centres,omitempty"`
}

// Build runs the analyzer over records and assembles a report with the n
// densest municipalities. scale may be nil, in which case no breaks are
// reported.
func Build(records []model.Municipality, n int, a *density.Analyzer, scale *choropleth.QuantileScale) (*Report, error) {
	top, err := a.TopNByDensity(records, n)
	if err != nil {
		return nil, eris.Wrap(err, "report: top")
	}
	maxRec, err := a.MaxDensity(records)
	if err != nil {
		return nil, eris.Wrap(err, "report: max")
	}
	summary, err := density.Summarize(records)
	if err != nil {
		return nil, eris.Wrap(err, "report: summary")
	}

	_, excluded := density.Partition(records)
	if excluded == nil {
		excluded = []model.Municipality{}
	}

	r := &Report{
		GeneratedAt: time.Now().UTC(),
		Max:         maxRec,
		Top:         top,
		Summary:     summary,
		Breaks:      []choropleth.Break{},
		Excluded:    excluded,
	}
	if scale != nil {
		r.Breaks = scale.Breaks()
	}
	return r, nil
}
