package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(r), "report: encode json")
}

// WriteYAML writes the report as YAML.
func WriteYAML(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "report: encode yaml")
	}
	return eris.Wrap(enc.Close(), "report: close yaml")
}

var csvColumns = []string{"rank", "id", "name", "n_trees", "area_km2", "density"}

// WriteCSV writes the top list with a header row.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvColumns); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, t := range r.Top {
		row := []string{
			strconv.Itoa(t.Rank),
			t.Municipality.ID,
			t.Municipality.Name,
			strconv.FormatInt(t.Municipality.TreeCount, 10),
			strconv.FormatFloat(t.Municipality.AreaKm2, 'f', -1, 64),
			strconv.FormatFloat(t.Density, 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}
