package report

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet names of the XLSX report.
const (
	SheetRanking = "Ranking"
	SheetClasses = "Classes"
)

// Workbook builds an XLSX workbook with the ranking and the class breaks.
func Workbook(r *Report) (*xlsx.File, error) {
	f := xlsx.NewFile()

	ranking, err := f.AddSheet(SheetRanking)
	if err != nil {
		return nil, eris.Wrap(err, "report: add ranking sheet")
	}
	addStrings(ranking.AddRow(), csvColumns...)
	for _, t := range r.Top {
		row := ranking.AddRow()
		row.AddCell().SetInt(t.Rank)
		row.AddCell().SetString(t.Municipality.ID)
		row.AddCell().SetString(t.Municipality.Name)
		row.AddCell().SetInt64(t.Municipality.TreeCount)
		row.AddCell().SetFloat(t.Municipality.AreaKm2)
		row.AddCell().SetFloat(t.Density)
	}

	classes, err := f.AddSheet(SheetClasses)
	if err != nil {
		return nil, eris.Wrap(err, "report: add classes sheet")
	}
	addStrings(classes.AddRow(), "class", "from", "to", "color")
	for _, br := range r.Breaks {
		row := classes.AddRow()
		row.AddCell().SetInt(br.Class + 1)
		row.AddCell().SetFloat(br.From)
		row.AddCell().SetFloat(br.To)
		row.AddCell().SetString(br.Color)
	}

	return f, nil
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// WriteXLSX writes the workbook to w.
func WriteXLSX(w io.Writer, r *Report) error {
	f, err := Workbook(r)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "report: write xlsx")
}
