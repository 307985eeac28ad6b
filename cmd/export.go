package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/treedensity/treedensity-cli/internal/choropleth"
	"github.com/treedensity/treedensity-cli/internal/dataset"
	"github.com/treedensity/treedensity-cli/internal/density"
	"github.com/treedensity/treedensity-cli/internal/geodata"
	"github.com/treedensity/treedensity-cli/internal/report"
)

var (
	exportOut    string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the classified choropleth or the full ranking to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := exportFormatFor(exportOut, exportFormat)
		if err != nil {
			return err
		}

		env, err := initAnalysis(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		ds, err := env.Loader.Load(ctx, configuredSources())
		if err != nil {
			return err
		}
		scale, err := buildScale(ds.Records)
		if err != nil {
			return err
		}

		if err := writeExportFile(exportOut, func(w io.Writer) error {
			return writeExport(w, format, ds, env.Analyzer, scale)
		}); err != nil {
			return err
		}

		zap.L().Info("export written",
			zap.String("path", exportOut),
			zap.String("format", format),
			zap.Int("municipalities", len(ds.Records)),
		)
		return nil
	},
}

// exportFormatFor returns the explicit format, or infers one from the output
// file extension.
func exportFormatFor(out, format string) (string, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(out)) {
		case ".xlsx":
			format = "xlsx"
		case ".csv":
			format = "csv"
		default:
			format = "geojson"
		}
	}
	switch format {
	case "geojson", "xlsx", "csv":
		return format, nil
	default:
		return "", eris.Errorf("unsupported export format: %s", format)
	}
}

func writeExport(w io.Writer, format string, ds *dataset.Dataset, a *density.Analyzer, scale *choropleth.QuantileScale) error {
	if format == "geojson" {
		return geodata.EncodeChoropleth(w, ds.Features, scale)
	}

	rep, err := report.Build(ds.Records, len(ds.Records), a, scale)
	if err != nil {
		return err
	}
	rep.OrphanCentres = ds.OrphanCentres
	if format == "xlsx" {
		return report.WriteXLSX(w, rep)
	}
	return report.WriteCSV(w, rep)
}

// writeExportFile writes through a temporary file and renames it into place
// so a failed export leaves no partial output.
func writeExportFile(path string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrap(err, "export: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "export: close temp file")
	}
	return eris.Wrap(os.Rename(tmp.Name(), path), "export: rename")
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "geojson, xlsx or csv (default from --out extension)")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
