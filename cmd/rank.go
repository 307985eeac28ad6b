package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/treedensity/treedensity-cli/internal/report"
)

var (
	rankTop    int
	rankFormat string
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Print the densest municipalities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

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

		n := cfg.Analysis.TopN
		if cmd.Flags().Changed("top") {
			n = rankTop
		}
		rep, err := report.Build(ds.Records, n, env.Analyzer, scale)
		if err != nil {
			return err
		}
		rep.OrphanCentres = ds.OrphanCentres

		format := cfg.Report.Format
		if rankFormat != "" {
			format = rankFormat
		}
		return writeReport(cmd.OutOrStdout(), rep, format)
	},
}

func writeReport(w io.Writer, rep *report.Report, format string) error {
	switch format {
	case "", "text":
		return report.WriteText(w, rep, report.TextOptions{Locale: cfg.Report.Locale})
	case "json":
		return report.WriteJSON(w, rep)
	case "yaml":
		return report.WriteYAML(w, rep)
	case "csv":
		return report.WriteCSV(w, rep)
	default:
		return eris.Errorf("unsupported report format: %s", format)
	}
}

func init() {
	rankCmd.Flags().IntVar(&rankTop, "top", 0, "number of municipalities to list (default from config)")
	rankCmd.Flags().StringVar(&rankFormat, "format", "", "output format: text, json, yaml or csv (default from config)")
	rootCmd.AddCommand(rankCmd)
}
