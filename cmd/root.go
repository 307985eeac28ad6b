package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/treedensity/treedensity-cli/internal/config"
)

var cfg *config.Config

var (
	flagMunicipalities string
	flagCentres        string
)

var rootCmd = &cobra.Command{
	Use:          "treedensity",
	Short:        "Tree density rankings for municipalities",
	Long:         "Loads tree counts per municipality and municipality centres from GeoJSON, ranks municipalities by trees per km², and exports a classified choropleth for map renderers.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if flagMunicipalities != "" {
			c.Sources.Municipalities = flagMunicipalities
		}
		if cmd.Flags().Changed("centres") {
			c.Sources.Centres = flagCentres
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMunicipalities, "municipalities", "", "municipality tree counts: URL, path or .shp (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagCentres, "centres", "", "municipality centres: URL or path, empty to skip (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
