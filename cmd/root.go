package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lotes-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lotes-cli",
	Short: "Risk analysis of land parcels for urban regularization",
	Long: "Loads a GeoJSON parcel layer (UTM or geodetic), reprojects it to WGS 84, " +
		"filters it by núcleo and risk grade, and reports, exports, or serves the result.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
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
	pf := rootCmd.PersistentFlags()
	pf.String("source", "", "parcel layer: path, file://, http(s):// or ftp:// URL, optionally .zip (default from config)")
	pf.String("projection", "", `source projection: UTM zone like "23s", "geodetic", or "auto" (default from config)`)
	pf.String("nucleo", "all", `núcleo to select, or "all"`)
	pf.StringSlice("disable-grade", nil, "risk grades to exclude (1, 2, 3, 4, NA); repeatable")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
