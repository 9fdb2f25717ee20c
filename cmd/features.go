package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lotes-cli/internal/export"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Write the selected parcels as a geodetic GeoJSON FeatureCollection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString("out")

		sess, err := loadFromFlags(cmd)
		if err != nil {
			return err
		}
		v := sess.Recompute()

		if out == "" || out == "-" {
			return export.GeoJSON(os.Stdout, v.Features)
		}

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		defer f.Close() //nolint:errcheck
		if err := export.GeoJSON(f, v.Features); err != nil {
			return err
		}
		zap.L().Info("features written", zap.String("path", out), zap.Int("features", len(v.Features)))
		return f.Close()
	},
}

func init() {
	featuresCmd.Flags().String("out", "", "output file (default stdout)")
	rootCmd.AddCommand(featuresCmd)
}
