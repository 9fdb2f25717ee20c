package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lotes-cli/internal/db"
	"github.com/sells-group/lotes-cli/internal/export"
	"github.com/sells-group/lotes-cli/internal/session"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the selected parcels",
	Long: "Writes the selected parcels as GeoJSON, an ESRI shapefile, or an xlsx workbook, " +
		"or replaces a PostGIS table with them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		switch format {
		case "geojson", "shapefile", "xlsx":
		case "postgis":
			applyPostGISFlags(cmd)
			if err := cfg.Validate("postgis"); err != nil {
				return err
			}
		default:
			return eris.Errorf("unknown export format %q (want geojson, shapefile, xlsx or postgis)", format)
		}

		sess, err := loadFromFlags(cmd)
		if err != nil {
			return err
		}
		return runExport(cmd, sess, format, out)
	},
}

func init() {
	f := exportCmd.Flags()
	f.String("format", "geojson", "export format: geojson, shapefile, xlsx, postgis")
	f.String("out", "", "output path (default lotes.<ext> in export.dir)")
	f.String("database-url", "", "PostGIS connection string (default from config)")
	f.String("schema", "", "PostGIS schema (default from config)")
	f.String("table", "", "PostGIS table (default from config)")
	rootCmd.AddCommand(exportCmd)
}

// applyPostGISFlags copies changed flags over the PostGIS config.
func applyPostGISFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("database-url") {
		cfg.Export.PostGIS.DatabaseURL, _ = flags.GetString("database-url")
	}
	if flags.Changed("schema") {
		cfg.Export.PostGIS.Schema, _ = flags.GetString("schema")
	}
	if flags.Changed("table") {
		cfg.Export.PostGIS.Table, _ = flags.GetString("table")
	}
	if flags.Changed("source") {
		cfg.Dataset.Source, _ = flags.GetString("source")
	}
}

func runExport(cmd *cobra.Command, sess *session.Session, format, out string) error {
	v := sess.Recompute()
	log := zap.L().With(zap.String("component", "export"), zap.String("format", format))

	switch format {
	case "geojson":
		path := outputPath(out, "lotes.geojson")
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer f.Close() //nolint:errcheck
		if err := export.GeoJSON(f, v.Features); err != nil {
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "close %s", path)
		}
		log.Info("export complete", zap.String("path", path), zap.Int("rows", len(v.Features)))
		fmt.Fprintf(os.Stdout, "%d lotes -> %s\n", len(v.Features), path)

	case "shapefile":
		res, err := export.Shapefile(outputPath(out, "lotes.shp"), v.Features)
		if err != nil {
			return err
		}
		log.Info("export complete", zap.String("path", res.Path), zap.Int("rows", res.Written), zap.Int("skipped", res.Skipped))
		fmt.Fprintf(os.Stdout, "%d lotes -> %s (%d sem polígono ignorados)\n", res.Written, res.Path, res.Skipped)

	case "xlsx":
		path := outputPath(out, "lotes.xlsx")
		if err := export.Workbook(path, v.Features, v.Summary); err != nil {
			return err
		}
		log.Info("export complete", zap.String("path", path), zap.Int("rows", len(v.Features)))
		fmt.Fprintf(os.Stdout, "%d lotes -> %s\n", len(v.Features), path)

	case "postgis":
		pg := cfg.Export.PostGIS
		if pg.DatabaseURL == "" {
			return eris.New("export: postgis requires --database-url or export.postgis.database_url")
		}
		pool, err := db.Connect(cmd.Context(), pg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		res, err := export.PostGIS(cmd.Context(), pool, export.Target{
			Schema:    pg.Schema,
			Table:     pg.Table,
			BatchSize: pg.BatchSize,
		}, v.Features)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%d lotes -> %s\n", res.Written, res.Table)

	default:
		return eris.Errorf("unknown export format %q (want geojson, shapefile, xlsx or postgis)", format)
	}
	return nil
}

// outputPath returns out, or name inside export.dir when out is empty.
func outputPath(out, name string) string {
	if out != "" {
		return out
	}
	return filepath.Join(cfg.Export.Dir, name)
}
