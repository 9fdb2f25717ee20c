package export

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/lotes-cli/internal/parcel"
)

// wgs84WKT is written to the .prj sidecar.
const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// ShapefileResult reports how many features were written and how many were
// left out because their geometry is not polygonal.
type ShapefileResult struct {
	Path    string `json:"path"`
	Written int    `json:"written"`
	Skipped int    `json:"skipped"`
}

var shapeFields = []shp.Field{
	shp.StringField("ID_LOTE", 50),
	shp.StringField("NUCLEO", 80),
	shp.StringField("GRAU_RISCO", 2),
	shp.FloatField("CUSTO", 19, 2),
	shp.StringField("LOTE_APP", 3),
}

// Shapefile writes the polygonal features to a POLYGON shapefile at path
// (".shp" is appended when missing) along with .shx, .dbf, .prj and .cpg
// sidecars. Each Polygon or MultiPolygon becomes one record whose parts are
// its rings.
func Shapefile(path string, features []parcel.Feature) (ShapefileResult, error) {
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		path += ".shp"
	}
	res := ShapefileResult{Path: path}

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return res, eris.Wrapf(err, "export: create shapefile %s", path)
	}
	if err := writeShapes(w, features, &res); err != nil {
		w.Close()
		return res, err
	}
	// Close flushes the headers of all three files.
	w.Close()

	base := strings.TrimSuffix(path, filepath.Ext(path))
	// go-shp names the attribute table base+"dbf", without the dot.
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return res, eris.Wrap(err, "export: rename dbf")
	}
	if err := os.WriteFile(base+".prj", []byte(wgs84WKT), 0o644); err != nil {
		return res, eris.Wrap(err, "export: write prj")
	}
	if err := os.WriteFile(base+".cpg", []byte("UTF-8"), 0o644); err != nil {
		return res, eris.Wrap(err, "export: write cpg")
	}

	if res.Skipped > 0 {
		zap.L().Info("export: skipped non-polygon features",
			zap.String("path", path),
			zap.Int("skipped", res.Skipped),
		)
	}
	return res, nil
}

func writeShapes(w *shp.Writer, features []parcel.Feature, res *ShapefileResult) error {
	if err := w.SetFields(shapeFields); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}
	for i := range features {
		f := &features[i]
		poly, ok := shapePolygon(f.Geometry)
		if !ok {
			res.Skipped++
			continue
		}
		row := int(w.Write(poly))
		if err := writeShapeAttributes(w, row, f); err != nil {
			return eris.Wrapf(err, "export: write attributes for %q", f.Label)
		}
		res.Written++
	}
	return nil
}

func writeShapeAttributes(w *shp.Writer, row int, f *parcel.Feature) error {
	app := "NAO"
	if f.InPreservationArea {
		app = "SIM"
	}
	values := []any{
		truncateUTF8(f.Label, 50),
		truncateUTF8(f.Nucleo, 80),
		string(f.Grade),
		"",
		app,
	}
	if f.HasCost {
		values[3] = f.Cost
	}
	for field, v := range values {
		if err := w.WriteAttribute(row, field, v); err != nil {
			return err
		}
	}
	return nil
}

// shapePolygon converts a (Multi)Polygon into a shapefile polygon with
// exterior rings clockwise and holes counter-clockwise.
func shapePolygon(g *parcel.Geometry) (*shp.Polygon, bool) {
	if g == nil || (g.Type != "Polygon" && g.Type != "MultiPolygon") {
		return nil, false
	}
	t, err := g.Geom()
	if err != nil {
		return nil, false
	}

	var polys []*geom.Polygon
	switch p := t.(type) {
	case *geom.Polygon:
		polys = append(polys, p)
	case *geom.MultiPolygon:
		for i := 0; i < p.NumPolygons(); i++ {
			polys = append(polys, p.Polygon(i))
		}
	}

	var parts [][]shp.Point
	for _, p := range polys {
		for r := 0; r < p.NumLinearRings(); r++ {
			coords := p.LinearRing(r).Coords()
			if len(coords) == 0 {
				continue
			}
			ring := make([]shp.Point, len(coords))
			for i, c := range coords {
				ring[i] = shp.Point{X: c.X(), Y: c.Y()}
			}
			exterior := r == 0
			if clockwise(ring) != exterior {
				reverse(ring)
			}
			parts = append(parts, ring)
		}
	}
	if len(parts) == 0 {
		return nil, false
	}

	poly := shp.Polygon(*shp.NewPolyLine(parts))
	return &poly, true
}

// clockwise reports whether the ring's signed area is negative.
func clockwise(ring []shp.Point) bool {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum < 0
}

func reverse(ring []shp.Point) {
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
