package export

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/sells-group/lotes-cli/internal/db"
	"github.com/sells-group/lotes-cli/internal/parcel"
)

// SRID of every published geometry.
const SRID = 4326

// Target names the table a PostGIS export replaces.
type Target struct {
	Schema    string
	Table     string
	BatchSize int
}

// PostGISResult reports the rows written and how many of them carry a NULL
// geometry because theirs could not be encoded.
type PostGISResult struct {
	Table        string `json:"table"`
	Written      int64  `json:"written"`
	NullGeometry int    `json:"null_geometry"`
}

// Columns of the published table, in COPY order.
var postgisColumns = []db.Column{
	{Name: "id_lote", Type: "text"},
	{Name: "nucleo", Type: "text"},
	{Name: "grau_risco", Type: "text"},
	{Name: "custo", Type: "double precision"},
	{Name: "lote_app", Type: "boolean"},
	{Name: "geom", Type: "geometry(Geometry, 4326)"},
}

// PostGIS replaces the contents of the target table with features. Publication
// is one-way: nothing reads the table back.
func PostGIS(ctx context.Context, pool db.Pool, target Target, features []parcel.Feature) (PostGISResult, error) {
	if target.Table == "" {
		return PostGISResult{}, eris.New("export: postgis target has no table")
	}
	spec := db.TableSpec{
		Schema:  target.Schema,
		Table:   target.Table,
		Columns: postgisColumns,
		Indexed: []string{"geom", "nucleo"},
	}
	res := PostGISResult{Table: target.Table}
	if target.Schema != "" {
		res.Table = target.Schema + "." + target.Table
	}

	rows := make([][]any, 0, len(features))
	for i := range features {
		row, ok := postgisRow(&features[i])
		if !ok {
			res.NullGeometry++
		}
		rows = append(rows, row)
	}

	n, err := db.ReplaceTable(ctx, pool, spec, rows, target.BatchSize)
	if err != nil {
		return res, eris.Wrapf(err, "export: publish %s", res.Table)
	}
	res.Written = n

	zap.L().Info("export: published to postgis",
		zap.String("table", res.Table),
		zap.Int64("rows", n),
		zap.Int("null_geometry", res.NullGeometry),
	)
	return res, nil
}

// postgisRow builds the COPY row for f. ok is false when the geometry was
// replaced by NULL.
func postgisRow(f *parcel.Feature) ([]any, bool) {
	var custo any
	if f.HasCost {
		custo = f.Cost
	}
	var label any
	if f.Label != "" {
		label = f.Label
	}

	wkb, err := EncodeEWKB(f.Geometry)
	ok := err == nil && wkb != nil
	if err != nil {
		zap.L().Debug("export: geometry not encodable", zap.String("label", f.Label), zap.Error(err))
	}
	var g any
	if ok {
		g = wkb
	}

	return []any{label, f.Nucleo, string(f.Grade), custo, f.InPreservationArea, g}, ok
}

// EncodeEWKB converts a parcel geometry to little-endian EWKB with SRID 4326.
// A nil geometry encodes to nil.
func EncodeEWKB(g *parcel.Geometry) ([]byte, error) {
	if g == nil {
		return nil, nil
	}
	t, err := g.Geom()
	if err != nil {
		return nil, err
	}
	t, err = withSRID(t, SRID)
	if err != nil {
		return nil, err
	}
	data, err := ewkb.Marshal(t, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "export: encode EWKB")
	}
	return data, nil
}

func withSRID(t geom.T, srid int) (geom.T, error) {
	switch g := t.(type) {
	case *geom.Point:
		return g.SetSRID(srid), nil
	case *geom.MultiPoint:
		return g.SetSRID(srid), nil
	case *geom.LineString:
		return g.SetSRID(srid), nil
	case *geom.MultiLineString:
		return g.SetSRID(srid), nil
	case *geom.Polygon:
		return g.SetSRID(srid), nil
	case *geom.MultiPolygon:
		return g.SetSRID(srid), nil
	case *geom.GeometryCollection:
		return g.SetSRID(srid), nil
	}
	return nil, eris.Errorf("export: unsupported geometry %T", t)
}
