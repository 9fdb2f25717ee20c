package parcel

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/lotes-cli/internal/reproject"
)

// ErrMalformedGeometry is returned when coordinates do not match the
// structure their type tag requires.
var ErrMalformedGeometry = eris.New("parcel: malformed geometry")

// BBox is a geographic bounding box.
type BBox struct {
	MinLng float64 `json:"min_lng" yaml:"min_lng"`
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLng float64 `json:"max_lng" yaml:"max_lng"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
}

// Geom converts the geometry to a go-geom XY geometry. Values past the
// second dimension are dropped.
func (g *Geometry) Geom() (geom.T, error) {
	if g == nil {
		return nil, eris.Wrap(ErrMalformedGeometry, "nil geometry")
	}

	switch g.Type {
	case "Point":
		if g.Coordinates.Kind() != reproject.KindPair {
			return nil, eris.Wrap(ErrMalformedGeometry, "point: expected a position")
		}
		pos := g.Coordinates.Position()
		return geom.NewPointFlat(geom.XY, []float64{pos[0], pos[1]}), nil

	case "MultiPoint":
		flat, err := positions(g.Coordinates)
		if err != nil {
			return nil, eris.Wrap(err, "multipoint")
		}
		return geom.NewMultiPointFlat(geom.XY, flat), nil

	case "LineString":
		flat, err := positions(g.Coordinates)
		if err != nil {
			return nil, eris.Wrap(err, "linestring")
		}
		return geom.NewLineStringFlat(geom.XY, flat), nil

	case "MultiLineString":
		flat, ends, err := rings(g.Coordinates, nil)
		if err != nil {
			return nil, eris.Wrap(err, "multilinestring")
		}
		return geom.NewMultiLineStringFlat(geom.XY, flat, ends), nil

	case "Polygon":
		flat, ends, err := rings(g.Coordinates, nil)
		if err != nil {
			return nil, eris.Wrap(err, "polygon")
		}
		return geom.NewPolygonFlat(geom.XY, flat, ends), nil

	case "MultiPolygon":
		if g.Coordinates.Kind() != reproject.KindList {
			return nil, eris.Wrap(ErrMalformedGeometry, "multipolygon: expected a list of polygons")
		}
		var flat []float64
		endss := make([][]int, 0, len(g.Coordinates.Children()))
		for _, poly := range g.Coordinates.Children() {
			var ends []int
			var err error
			flat, ends, err = rings(poly, flat)
			if err != nil {
				return nil, eris.Wrap(err, "multipolygon")
			}
			endss = append(endss, ends)
		}
		return geom.NewMultiPolygonFlat(geom.XY, flat, endss), nil

	case "GeometryCollection":
		gc := geom.NewGeometryCollection()
		for _, member := range g.Geometries {
			mg, err := member.Geom()
			if err != nil {
				return nil, eris.Wrap(err, "geometrycollection")
			}
			if err := gc.Push(mg); err != nil {
				return nil, eris.Wrap(err, "geometrycollection: push member")
			}
		}
		return gc, nil
	}

	return nil, eris.Wrapf(ErrMalformedGeometry, "unsupported geometry type %q", g.Type)
}

// positions flattens a list of positions.
func positions(n reproject.Node) ([]float64, error) {
	return appendPositions(n, nil)
}

func appendPositions(n reproject.Node, flat []float64) ([]float64, error) {
	if n.Kind() != reproject.KindList {
		return nil, eris.Wrap(ErrMalformedGeometry, "expected a list of positions")
	}
	for _, c := range n.Children() {
		if c.Kind() != reproject.KindPair {
			return nil, eris.Wrap(ErrMalformedGeometry, "expected a position")
		}
		pos := c.Position()
		flat = append(flat, pos[0], pos[1])
	}
	return flat, nil
}

// rings flattens a list of position lists onto flat, returning the end
// offset of each part.
func rings(n reproject.Node, flat []float64) ([]float64, []int, error) {
	if n.Kind() != reproject.KindList {
		return nil, nil, eris.Wrap(ErrMalformedGeometry, "expected a list of rings")
	}
	ends := make([]int, 0, len(n.Children()))
	for _, ring := range n.Children() {
		var err error
		flat, err = appendPositions(ring, flat)
		if err != nil {
			return nil, nil, err
		}
		ends = append(ends, len(flat))
	}
	return flat, ends, nil
}

// Extent returns the bounding box of all parcel geometries. ok is false when
// no feature has a convertible, non-empty geometry.
func Extent(features []Feature) (BBox, bool) {
	b := geom.NewBounds(geom.XY)
	extended := 0
	for i := range features {
		g := features[i].Geometry
		if g == nil {
			continue
		}
		extended += extend(b, g, features[i].Label)
	}
	if extended == 0 {
		return BBox{}, false
	}
	return BBox{MinLng: b.Min(0), MinLat: b.Min(1), MaxLng: b.Max(0), MaxLat: b.Max(1)}, true
}

func extend(b *geom.Bounds, g *Geometry, label string) int {
	if g.Type == "GeometryCollection" {
		n := 0
		for _, member := range g.Geometries {
			if member != nil {
				n += extend(b, member, label)
			}
		}
		return n
	}
	if g.Coordinates.Count() == 0 {
		return 0
	}
	t, err := g.Geom()
	if err != nil {
		zap.L().Debug("parcel: skipping geometry in extent", zap.String("label", label), zap.Error(err))
		return 0
	}
	b.Extend(t)
	return 1
}
