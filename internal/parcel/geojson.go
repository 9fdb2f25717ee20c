package parcel

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lotes-cli/internal/reproject"
)

// ErrParse is returned when the input document is not a FeatureCollection.
var ErrParse = eris.New("parcel: parse error")

// TypeFeatureCollection is the GeoJSON type tag of a collection.
const TypeFeatureCollection = "FeatureCollection"

// Collection is an ordered sequence of parcels.
type Collection struct {
	Type     string
	CRS      string // declared crs.properties.name, if any
	Features []Feature
}

// Geometry is a GeoJSON geometry. GeometryCollection members live in
// Geometries; every other type carries Coordinates.
type Geometry struct {
	Type        string
	Coordinates reproject.Node
	Geometries  []*Geometry
}

type geometryJSON struct {
	Type        string          `json:"type"`
	Coordinates *reproject.Node `json:"coordinates,omitempty"`
	Geometries  []*Geometry     `json:"geometries,omitempty"`
}

// UnmarshalJSON decodes a GeoJSON geometry object.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var raw geometryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Type = raw.Type
	g.Geometries = raw.Geometries
	g.Coordinates = reproject.Node{}
	if raw.Coordinates != nil {
		g.Coordinates = *raw.Coordinates
	}
	return nil
}

// MarshalJSON encodes the geometry in GeoJSON form.
func (g Geometry) MarshalJSON() ([]byte, error) {
	out := geometryJSON{Type: g.Type}
	if g.Type == "GeometryCollection" {
		out.Geometries = g.Geometries
		if out.Geometries == nil {
			out.Geometries = []*Geometry{}
		}
	} else {
		coords := g.Coordinates
		out.Coordinates = &coords
	}
	return json.Marshal(out)
}

type crsJSON struct {
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type featureJSON struct {
	Type       string          `json:"type"`
	ID         json.RawMessage `json:"id,omitempty"`
	Geometry   *Geometry       `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type collectionJSON struct {
	Type     string        `json:"type"`
	CRS      *crsJSON      `json:"crs,omitempty"`
	Features []featureJSON `json:"features"`
}

// Decode parses a GeoJSON FeatureCollection. Numbers in properties are kept
// as json.Number so they round-trip unchanged. Any decode failure, or a
// document that is not a FeatureCollection, wraps ErrParse.
func Decode(r io.Reader) (*Collection, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc collectionJSON
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrapf(ErrParse, "decode geojson: %v", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, eris.Wrap(ErrParse, "decode geojson: trailing data after document")
		}
		return nil, eris.Wrapf(ErrParse, "decode geojson: trailing data: %v", err)
	}
	if doc.Type != TypeFeatureCollection {
		return nil, eris.Wrapf(ErrParse, "expected type %q, got %q", TypeFeatureCollection, doc.Type)
	}

	c := &Collection{Type: doc.Type, Features: make([]Feature, 0, len(doc.Features))}
	if doc.CRS != nil {
		c.CRS = doc.CRS.Properties.Name
	}
	for _, fj := range doc.Features {
		f := NewFeature(fj.Geometry, fj.Properties)
		f.ID = fj.ID
		c.Features = append(c.Features, f)
	}
	return c, nil
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (*Collection, error) {
	return Decode(bytes.NewReader(data))
}

// MarshalJSON encodes the feature as a GeoJSON Feature.
func (f Feature) MarshalJSON() ([]byte, error) {
	props := f.Properties
	if props == nil {
		props = map[string]any{}
	}
	return json.Marshal(featureJSON{
		Type:       "Feature",
		ID:         f.ID,
		Geometry:   f.Geometry,
		Properties: props,
	})
}

// MarshalJSON encodes the collection as a GeoJSON FeatureCollection. The
// crs member is never written: output is always geodetic.
func (c Collection) MarshalJSON() ([]byte, error) {
	features := c.Features
	if features == nil {
		features = []Feature{}
	}
	return json.Marshal(struct {
		Type     string    `json:"type"`
		Features []Feature `json:"features"`
	}{Type: TypeFeatureCollection, Features: features})
}
