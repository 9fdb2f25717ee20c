// Package export writes filtered parcel sets to interchange formats: GeoJSON,
// ESRI shapefile, an xlsx workbook, and a PostGIS table.
package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lotes-cli/internal/parcel"
)

// GeoJSON writes features as a geodetic FeatureCollection.
func GeoJSON(w io.Writer, features []parcel.Feature) error {
	c := parcel.Collection{Type: parcel.TypeFeatureCollection, Features: features}
	if err := json.NewEncoder(w).Encode(c); err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	return nil
}
