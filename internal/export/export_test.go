package export

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/lotes-cli/internal/parcel"
)

// Ring given counter-clockwise, as RFC 7946 recommends for exteriors.
const fixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": 1,
     "geometry": {"type": "Polygon", "coordinates": [[[-46.63, -23.55], [-46.62, -23.55], [-46.62, -23.54], [-46.63, -23.54], [-46.63, -23.55]]]},
     "properties": {"ID_LOTE": "L1", "GRAU_RISCO": 1, "NUCLEO": "Jardim São Luís", "CUSTO": 50}},
    {"type": "Feature",
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[-46.61, -23.55], [-46.60, -23.55], [-46.60, -23.54], [-46.61, -23.54], [-46.61, -23.55]],
        [[-46.608, -23.548], [-46.608, -23.542], [-46.602, -23.542], [-46.602, -23.548], [-46.608, -23.548]]],
       [[[-46.59, -23.55], [-46.58, -23.55], [-46.58, -23.54], [-46.59, -23.55]]]
     ]},
     "properties": {"ID_LOTE": "L2", "GRAU_RISCO": 3, "NUCLEO": "B", "CUSTO": 200.5, "LOTE_APP": "SIM"}},
    {"type": "Feature",
     "geometry": {"type": "Point", "coordinates": [-46.57, -23.53]},
     "properties": {"ID_LOTE": "L3", "GRAU_RISCO": "NA", "NUCLEO": "B"}},
    {"type": "Feature", "geometry": null,
     "properties": {"ID_LOTE": "L4"}}
  ]
}`

func fixtureFeatures(t *testing.T) []parcel.Feature {
	t.Helper()
	c, err := parcel.DecodeBytes([]byte(fixture))
	require.NoError(t, err)
	return c.Features
}
