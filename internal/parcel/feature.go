// Package parcel holds the normalized land parcel ("lote") feature model and
// its GeoJSON boundary. Property defaulting happens once, when a feature is
// built, so filtering and aggregation only see statically typed fields.
package parcel

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lotes-cli/internal/risk"
)

// Recognized property keys.
const (
	PropGrade  = "GRAU_RISCO"
	PropNucleo = "NUCLEO"
	PropCost   = "CUSTO"
	PropAPP    = "LOTE_APP"
	PropIDLote = "ID_LOTE"
	PropID     = "ID"
)

// NoNucleo is the cluster assigned to parcels without a NUCLEO property.
const NoNucleo = "N/A"

// Feature is a parcel with its geometry, raw properties, and the normalized
// values derived from those properties.
type Feature struct {
	ID         json.RawMessage
	Geometry   *Geometry
	Properties map[string]any

	Grade              risk.Grade
	Nucleo             string
	Cost               float64
	HasCost            bool
	InPreservationArea bool
	Label              string
}

// NewFeature builds a feature and applies the property defaulting rules.
func NewFeature(g *Geometry, props map[string]any) Feature {
	if props == nil {
		props = map[string]any{}
	}
	f := Feature{
		Geometry:   g,
		Properties: props,
		Grade:      risk.Parse(props[PropGrade]),
		Nucleo:     nucleo(props[PropNucleo]),
		Label:      label(props),
	}
	f.Cost, f.HasCost = cost(props[PropCost])
	if raw, present := props[PropCost]; present && raw != nil && !f.HasCost {
		zap.L().Debug("parcel: non-numeric cost ignored", zap.String("label", f.Label), zap.Any("value", raw))
	}
	if s, ok := props[PropAPP].(string); ok && strings.EqualFold(s, "SIM") {
		f.InPreservationArea = true
	}
	return f
}

// NonConforming reports grade above 1 or membership in a preservation area.
func (f Feature) NonConforming() bool {
	if lvl, ok := f.Grade.Level(); ok && lvl > 1 {
		return true
	}
	return f.InPreservationArea
}

// WithGeometry returns a copy of the feature carrying g.
func (f Feature) WithGeometry(g *Geometry) Feature {
	f.Geometry = g
	return f
}

func nucleo(v any) string {
	switch val := v.(type) {
	case string:
		if val != "" {
			return val
		}
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return NoNucleo
}

func cost(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case json.Number:
		n, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case float64:
		f = val
	case int:
		f = float64(val)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func label(props map[string]any) string {
	for _, key := range []string{PropIDLote, PropID} {
		switch val := props[key].(type) {
		case string:
			if val != "" {
				return val
			}
		case json.Number:
			return val.String()
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return ""
}
