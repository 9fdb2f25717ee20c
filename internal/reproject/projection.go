package reproject

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Mode selects how a collection's coordinates are interpreted.
type Mode uint8

const (
	// ModeZone reprojects from a fixed UTM zone.
	ModeZone Mode = iota
	// ModeGeodetic leaves coordinates untouched.
	ModeGeodetic
	// ModeAuto derives the zone from the collection's declared CRS.
	ModeAuto
)

// Projection is the source projection selector for a load.
type Projection struct {
	Mode Mode
	Zone Zone
}

// Geodetic is the selector for collections already in longitude/latitude.
var Geodetic = Projection{Mode: ModeGeodetic}

var geodeticAliases = map[string]bool{
	"geodetic":  true,
	"wgs84":     true,
	"crs84":     true,
	"4326":      true,
	"epsg:4326": true,
}

// ParseProjection parses a selector: a geodetic alias, "auto", or a zone id.
func ParseProjection(s string) (Projection, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch {
	case geodeticAliases[key]:
		return Geodetic, nil
	case key == "auto":
		return Projection{Mode: ModeAuto}, nil
	}
	z, err := ParseZone(key)
	if err != nil {
		return Projection{}, err
	}
	return Projection{Mode: ModeZone, Zone: z}, nil
}

// NeedsTransform reports whether coordinates must be converted.
func (p Projection) NeedsTransform() bool {
	return p.Mode == ModeZone
}

func (p Projection) String() string {
	switch p.Mode {
	case ModeGeodetic:
		return "geodetic"
	case ModeAuto:
		return "auto"
	default:
		return p.Zone.String()
	}
}

// Resolve combines the selector with a collection's declared CRS name. A
// declared geographic CRS always disables the transform; ModeAuto requires
// a declared CRS that names a known UTM zone.
func (p Projection) Resolve(declaredCRS string) (Projection, error) {
	declared, ok := FromCRSName(declaredCRS)
	if ok && declared.Mode == ModeGeodetic {
		return Geodetic, nil
	}
	if p.Mode != ModeAuto {
		return p, nil
	}
	if !ok {
		return Projection{}, eris.Wrapf(ErrConfiguration, "auto projection: unrecognized crs %q", declaredCRS)
	}
	return declared, nil
}

// FromCRSName maps a GeoJSON "crs.properties.name" value to a projection.
// Recognized: CRS84 and EPSG 4326/4674/4979 (geographic), EPSG 326zz/327zz
// (WGS 84 UTM) and EPSG 31978..31985 (SIRGAS 2000 UTM 18S..25S).
func FromCRSName(name string) (Projection, bool) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		return Projection{}, false
	}
	if strings.HasSuffix(n, "CRS84") {
		return Geodetic, true
	}

	code, ok := epsgCode(n)
	if !ok {
		return Projection{}, false
	}
	switch {
	case code == 4326 || code == 4674 || code == 4979:
		return Geodetic, true
	case code >= 32601 && code <= 32660:
		return Projection{Mode: ModeZone, Zone: Zone{Number: code - 32600}}, true
	case code >= 32701 && code <= 32760:
		return Projection{Mode: ModeZone, Zone: Zone{Number: code - 32700, South: true}}, true
	case code >= 31978 && code <= 31985:
		return Projection{Mode: ModeZone, Zone: Zone{Number: code - 31960, South: true}}, true
	}
	return Projection{}, false
}

// epsgCode extracts the numeric code from "EPSG:31983",
// "urn:ogc:def:crs:EPSG::31983" and similar forms.
func epsgCode(name string) (int, bool) {
	idx := strings.LastIndex(name, "EPSG")
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimLeft(name[idx+len("EPSG"):], ":")
	code, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return code, true
}
