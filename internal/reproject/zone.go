// Package reproject converts projected UTM grid coordinates into geodetic
// longitude/latitude and applies the conversion over GeoJSON coordinate trees.
package reproject

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
)

// ErrConfiguration is returned for an unrecognized or malformed projection
// selector or zone identifier.
var ErrConfiguration = eris.New("reproject: invalid projection")

// Zone identifies a UTM zone and hemisphere.
type Zone struct {
	Number int
	South  bool
}

// ParseZone parses identifiers like "23s" (zone 23, southern hemisphere).
// A trailing "s" (either case) selects the southern hemisphere; any other
// single-letter suffix, or none, selects the northern hemisphere.
func ParseZone(id string) (Zone, error) {
	s := strings.TrimSpace(id)
	if s == "" {
		return Zone{}, eris.Wrap(ErrConfiguration, "empty zone identifier")
	}

	digits := s
	var suffix rune
	last := rune(s[len(s)-1])
	if unicode.IsLetter(last) {
		digits = s[:len(s)-1]
		suffix = unicode.ToLower(last)
	}
	if digits == "" {
		return Zone{}, eris.Wrapf(ErrConfiguration, "zone %q has no zone number", id)
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return Zone{}, eris.Wrapf(ErrConfiguration, "zone %q: bad zone number", id)
	}
	if n < 1 || n > 60 {
		return Zone{}, eris.Wrapf(ErrConfiguration, "zone %q: number must be 1..60", id)
	}

	return Zone{Number: n, South: suffix == 's'}, nil
}

// CentralMeridian returns the zone's central meridian in degrees.
func (z Zone) CentralMeridian() float64 {
	return float64(z.Number*6 - 183)
}

func (z Zone) String() string {
	if z.South {
		return fmt.Sprintf("%ds", z.Number)
	}
	return fmt.Sprintf("%dn", z.Number)
}
