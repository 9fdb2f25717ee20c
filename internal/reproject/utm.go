package reproject

import "math"

// GRS80 reference ellipsoid.
const (
	grs80A = 6378137.0
	grs80F = 1 / 298.257222101

	utmScale         = 0.9996
	utmFalseEasting  = 500000.0
	utmFalseNorthing = 10000000.0
)

// Krüger series coefficients for the inverse transverse Mercator, third order
// in the third flattening n. Truncation error stays well under a millimetre
// inside a zone.
var (
	tmN = grs80F / (2 - grs80F)

	// rectifying radius
	tmA = grs80A / (1 + tmN) * (1 + tmN*tmN/4 + tmN*tmN*tmN*tmN/64)

	tmBeta = [3]float64{
		tmN/2 - 2*tmN*tmN/3 + 37*tmN*tmN*tmN/96,
		tmN*tmN/48 + tmN*tmN*tmN/15,
		17 * tmN * tmN * tmN / 480,
	}
	tmDelta = [3]float64{
		2*tmN - 2*tmN*tmN/3 - 2*tmN*tmN*tmN,
		7*tmN*tmN/3 - 8*tmN*tmN*tmN/5,
		56 * tmN * tmN * tmN / 15,
	}
)

// ToGeodetic converts a UTM easting/northing in this zone to longitude and
// latitude in degrees on the GRS80 ellipsoid. The result is deterministic;
// points far outside the zone are still computed but lose accuracy.
func (z Zone) ToGeodetic(easting, northing float64) (lon, lat float64) {
	n0 := 0.0
	if z.South {
		n0 = utmFalseNorthing
	}

	xi := (northing - n0) / (utmScale * tmA)
	eta := (easting - utmFalseEasting) / (utmScale * tmA)

	xiP, etaP := xi, eta
	for j := 1; j <= 3; j++ {
		k := 2 * float64(j)
		b := tmBeta[j-1]
		xiP -= b * math.Sin(k*xi) * math.Cosh(k*eta)
		etaP -= b * math.Cos(k*xi) * math.Sinh(k*eta)
	}

	chi := math.Asin(math.Sin(xiP) / math.Cosh(etaP))
	phi := chi
	for j := 1; j <= 3; j++ {
		phi += tmDelta[j-1] * math.Sin(2*float64(j)*chi)
	}

	lambda := math.Atan2(math.Sinh(etaP), math.Cos(xiP))

	return z.CentralMeridian() + lambda*180/math.Pi, phi * 180 / math.Pi
}
