// Package filter narrows a parcel set by núcleo and by enabled risk grades.
package filter

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sells-group/lotes-cli/internal/parcel"
	"github.com/sells-group/lotes-cli/internal/risk"
)

// All selects every núcleo, including parcels without one.
const All = "all"

// Apply returns the parcels whose núcleo equals cluster (unless cluster is
// All) and whose grade is enabled. Input order is preserved; the input is
// never modified.
func Apply(features []parcel.Feature, cluster string, enabled risk.Set) []parcel.Feature {
	out := make([]parcel.Feature, 0, len(features))
	for i := range features {
		f := &features[i]
		if cluster != All && f.Nucleo != cluster {
			continue
		}
		if !enabled.Has(f.Grade) {
			continue
		}
		out = append(out, *f)
	}
	return out
}

// Clusters returns the distinct selectable núcleo names, excluding the
// parcel.NoNucleo sentinel, in Brazilian Portuguese collation order.
func Clusters(features []parcel.Feature) []string {
	seen := make(map[string]bool)
	var names []string
	for i := range features {
		n := features[i].Nucleo
		if n == parcel.NoNucleo || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	if names == nil {
		return []string{}
	}
	collate.New(language.BrazilianPortuguese).SortStrings(names)
	return names
}
