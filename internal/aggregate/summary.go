// Package aggregate computes summary statistics over a parcel set.
package aggregate

import (
	"github.com/sells-group/lotes-cli/internal/parcel"
	"github.com/sells-group/lotes-cli/internal/risk"
)

// CostRef identifies an extremal-cost parcel for display.
type CostRef struct {
	Label string  `json:"label" yaml:"label"`
	Cost  float64 `json:"cost" yaml:"cost"`
	Index int     `json:"index" yaml:"index"`
}

// Summary holds the statistics of a parcel set. MaxCostFeature and
// MinCostFeature are nil when no parcel has a numeric cost; callers render
// that as "no cost data", not as zero.
type Summary struct {
	Total              int      `json:"total" yaml:"total"`
	NonConforming      int      `json:"non_conforming" yaml:"non_conforming"`
	InPreservationArea int      `json:"in_preservation_area" yaml:"in_preservation_area"`
	WithCost           int      `json:"with_cost" yaml:"with_cost"`
	TotalCost          float64  `json:"total_cost" yaml:"total_cost"`
	MaxCost            *CostRef `json:"max_cost" yaml:"max_cost"`
	MinCost            *CostRef `json:"min_cost" yaml:"min_cost"`

	MaxCostFeature *parcel.Feature `json:"-" yaml:"-"`
	MinCostFeature *parcel.Feature `json:"-" yaml:"-"`
}

// HasCostData reports whether any parcel contributed a cost.
func (s Summary) HasCostData() bool {
	return s.WithCost > 0
}

// Summarize computes the statistics in one pass. Extremes use strict
// comparisons, so the first parcel reaching a value keeps it on ties.
func Summarize(features []parcel.Feature) Summary {
	var s Summary
	maxIdx, minIdx := -1, -1

	for i := range features {
		f := &features[i]
		s.Total++
		if f.NonConforming() {
			s.NonConforming++
		}
		if f.InPreservationArea {
			s.InPreservationArea++
		}
		if !f.HasCost {
			continue
		}

		s.WithCost++
		s.TotalCost += f.Cost
		if maxIdx < 0 || f.Cost > features[maxIdx].Cost {
			maxIdx = i
		}
		if minIdx < 0 || f.Cost < features[minIdx].Cost {
			minIdx = i
		}
	}

	if maxIdx >= 0 {
		s.MaxCostFeature = &features[maxIdx]
		s.MaxCost = &CostRef{Label: features[maxIdx].Label, Cost: features[maxIdx].Cost, Index: maxIdx}
	}
	if minIdx >= 0 {
		s.MinCostFeature = &features[minIdx]
		s.MinCost = &CostRef{Label: features[minIdx].Label, Cost: features[minIdx].Cost, Index: minIdx}
	}
	return s
}

// GradeCount is the number of parcels of one grade.
type GradeCount struct {
	Grade risk.Grade `json:"grade" yaml:"grade"`
	Name  string     `json:"name" yaml:"name"`
	Color string     `json:"color" yaml:"color"`
	Count int        `json:"count" yaml:"count"`
}

// ByGrade counts parcels per grade for every grade in display order,
// including grades with no parcels.
func ByGrade(features []parcel.Feature) []GradeCount {
	counts := make(map[risk.Grade]int, len(risk.Grades))
	for i := range features {
		counts[features[i].Grade]++
	}
	out := make([]GradeCount, 0, len(risk.Grades))
	for _, g := range risk.Grades {
		info := g.Info()
		out = append(out, GradeCount{Grade: g, Name: info.Name, Color: info.Color, Count: counts[g]})
	}
	return out
}

// ClusterStats is the breakdown of one núcleo.
type ClusterStats struct {
	Nucleo        string  `json:"nucleo" yaml:"nucleo"`
	Count         int     `json:"count" yaml:"count"`
	NonConforming int     `json:"non_conforming" yaml:"non_conforming"`
	TotalCost     float64 `json:"total_cost" yaml:"total_cost"`
}

// ByCluster breaks the set down per núcleo in order of first appearance.
// Parcels without a núcleo are grouped under parcel.NoNucleo.
func ByCluster(features []parcel.Feature) []ClusterStats {
	idx := make(map[string]int)
	out := []ClusterStats{}
	for i := range features {
		f := &features[i]
		j, ok := idx[f.Nucleo]
		if !ok {
			j = len(out)
			idx[f.Nucleo] = j
			out = append(out, ClusterStats{Nucleo: f.Nucleo})
		}
		out[j].Count++
		if f.NonConforming() {
			out[j].NonConforming++
		}
		if f.HasCost {
			out[j].TotalCost += f.Cost
		}
	}
	return out
}
