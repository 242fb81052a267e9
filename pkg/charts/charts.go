// Package charts maps table versions onto the datums the dashboard charts
// render: one bar or slice per version, valued by one of its metrics.
package charts

import (
	"fmt"
	"math"
	"sort"

	"github.com/ekaya-inc/ekaya-console/pkg/models"
	"github.com/ekaya-inc/ekaya-console/pkg/refresh"
)

// SortOrder orders versions by created_at.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder returns SortDesc for "desc" and SortAsc otherwise.
func ParseSortOrder(s string) SortOrder {
	if s == string(SortDesc) {
		return SortDesc
	}
	return SortAsc
}

var (
	barPalette = []string{"var(--chart-4)", "var(--chart-5)", "var(--chart-6)", "var(--chart-7)", "var(--chart-8)"}
	piePalette = []string{"var(--chart-6)", "var(--chart-7)", "var(--chart-8)", "var(--chart-9)", "var(--chart-10)"}
)

// BarDatum is one bar.
type BarDatum struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Fill  string  `json:"fill"`
}

// PieDatum is one slice.
type PieDatum struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Fill  string  `json:"fill"`
}

// Label names a version on a chart axis: its commit hash, else the date part
// of created_at, else its id.
func Label(v models.Version) string {
	if v.CommitHash != "" {
		return v.CommitHash
	}
	if v.CreatedAt != "" {
		if len(v.CreatedAt) > 10 {
			return v.CreatedAt[:10]
		}
		return v.CreatedAt
	}
	return v.ID
}

// metricValue reads key from the version's first metrics row. ok is false
// when there is no row or the value is missing.
func metricValue(v models.Version, key models.MetricKey) (float64, bool) {
	if len(v.Metrics) == 0 {
		return 0, false
	}
	p := v.Metrics[0].Value(key)
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

// BarData charts total_cost in the given version order. Missing values
// chart as 0.
func BarData(versions []models.Version) []BarDatum {
	out := make([]BarDatum, len(versions))
	for i, v := range versions {
		value, _ := metricValue(v, models.MetricTotalCost)
		out[i] = BarDatum{ID: v.ID, Label: Label(v), Value: value, Fill: barPalette[i%len(barPalette)]}
	}
	return out
}

// BarDataByMetric charts metric ordered by created_at. With filterEmpty,
// versions missing the metric are dropped; otherwise they chart as 0.
func BarDataByMetric(versions []models.Version, metric models.MetricKey, order SortOrder, filterEmpty bool) []BarDatum {
	base := make([]models.Version, 0, len(versions))
	for _, v := range versions {
		if _, ok := metricValue(v, metric); ok || !filterEmpty {
			base = append(base, v)
		}
	}

	sort.SliceStable(base, func(i, j int) bool {
		a := refresh.ParseTimestamp(base[i].CreatedAt)
		b := refresh.ParseTimestamp(base[j].CreatedAt)
		if order == SortDesc {
			return a.After(b)
		}
		return a.Before(b)
	})

	out := make([]BarDatum, len(base))
	for i, v := range base {
		value, _ := metricValue(v, metric)
		out[i] = BarDatum{ID: v.ID, Label: Label(v), Value: value, Fill: barPalette[i%len(barPalette)]}
	}
	return out
}

// PieData charts total_cost as slices in the given version order.
func PieData(versions []models.Version) []PieDatum {
	return pieData(versions, models.MetricTotalCost, piePalette)
}

// PieDataByMetric charts metric as slices in the given version order.
func PieDataByMetric(versions []models.Version, metric models.MetricKey) []PieDatum {
	return pieData(versions, metric, barPalette)
}

func pieData(versions []models.Version, metric models.MetricKey, palette []string) []PieDatum {
	out := make([]PieDatum, len(versions))
	for i, v := range versions {
		value, _ := metricValue(v, metric)
		out[i] = PieDatum{Label: Label(v), Value: value, Fill: palette[i%len(palette)]}
	}
	return out
}

// ScaledBarData is BarData with the fill alpha ramped from 0.3 at the
// cheapest version to 1.0 at the most expensive.
func ScaledBarData(versions []models.Version) []BarDatum {
	out := BarData(versions)

	lo, hi := 0.0, 1.0
	for _, d := range out {
		lo = math.Min(lo, d.Value)
		hi = math.Max(hi, d.Value)
	}
	span := math.Max(hi-lo, 1)

	for i, d := range out {
		t := (d.Value - lo) / span
		if math.IsNaN(t) || math.IsInf(t, 0) {
			t = 0
		}
		t = math.Min(1, math.Max(0, t))
		out[i].Fill = fmt.Sprintf("hsl(210deg 90%% 60%% / %.3f)", 0.3+0.7*t)
	}
	return out
}

// MetricKeys lists the metrics the charts accept.
var MetricKeys = []models.MetricKey{
	models.MetricTotalCost,
	models.MetricRowsEstimated,
	models.MetricIOEstimated,
	models.MetricCPUEstimated,
	models.MetricMemoryEstimated,
	models.MetricLimitValue,
}

// ParseMetric returns the metric named s, defaulting to total_cost.
func ParseMetric(s string) (models.MetricKey, bool) {
	if s == "" {
		return models.MetricTotalCost, true
	}
	for _, k := range MetricKeys {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}
