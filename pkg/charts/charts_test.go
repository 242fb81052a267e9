package charts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-console/pkg/models"
)

func f(v float64) *float64 { return &v }

func version(id, commit, createdAt string, cost *float64) models.Version {
	v := models.Version{ID: id, CommitHash: commit, CreatedAt: createdAt, Metrics: []models.Metrics{}}
	if cost != nil {
		v.Metrics = append(v.Metrics, models.Metrics{TotalCost: cost, RowsEstimated: f(*cost * 10)})
	}
	return v
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		v    models.Version
		want string
	}{
		{"commit hash", models.Version{ID: "v1", CommitHash: "a1b2c3", CreatedAt: "2025-01-02T03:04:05Z"}, "a1b2c3"},
		{"date prefix", models.Version{ID: "v1", CreatedAt: "2025-01-02T03:04:05Z"}, "2025-01-02"},
		{"short date", models.Version{ID: "v1", CreatedAt: "2025"}, "2025"},
		{"id", models.Version{ID: "v1"}, "v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(tt.v))
		})
	}
}

func TestBarData(t *testing.T) {
	versions := []models.Version{
		version("v1", "one", "2025-01-01T00:00:00Z", f(10)),
		version("v2", "", "2025-01-02T00:00:00Z", nil),
	}

	got := BarData(versions)
	require.Len(t, got, 2)
	assert.Equal(t, BarDatum{ID: "v1", Label: "one", Value: 10, Fill: "var(--chart-4)"}, got[0])
	assert.Equal(t, BarDatum{ID: "v2", Label: "2025-01-02", Value: 0, Fill: "var(--chart-5)"}, got[1])
}

func TestBarDataByMetric(t *testing.T) {
	versions := []models.Version{
		version("late", "c", "2025-03-01T00:00:00Z", f(3)),
		version("empty", "e", "2025-02-01T00:00:00Z", nil),
		version("early", "a", "2025-01-01T00:00:00Z", f(1)),
	}

	asc := BarDataByMetric(versions, models.MetricRowsEstimated, SortAsc, true)
	require.Len(t, asc, 2)
	assert.Equal(t, "early", asc[0].ID)
	assert.Equal(t, 10.0, asc[0].Value)
	assert.Equal(t, "late", asc[1].ID)
	assert.Equal(t, 30.0, asc[1].Value)

	desc := BarDataByMetric(versions, models.MetricTotalCost, SortDesc, false)
	require.Len(t, desc, 3)
	assert.Equal(t, []string{"late", "empty", "early"}, []string{desc[0].ID, desc[1].ID, desc[2].ID})
	assert.Equal(t, 0.0, desc[1].Value)

	// The caller's slice keeps its order.
	assert.Equal(t, "late", versions[0].ID)
}

func TestBarDataByMetric_ZeroIsNotEmpty(t *testing.T) {
	versions := []models.Version{version("v1", "a", "", f(0))}
	got := BarDataByMetric(versions, models.MetricTotalCost, SortAsc, true)
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].Value)
}

func TestPieData(t *testing.T) {
	versions := []models.Version{
		version("v1", "one", "", f(4)),
		version("v2", "two", "", f(6)),
	}

	assert.Equal(t, []PieDatum{
		{Label: "one", Value: 4, Fill: "var(--chart-6)"},
		{Label: "two", Value: 6, Fill: "var(--chart-7)"},
	}, PieData(versions))

	byRows := PieDataByMetric(versions, models.MetricRowsEstimated)
	assert.Equal(t, 40.0, byRows[0].Value)
	assert.Equal(t, "var(--chart-4)", byRows[0].Fill)
}

func TestScaledBarData(t *testing.T) {
	versions := []models.Version{
		version("cheap", "a", "", f(0)),
		version("mid", "b", "", f(50)),
		version("dear", "c", "", f(100)),
	}

	got := ScaledBarData(versions)
	require.Len(t, got, 3)
	assert.Equal(t, "hsl(210deg 90% 60% / 0.300)", got[0].Fill)
	assert.Equal(t, "hsl(210deg 90% 60% / 0.650)", got[1].Fill)
	assert.Equal(t, "hsl(210deg 90% 60% / 1.000)", got[2].Fill)

	assert.Empty(t, ScaledBarData(nil))
}

func TestParseMetricAndSort(t *testing.T) {
	k, ok := ParseMetric("")
	assert.True(t, ok)
	assert.Equal(t, models.MetricTotalCost, k)

	k, ok = ParseMetric("io_estimated")
	assert.True(t, ok)
	assert.Equal(t, models.MetricIOEstimated, k)

	_, ok = ParseMetric("risk_flags")
	assert.False(t, ok)

	assert.Equal(t, SortDesc, ParseSortOrder("desc"))
	assert.Equal(t, SortAsc, ParseSortOrder("sideways"))
}
