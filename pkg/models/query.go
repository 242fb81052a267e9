package models

import "encoding/json"

// Version is one revision of the SQL tracked for a table, with the metrics
// and suggestions the backend produced for it.
type Version struct {
	ID                 string      `json:"id"`
	CommitHash         string      `json:"commit_hash"`
	PRNumber           *int64      `json:"pr_number"`
	Queries            []Query     `json:"queries"`
	Metrics            []Metrics   `json:"metrics"`
	SuggestedQueryText []BodyQuery `json:"suggested_query_text"`
	AnalysisText       string      `json:"analysis_text"`
	Status             Status      `json:"status"`
	TableID            string      `json:"table_id"`
	CreatedAt          string      `json:"created_at"`
	UpdatedAt          *string     `json:"updated_at"`
}

// Query is the SQL body attached to a version. Status is a free-form
// backend value (for example "new") and is not coerced.
type Query struct {
	ID                 string          `json:"id"`
	QueryText          QueryText       `json:"query_text"`
	QueryFingerprint   *string         `json:"query_fingerprint"`
	Status             string          `json:"status"`
	Reason             *string         `json:"reason"`
	ExplainJSON        json.RawMessage `json:"explain_json"`
	SuggestedQueryText []BodyQuery     `json:"suggested_query_text"`
	VersionID          string          `json:"version_id"`
	CreatedAt          string          `json:"created_at"`
	UpdatedAt          *string         `json:"updated_at"`
}

// Metrics holds the planner estimates for a version. A nil field means the
// backend did not report a usable number; zero is a real estimate.
type Metrics struct {
	ID              string   `json:"id"`
	TotalCost       *float64 `json:"total_cost"`
	RowsEstimated   *float64 `json:"rows_estimated"`
	CPUEstimated    *float64 `json:"cpu_estimated"`
	MemoryEstimated *float64 `json:"memory_estimated"`
	IOEstimated     *float64 `json:"io_estimated"`
	RiskFlags       *string  `json:"risk_flags"`
	LimitValue      *float64 `json:"limit_value"`
	Severity        *string  `json:"severity"`
	VersionID       string   `json:"version_id"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       *string  `json:"updated_at"`
}

// MetricKey names a numeric metrics field.
type MetricKey string

const (
	MetricTotalCost       MetricKey = "total_cost"
	MetricRowsEstimated   MetricKey = "rows_estimated"
	MetricCPUEstimated    MetricKey = "cpu_estimated"
	MetricMemoryEstimated MetricKey = "memory_estimated"
	MetricIOEstimated     MetricKey = "io_estimated"
	MetricLimitValue      MetricKey = "limit_value"
)

// Value returns the named metric, or nil if the key is unknown or unset.
func (m *Metrics) Value(key MetricKey) *float64 {
	switch key {
	case MetricTotalCost:
		return m.TotalCost
	case MetricRowsEstimated:
		return m.RowsEstimated
	case MetricCPUEstimated:
		return m.CPUEstimated
	case MetricMemoryEstimated:
		return m.MemoryEstimated
	case MetricIOEstimated:
		return m.IOEstimated
	case MetricLimitValue:
		return m.LimitValue
	}
	return nil
}

// ParseMetricKey validates a metric name coming from a request.
func ParseMetricKey(raw string) (MetricKey, bool) {
	k := MetricKey(raw)
	switch k {
	case MetricTotalCost, MetricRowsEstimated, MetricCPUEstimated,
		MetricMemoryEstimated, MetricIOEstimated, MetricLimitValue:
		return k, true
	}
	return "", false
}

// PrimaryMetrics returns the first metrics record of the version, if any.
func (v *Version) PrimaryMetrics() *Metrics {
	if len(v.Metrics) == 0 {
		return nil
	}
	return &v.Metrics[0]
}
