package normalize

import (
	"github.com/ekaya-inc/ekaya-console/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-console/pkg/models"
)

// Metrics normalizes a version's metrics field, which the backend sends
// either as a single object or as an array of objects.
func (n *Normalizer) Metrics(raw any, versionID, versionCreatedAt string) []models.Metrics {
	if items, ok := jsonutil.Array(raw); ok {
		out := make([]models.Metrics, 0, len(items))
		for _, item := range items {
			out = append(out, metricsObject(item, versionID, versionCreatedAt))
		}
		return out
	}
	if _, ok := jsonutil.Object(raw); ok {
		return []models.Metrics{metricsObject(raw, versionID, versionCreatedAt)}
	}
	return []models.Metrics{}
}

// metricsObject coerces every numeric field independently so one bad value
// only nulls that field.
func metricsObject(raw any, versionID, versionCreatedAt string) models.Metrics {
	obj := objectOrEmpty(raw)

	return models.Metrics{
		ID:              stringOr(obj, "id", versionID),
		TotalCost:       jsonutil.Float(obj["total_cost"]),
		RowsEstimated:   jsonutil.Float(obj["rows_estimated"]),
		CPUEstimated:    jsonutil.Float(obj["cpu_estimated"]),
		MemoryEstimated: jsonutil.Float(obj["memory_estimated"]),
		IOEstimated:     jsonutil.Float(obj["io_estimated"]),
		RiskFlags:       jsonutil.OptionalString(obj["risk_flags"]),
		LimitValue:      jsonutil.Float(obj["limit_value"]),
		Severity:        jsonutil.OptionalString(obj["severity"]),
		VersionID:       stringOr(obj, "version_id", versionID),
		CreatedAt:       stringOr(obj, "created_at", versionCreatedAt),
		UpdatedAt:       jsonutil.OptionalString(obj["updated_at"]),
	}
}
