package sqltext

import (
	"sort"

	"github.com/ekaya-inc/ekaya-console/pkg/models"
)

// LineSeverity marks one editor line with the severity reported by analysis.
type LineSeverity struct {
	LineNumber int             `json:"line_number"`
	Severity   models.LineType `json:"severity"`
	Message    string          `json:"message,omitempty"`
	Analysis   string          `json:"analysis,omitempty"`
}

// EditorValue joins annotated lines into the text shown in the SQL editor.
func EditorValue(lines []models.BodyQuery) string {
	rows := make([]models.SQLRow, len(lines))
	for i, l := range lines {
		rows[i] = models.SQLRow{Row: l.Row, RowNumber: l.RowNumber}
	}
	return Join(rows)
}

// LineSeverities lists the annotated lines that carry a severity, ordered by
// line number, for use as editor markers.
func LineSeverities(lines []models.BodyQuery) []LineSeverity {
	out := []LineSeverity{}
	for _, l := range lines {
		if l.Type == "" {
			continue
		}
		out = append(out, LineSeverity{
			LineNumber: l.RowNumber,
			Severity:   l.Type,
			Message:    l.Message,
			Analysis:   l.Analysis,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LineNumber < out[j].LineNumber
	})
	return out
}
