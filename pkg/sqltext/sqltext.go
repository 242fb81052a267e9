// Package sqltext converts between raw SQL strings and the row-addressed
// FormattedSQL representation used by queries and suggestions.
package sqltext

import (
	"sort"
	"strings"

	"github.com/ekaya-inc/ekaya-console/pkg/models"
)

// Split breaks sql on "\n" into rows numbered from 1. A single trailing empty
// row is dropped. Carriage returns are kept so Join(Split(s)) restores s.
func Split(sql string) []models.SQLRow {
	lines := strings.Split(sql, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	rows := make([]models.SQLRow, len(lines))
	for i, line := range lines {
		rows[i] = models.SQLRow{Row: line, RowNumber: i + 1}
	}
	return rows
}

// Build turns editor text into the FormattedSQL submitted with a new version.
// Line endings are normalized to "\n" before splitting.
func Build(sql string) models.FormattedSQL {
	normalized := strings.ReplaceAll(sql, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return models.NewQueryText(Split(normalized)).SQL
}

// Join reassembles rows into one string ordered by row number. Rows sharing a
// number keep their relative order.
func Join(rows []models.SQLRow) string {
	ordered := make([]models.SQLRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RowNumber < ordered[j].RowNumber
	})

	lines := make([]string, len(ordered))
	for i, r := range ordered {
		lines[i] = r.Row
	}
	return strings.Join(lines, "\n")
}

// Text returns the SQL held by a query text as a single string.
func Text(qt models.QueryText) string {
	return Join(qt.Rows())
}
