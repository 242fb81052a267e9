package normalize

import (
	"github.com/ekaya-inc/ekaya-console/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-console/pkg/models"
	"github.com/ekaya-inc/ekaya-console/pkg/sqltext"
)

// Row locations inside structured payloads, tried in order.
var (
	queryRowPaths = [][]string{
		{"sql", "query", "body_query"},
		{"sql", "body_query"},
		{"sql"},
		{"query", "body_query"},
		{"body_query"},
	}
	suggestedRowPaths = [][]string{
		{"sql", "query", "suggested_query_text"},
		{"sql", "suggested_query_text"},
		{"sql"},
		{"query", "suggested_query_text"},
		{"suggested_query_text"},
	}
)

// QueryText normalizes any observed query_text shape into the canonical
// {sql:{query:{body_query:[...]}}} form. Unusable input yields empty rows.
func QueryText(v any) models.QueryText {
	switch Classify(v) {
	case ShapeString:
		s, _ := jsonutil.String(v)
		return models.NewQueryText(sqltext.Split(s))
	case ShapeWrappedString:
		obj, _ := jsonutil.Object(v)
		s, _ := jsonutil.String(obj["sql"])
		return models.NewQueryText(sqltext.Split(s))
	case ShapeStructured:
		obj, _ := jsonutil.Object(v)
		if rows, ok := lookupArray(obj, queryRowPaths); ok {
			return models.NewQueryText(toSQLRows(bodyQueryArray(rows)))
		}
	case ShapeArray:
		rows, _ := jsonutil.Array(v)
		return models.NewQueryText(toSQLRows(bodyQueryArray(rows)))
	}
	return models.NewQueryText(nil)
}

// BodyQueries normalizes a suggested_query_text value. Arrays are the usual
// shape; strings and wrapped payloads are split into unannotated lines.
func BodyQueries(v any) []models.BodyQuery {
	switch Classify(v) {
	case ShapeArray:
		rows, _ := jsonutil.Array(v)
		return bodyQueryArray(rows)
	case ShapeString:
		s, _ := jsonutil.String(v)
		return fromSQLRows(sqltext.Split(s))
	case ShapeWrappedString:
		obj, _ := jsonutil.Object(v)
		s, _ := jsonutil.String(obj["sql"])
		return fromSQLRows(sqltext.Split(s))
	case ShapeStructured:
		obj, _ := jsonutil.Object(v)
		if rows, ok := lookupArray(obj, suggestedRowPaths); ok {
			return bodyQueryArray(rows)
		}
	}
	return []models.BodyQuery{}
}

// bodyQueryArray converts each element into an annotated line. Bare strings
// and elements without a usable row_number take their 1-based position.
func bodyQueryArray(items []any) []models.BodyQuery {
	out := make([]models.BodyQuery, 0, len(items))
	for idx, item := range items {
		position := idx + 1

		if s, ok := jsonutil.String(item); ok {
			out = append(out, models.BodyQuery{RowNumber: position, Row: s})
			continue
		}

		obj, ok := jsonutil.Object(item)
		if !ok {
			out = append(out, models.BodyQuery{RowNumber: position, Row: ""})
			continue
		}

		line := models.BodyQuery{
			RowNumber: position,
			Row:       jsonutil.StringValue(obj["row"]),
		}
		if n, ok := jsonutil.Int(obj["row_number"]); ok {
			line.RowNumber = int(n)
		}
		if t, ok := jsonutil.String(obj["type"]); ok && models.LineType(t).Valid() {
			line.Type = models.LineType(t)
		}
		if msg, ok := jsonutil.String(obj["message"]); ok {
			line.Message = msg
		}
		if a, ok := jsonutil.String(obj["analisys"]); ok {
			line.Analysis = a
		} else if a, ok := jsonutil.String(obj["analysis"]); ok {
			line.Analysis = a
		}
		out = append(out, line)
	}
	return out
}

// lookupArray walks each path in turn and returns the first array found.
func lookupArray(obj map[string]any, paths [][]string) ([]any, bool) {
	for _, path := range paths {
		var cur any = obj
		for _, key := range path {
			m, ok := jsonutil.Object(cur)
			if !ok {
				cur = nil
				break
			}
			cur = m[key]
		}
		if arr, ok := jsonutil.Array(cur); ok {
			return arr, true
		}
	}
	return nil, false
}

func toSQLRows(lines []models.BodyQuery) []models.SQLRow {
	rows := make([]models.SQLRow, len(lines))
	for i, l := range lines {
		rows[i] = models.SQLRow{Row: l.Row, RowNumber: l.RowNumber}
	}
	return rows
}

func fromSQLRows(rows []models.SQLRow) []models.BodyQuery {
	lines := make([]models.BodyQuery, len(rows))
	for i, r := range rows {
		lines[i] = models.BodyQuery{Row: r.Row, RowNumber: r.RowNumber}
	}
	return lines
}
