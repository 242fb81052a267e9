package models

// SQLRow is one line of SQL text addressed by its 1-based row number.
type SQLRow struct {
	Row       string `json:"row"`
	RowNumber int    `json:"row_number"`
}

// QueryBody wraps the ordered rows of a formatted SQL statement.
type QueryBody struct {
	BodyQuery []SQLRow `json:"body_query"`
}

// FormattedSQL is SQL text split into rows so per-line annotations can be
// attached without touching the text.
type FormattedSQL struct {
	Query QueryBody `json:"query"`
}

// QueryText is the shape stored in queries.query_text.
type QueryText struct {
	SQL FormattedSQL `json:"sql"`
}

// NewQueryText wraps rows into a QueryText. A nil slice becomes empty.
func NewQueryText(rows []SQLRow) QueryText {
	if rows == nil {
		rows = []SQLRow{}
	}
	return QueryText{SQL: FormattedSQL{Query: QueryBody{BodyQuery: rows}}}
}

// Rows returns the body rows of the query text.
func (q QueryText) Rows() []SQLRow {
	return q.SQL.Query.BodyQuery
}

// LineType is the severity of an annotated SQL line.
type LineType string

const (
	LineError   LineType = "error"
	LineWarning LineType = "warning"
	LineGood    LineType = "good"
)

// Valid reports whether t is a known line type.
func (t LineType) Valid() bool {
	return t == LineError || t == LineWarning || t == LineGood
}

// Line messages the analysis backend is known to emit.
const (
	MessageMostExpensive = "most_expensive"
	MessageNPlusOne      = "n+1"
)

// BodyQuery is one annotated SQL line. The analysis field keeps the
// backend's spelling on the wire.
type BodyQuery struct {
	RowNumber int      `json:"row_number"`
	Row       string   `json:"row"`
	Type      LineType `json:"type,omitempty"`
	Message   string   `json:"message,omitempty"`
	Analysis  string   `json:"analisys,omitempty"`
}
