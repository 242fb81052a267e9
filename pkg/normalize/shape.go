package normalize

import (
	"github.com/ekaya-inc/ekaya-console/pkg/jsonutil"
)

// Shape classifies the raw value found in a query_text or
// suggested_query_text field. The backend has changed its serialization
// over time, so every shape below has been observed in real payloads.
type Shape int

const (
	// ShapeUnknown is anything that cannot carry SQL text (nil, numbers, other objects).
	ShapeUnknown Shape = iota
	// ShapeString is a bare multi-line SQL string.
	ShapeString
	// ShapeWrappedString is an object whose "sql" field is a string.
	ShapeWrappedString
	// ShapeStructured is an object carrying rows, either under "sql"
	// ({sql:{query:{body_query:[...]}}}) or directly ({query:{...}}).
	ShapeStructured
	// ShapeArray is a bare array of rows.
	ShapeArray
)

// String returns a human-readable name for the shape.
func (s Shape) String() string {
	switch s {
	case ShapeString:
		return "string"
	case ShapeWrappedString:
		return "wrapped_string"
	case ShapeStructured:
		return "structured"
	case ShapeArray:
		return "array"
	default:
		return "unknown"
	}
}

// structuredKeys are the object fields that mark a structured payload.
var structuredKeys = []string{"query", "body_query", "suggested_query_text"}

// Classify inspects v and reports its shape.
func Classify(v any) Shape {
	if _, ok := jsonutil.String(v); ok {
		return ShapeString
	}
	if _, ok := jsonutil.Array(v); ok {
		return ShapeArray
	}

	obj, ok := jsonutil.Object(v)
	if !ok {
		return ShapeUnknown
	}

	if sql, present := obj["sql"]; present {
		if _, ok := jsonutil.String(sql); ok {
			return ShapeWrappedString
		}
		if _, ok := jsonutil.Object(sql); ok {
			return ShapeStructured
		}
		if _, ok := jsonutil.Array(sql); ok {
			return ShapeStructured
		}
	}

	for _, key := range structuredKeys {
		if val, present := obj[key]; present && val != nil {
			return ShapeStructured
		}
	}
	return ShapeUnknown
}
