// Package validation checks user input before a mutation is allowed to touch
// the projects cache or reach the backend.
package validation

import (
	"fmt"
	"sort"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/ekaya-inc/ekaya-console/pkg/apperrors"
)

// InjectionCheckResult describes a value libinjection flagged.
type InjectionCheckResult struct {
	Field       string // Name of the input field that failed the check
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckInjection reports whether value looks like a SQL injection attempt.
// It returns nil for clean values.
//
// Names and schemas are forwarded into the backend's own SQL, so they are
// checked here. The SQL text of a version is never passed through this check.
//
//	CheckInjection("name", "orders")                 // nil
//	CheckInjection("name", "'; DROP TABLE users--")  // Fingerprint "s;T..." (or similar)
func CheckInjection(field, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{Field: field, Fingerprint: string(fingerprint)}
}

// CheckAll runs CheckInjection over every field, returning the failures
// ordered by field name.
func CheckAll(fields map[string]string) []*InjectionCheckResult {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []*InjectionCheckResult
	for _, name := range names {
		if r := CheckInjection(name, fields[name]); r != nil {
			results = append(results, r)
		}
	}
	return results
}

// Identifiers returns apperrors.ErrSuspiciousInput naming the first flagged
// field, or nil.
func Identifiers(fields map[string]string) error {
	results := CheckAll(fields)
	if len(results) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s contains a SQL injection pattern (fingerprint %s)",
		apperrors.ErrSuspiciousInput, results[0].Field, results[0].Fingerprint)
}
