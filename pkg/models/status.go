package models

import "strings"

// Status is the processing state of a table or version on the analysis backend.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// statusAliases maps out-of-set values observed from the backend onto the
// closest known state.
var statusAliases = map[string]Status{
	"new":         StatusPending,
	"queued":      StatusPending,
	"created":     StatusPending,
	"running":     StatusProcessing,
	"in_progress": StatusProcessing,
	"analyzing":   StatusProcessing,
	"success":     StatusCompleted,
	"succeeded":   StatusCompleted,
	"done":        StatusCompleted,
	"complete":    StatusCompleted,
	"failed":      StatusError,
	"failure":     StatusError,
}

// Valid reports whether s is one of the four known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// IsBusy reports whether the backend is still working on the entity.
func (s Status) IsBusy() bool {
	return s == StatusPending || s == StatusProcessing
}

// ParseStatus coerces a raw backend value into the status enum.
// Known values pass through, known aliases map to their closest state and
// everything else becomes pending. Matching ignores case and surrounding space.
func ParseStatus(raw string) Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	s := Status(key)
	if s.Valid() {
		return s
	}
	if alias, ok := statusAliases[key]; ok {
		return alias
	}
	return StatusPending
}
