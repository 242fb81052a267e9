package refresh

import (
	"sort"
	"time"

	"github.com/ekaya-inc/ekaya-console/pkg/models"
)

// ProjectStatus derives a project's status from its tables: error wins,
// then pending, then processing. A project with no tables is completed.
func ProjectStatus(p models.Project) models.Status {
	var pending, processing bool
	for _, t := range p.Tables {
		switch t.Status {
		case models.StatusError:
			return models.StatusError
		case models.StatusPending:
			pending = true
		case models.StatusProcessing:
			processing = true
		}
	}
	switch {
	case pending:
		return models.StatusPending
	case processing:
		return models.StatusProcessing
	}
	return models.StatusCompleted
}

// IsBusy reports whether the backend is still working on any of the
// project's tables.
func IsBusy(p models.Project) bool {
	return ProjectStatus(p).IsBusy()
}

// Ordered returns a new slice with busy projects first and, within each
// group, the most recently updated first. Projects without a parseable
// updated_at sort last within their group. The input is not modified.
//
// The order depends on live statuses, so callers compute it on every read.
func Ordered(projects []models.Project) []models.Project {
	type keyed struct {
		project models.Project
		busy    bool
		at      time.Time
	}

	items := make([]keyed, len(projects))
	for i, p := range projects {
		items[i] = keyed{project: p, busy: IsBusy(p), at: lastUpdated(p)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].busy != items[j].busy {
			return items[i].busy
		}
		return items[i].at.After(items[j].at)
	})

	out := make([]models.Project, len(items))
	for i, it := range items {
		out[i] = it.project
	}
	return out
}

// TablesNewestFirst returns the tables ordered by created_at descending.
func TablesNewestFirst(tables []models.Table) []models.Table {
	out := make([]models.Table, len(tables))
	copy(out, tables)
	sort.SliceStable(out, func(i, j int) bool {
		return ParseTimestamp(out[i].CreatedAt).After(ParseTimestamp(out[j].CreatedAt))
	})
	return out
}

func lastUpdated(p models.Project) time.Time {
	if p.UpdatedAt == nil {
		return time.Time{}
	}
	return ParseTimestamp(*p.UpdatedAt)
}

// timestampLayouts are the forms observed from the backend, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses a backend timestamp. Values without a zone are read
// as UTC. Unparseable values yield the zero time, which sorts last.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
