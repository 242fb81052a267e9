// Package models contains the canonical domain types for ekaya-console.
//
// Every value in this package is produced either by the payload normalizer
// (server truth) or by the reconciliation engine (tentative local truth).
// Values are treated as immutable once they are part of a cache snapshot:
// updates build new slices and structs along the changed path and share the
// untouched nodes.
package models

import "time"

// Project groups the tables a user tracks against one database.
type Project struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Tables    []Table `json:"tables"`
	UserID    string  `json:"user_id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// Table is a tracked table inside a project. ProjectID is a back-reference
// to the owning project and is never traversed for mutation.
type Table struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Schema           string    `json:"schema"`
	ConnectionString string    `json:"connection_string"`
	DefaultLimits    *string   `json:"default_limits"`
	DumpDB           string    `json:"dump_db"`
	Status           Status    `json:"status"`
	Versions         []Version `json:"versions"`
	ProjectID        string    `json:"project_id"`
	CreatedAt        string    `json:"created_at"`
	UpdatedAt        *string   `json:"updated_at"`
}

// FindTable returns the table with the given id and its index, or -1.
func (p *Project) FindTable(id string) (*Table, int) {
	for i := range p.Tables {
		if p.Tables[i].ID == id {
			return &p.Tables[i], i
		}
	}
	return nil, -1
}

// FindVersion returns the version with the given id and its index, or -1.
func (t *Table) FindVersion(id string) (*Version, int) {
	for i := range t.Versions {
		if t.Versions[i].ID == id {
			return &t.Versions[i], i
		}
	}
	return nil, -1
}

// FindProject returns the project with the given id and its index, or -1.
func FindProject(projects []Project, id string) (*Project, int) {
	for i := range projects {
		if projects[i].ID == id {
			return &projects[i], i
		}
	}
	return nil, -1
}

// TimestampLayout matches the ISO-8601 form the backend and browsers emit.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout (always UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
