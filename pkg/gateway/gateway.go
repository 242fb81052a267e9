// Package gateway defines the contract between ekaya-console and the analysis
// backend, plus the HTTP implementation of it.
package gateway

import (
	"context"
	"encoding/json"

	"github.com/ekaya-inc/ekaya-console/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-console/pkg/models"
)

// Gateway reads and writes projects, tables and versions on the backend.
//
// Mutations report backend rejections through Result.Success and transport
// failures through the error. They are never retried.
type Gateway interface {
	// FetchProjects returns the raw, pre-normalization project list.
	FetchProjects(ctx context.Context) ([]any, error)

	CreateProject(ctx context.Context, in CreateProjectInput) (Result, error)
	UpdateProject(ctx context.Context, patch ProjectPatch) (Result, error)
	DeleteProject(ctx context.Context, id string) (Result, error)

	CreateTable(ctx context.Context, in CreateTableInput) (Result, error)
	UpdateTable(ctx context.Context, patch TablePatch) (Result, error)
	DeleteTable(ctx context.Context, id string) (Result, error)

	CreateVersion(ctx context.Context, in CreateVersionInput) (Result, error)
	UpdateVersion(ctx context.Context, patch VersionPatch) (Result, error)
	DeleteVersion(ctx context.Context, id string) (Result, error)
}

// TokenSource provides the bearer token for a backend request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Result is the backend's {success, response} envelope. Response is a
// string message on failure and an object or string on success.
type Result struct {
	Success  bool            `json:"success"`
	Response json.RawMessage `json:"response,omitempty"`
}

// Message returns the response rendered as text.
func (r Result) Message() string {
	if len(r.Response) > 0 && r.Response[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(r.Response, &obj); err == nil {
			for _, key := range []string{"message", "detail", "error"} {
				if v, ok := obj[key]; ok {
					return jsonutil.FlexibleStringValue(v)
				}
			}
		}
	}
	return jsonutil.FlexibleStringValue(r.Response)
}

// ID returns response.id for create operations, or "".
func (r Result) ID() string {
	return r.field("id")
}

// QueryID returns response.query_id for create-version, or "".
func (r Result) QueryID() string {
	return r.field("query_id")
}

func (r Result) field(key string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(r.Response, &obj); err != nil {
		return ""
	}
	return jsonutil.FlexibleStringValue(obj[key])
}

// Failure builds a rejected Result carrying message.
func Failure(message string) Result {
	b, _ := json.Marshal(message)
	return Result{Success: false, Response: b}
}

// CreateProjectInput creates a project together with its seed table.
type CreateProjectInput struct {
	ConnectionString string `json:"connection_string"`
	Name             string `json:"name"`
	TableName        string `json:"table_name"`
	TableSchema      string `json:"table_schema"`
	UserID           string `json:"user_id,omitempty"`
}

// ProjectPatch renames a project.
type ProjectPatch struct {
	ID   string `json:"-"`
	Name string `json:"name"`
}

// CreateTableInput adds a tracked table to a project.
type CreateTableInput struct {
	ConnectionString string `json:"connection_string"`
	Name             string `json:"name"`
	ProjectID        string `json:"project_id"`
	Schema           string `json:"schema"`
}

// TablePatch carries the changed table fields. Nil fields are left alone.
type TablePatch struct {
	ID            string  `json:"-"`
	Name          *string `json:"name,omitempty"`
	Schema        *string `json:"schema,omitempty"`
	DefaultLimits *string `json:"default_limits,omitempty"`
}

// CreateVersionInput submits new SQL for a table.
type CreateVersionInput struct {
	CommitHash string       `json:"commit_hash"`
	TableID    string       `json:"table_id"`
	Query      VersionQuery `json:"query"`
}

// VersionQuery is the query embedded in a create-version request.
type VersionQuery struct {
	QueryText models.QueryText `json:"query_text"`
	Status    string           `json:"status"`
}

// QueryStatusNew is the status submitted with freshly created queries.
const QueryStatusNew = "new"

// VersionPatch carries the changed version fields. Nil fields are left alone.
type VersionPatch struct {
	ID         string  `json:"-"`
	CommitHash *string `json:"commit_hash,omitempty"`
	PRNumber   *int64  `json:"pr_number,omitempty"`
}
