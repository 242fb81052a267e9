// Package normalize maps the weakly typed project payloads returned by the
// analysis backend into the canonical entities in pkg/models.
//
// Normalization never fails. Missing or malformed fields resolve to
// defaults: nil for nullable scalars, empty slices for collections, "" for
// required strings and the current time for a missing created_at. A corrupt
// version must not hide the rest of its project.
package normalize

import (
	"encoding/json"
	"time"

	"github.com/ekaya-inc/ekaya-console/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-console/pkg/models"
)

// Normalizer converts raw payloads into canonical entities. The clock is
// only consulted for records that arrive without created_at.
type Normalizer struct {
	now func() time.Time
}

// New creates a Normalizer using the wall clock.
func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithClock creates a Normalizer with an injected clock.
func NewWithClock(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

var defaultNormalizer = New()

// Projects normalizes raw with the default Normalizer.
func Projects(raw any) []models.Project {
	return defaultNormalizer.Projects(raw)
}

// ProjectsJSON decodes and normalizes a projects payload. Undecodable input
// yields an empty list.
func ProjectsJSON(data []byte) []models.Project {
	return defaultNormalizer.ProjectsJSON(data)
}

// Project normalizes one raw project with the default Normalizer.
func Project(raw any) models.Project {
	return defaultNormalizer.Project(raw)
}

// ProjectsJSON decodes data and normalizes it.
func (n *Normalizer) ProjectsJSON(data []byte) []models.Project {
	v, err := jsonutil.Decode(data)
	if err != nil {
		return []models.Project{}
	}
	return n.Projects(v)
}

// Projects accepts an array of project objects or the backend's
// {"response": [...]} envelope. Elements that are not objects are skipped.
func (n *Normalizer) Projects(raw any) []models.Project {
	items, ok := jsonutil.Array(raw)
	if !ok {
		obj, isObj := jsonutil.Object(raw)
		if !isObj {
			return []models.Project{}
		}
		items, ok = jsonutil.Array(obj["response"])
		if !ok {
			return []models.Project{}
		}
	}

	out := make([]models.Project, 0, len(items))
	for _, item := range items {
		if _, isObj := jsonutil.Object(item); !isObj {
			continue
		}
		out = append(out, n.Project(item))
	}
	return out
}

// Project normalizes one raw project and everything nested under it.
func (n *Normalizer) Project(raw any) models.Project {
	obj := objectOrEmpty(raw)
	id := stringOr(obj, "id", "")

	p := models.Project{
		ID:        id,
		Name:      stringOr(obj, "name", ""),
		Tables:    []models.Table{},
		UserID:    stringOr(obj, "user_id", ""),
		CreatedAt: stringOr(obj, "created_at", n.timestamp()),
		UpdatedAt: jsonutil.OptionalString(obj["updated_at"]),
	}

	if items, ok := jsonutil.Array(obj["tables"]); ok {
		for _, item := range items {
			if _, isObj := jsonutil.Object(item); !isObj {
				continue
			}
			p.Tables = append(p.Tables, n.Table(item, id))
		}
	}
	return p
}

// Table normalizes one raw table owned by projectID. The back-reference is
// taken from the owner, not from the payload.
func (n *Normalizer) Table(raw any, projectID string) models.Table {
	obj := objectOrEmpty(raw)
	id := stringOr(obj, "id", "")

	t := models.Table{
		ID:               id,
		Name:             stringOr(obj, "name", ""),
		Schema:           stringOr(obj, "schema", ""),
		ConnectionString: stringOr(obj, "connection_string", ""),
		DefaultLimits:    jsonutil.OptionalString(obj["default_limits"]),
		DumpDB:           stringOr(obj, "dump_db", ""),
		Status:           tableStatus(obj["status"]),
		Versions:         []models.Version{},
		ProjectID:        projectID,
		CreatedAt:        stringOr(obj, "created_at", n.timestamp()),
		UpdatedAt:        jsonutil.OptionalString(obj["updated_at"]),
	}

	if items, ok := jsonutil.Array(obj["versions"]); ok {
		for _, item := range items {
			if _, isObj := jsonutil.Object(item); !isObj {
				continue
			}
			t.Versions = append(t.Versions, n.Version(item, id))
		}
	}
	return t
}

// Version normalizes one raw version owned by tableID. Queries come from
// "queries" when it is a non-empty array, otherwise from a single "query".
func (n *Normalizer) Version(raw any, tableID string) models.Version {
	obj := objectOrEmpty(raw)
	id := stringOr(obj, "id", "")
	createdAt := stringOr(obj, "created_at", n.timestamp())

	v := models.Version{
		ID:                 id,
		CommitHash:         stringOr(obj, "commit_hash", ""),
		Queries:            []models.Query{},
		Metrics:            n.Metrics(obj["metrics"], id, createdAt),
		SuggestedQueryText: BodyQueries(obj["suggested_query_text"]),
		AnalysisText:       stringOr(obj, "analysis_text", ""),
		Status:             models.ParseStatus(jsonutil.StringValue(obj["status"])),
		TableID:            tableID,
		CreatedAt:          createdAt,
		UpdatedAt:          jsonutil.OptionalString(obj["updated_at"]),
	}
	if pr, ok := jsonutil.Int(obj["pr_number"]); ok {
		v.PRNumber = &pr
	}

	if items, ok := jsonutil.Array(obj["queries"]); ok && len(items) > 0 {
		for _, item := range items {
			v.Queries = append(v.Queries, n.Query(item, id))
		}
	} else if single, ok := jsonutil.Object(obj["query"]); ok {
		v.Queries = append(v.Queries, n.Query(single, id))
	}
	return v
}

// Query normalizes one raw query. Missing ids fall back to the owning
// version's id.
func (n *Normalizer) Query(raw any, versionID string) models.Query {
	obj := objectOrEmpty(raw)

	return models.Query{
		ID:                 stringOr(obj, "id", versionID),
		QueryText:          QueryText(obj["query_text"]),
		QueryFingerprint:   jsonutil.OptionalString(obj["query_fingerprint"]),
		Status:             jsonutil.StringValue(obj["status"]),
		Reason:             jsonutil.OptionalString(obj["reason"]),
		ExplainJSON:        rawJSON(obj["explain_json"]),
		SuggestedQueryText: BodyQueries(obj["suggested_query_text"]),
		VersionID:          stringOr(obj, "version_id", versionID),
		CreatedAt:          stringOr(obj, "created_at", n.timestamp()),
		UpdatedAt:          jsonutil.OptionalString(obj["updated_at"]),
	}
}

func tableStatus(raw any) models.Status {
	return models.ParseStatus(jsonutil.StringValue(raw))
}

func (n *Normalizer) timestamp() string {
	return models.FormatTimestamp(n.now())
}

// stringOr returns obj[key] rendered as text, or fallback when the key is
// absent or null.
func stringOr(obj map[string]any, key, fallback string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return fallback
	}
	return jsonutil.StringValue(v)
}

func objectOrEmpty(raw any) map[string]any {
	if obj, ok := jsonutil.Object(raw); ok {
		return obj
	}
	return map[string]any{}
}

// rawJSON re-encodes an arbitrary explain payload. nil stays nil.
func rawJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
