// Package reconcile performs optimistic mutations against the projects cache.
//
// Every mutation follows the same protocol: cancel and suppress background
// refreshes, capture the current snapshot, install a tentative snapshot that
// reflects the expected effect, call the backend, roll back to the captured
// snapshot on failure, then mark the cache stale so the next refresh
// replaces tentative entities with server truth. Server-assigned ids are
// never merged into the tentative snapshot.
package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-console/pkg/cache"
	"github.com/ekaya-inc/ekaya-console/pkg/gateway"
	"github.com/ekaya-inc/ekaya-console/pkg/logging"
	"github.com/ekaya-inc/ekaya-console/pkg/models"
	"github.com/ekaya-inc/ekaya-console/pkg/sqltext"
)

// TempIDPrefix marks ids generated locally for tentative entities.
const TempIDPrefix = "temp-"

// Operation names used in logs and MutationError.Op.
const (
	OpCreateProject = "create_project"
	OpUpdateProject = "update_project"
	OpDeleteProject = "delete_project"
	OpCreateTable   = "create_table"
	OpUpdateTable   = "update_table"
	OpDeleteTable   = "delete_table"
	OpCreateVersion = "create_version"
	OpUpdateVersion = "update_version"
	OpDeleteVersion = "delete_version"
)

// Outcome describes a settled, successful mutation.
type Outcome struct {
	// TentativeID is the local id given to a created entity, if any.
	TentativeID string `json:"tentative_id,omitempty"`
	// ID is the id the backend reported for a created entity, if any.
	ID string `json:"id,omitempty"`
	// QueryID is the id the backend reported for a created version's query.
	QueryID string `json:"query_id,omitempty"`
	// Applied reports whether a tentative snapshot was installed.
	Applied bool `json:"applied"`
	// Message is the backend's response rendered as text.
	Message string `json:"message,omitempty"`
}

// Engine runs optimistic mutations over a cache.Store.
type Engine struct {
	store   *cache.Store
	gateway gateway.Gateway
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewEngine creates an engine writing to store and calling gw.
func NewEngine(store *cache.Store, gw gateway.Gateway, logger *zap.Logger) *Engine {
	return &Engine{
		store:   store,
		gateway: gw,
		logger:  logger.Named("reconcile"),
		now:     time.Now,
		newID:   NewTempID,
	}
}

// NewTempID returns a time-ordered tentative id.
func NewTempID() string {
	return TempIDPrefix + uuid.Must(uuid.NewV7()).String()
}

// IsTempID reports whether id was generated locally.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix) && len(id) > len(TempIDPrefix)
}

func (e *Engine) timestamp() string {
	return models.FormatTimestamp(e.now())
}

// run executes one mutation through the optimistic protocol.
func (e *Engine) run(
	ctx context.Context,
	op string,
	apply func([]models.Project) []models.Project,
	call func(ctx context.Context) (gateway.Result, error),
) (Outcome, error) {
	m := e.store.BeginMutation(apply)
	defer m.End()

	res, err := call(ctx)
	if err != nil || !res.Success {
		m.Rollback()

		message := res.Message()
		if err != nil {
			message = logging.SanitizeError(err)
		}
		if message == "" {
			message = "request failed"
		}

		e.logger.Warn("Mutation failed; tentative state rolled back",
			zap.String("op", op),
			zap.Bool("applied", m.Applied()),
			zap.String("message", logging.SanitizeText(message)))

		return Outcome{}, &MutationError{Op: op, Message: message, Err: err}
	}

	e.logger.Debug("Mutation settled",
		zap.String("op", op),
		zap.Bool("applied", m.Applied()))

	return Outcome{
		ID:      res.ID(),
		QueryID: res.QueryID(),
		Applied: m.Applied(),
		Message: res.Message(),
	}, nil
}

// CreateTable adds a pending tentative table to its project and asks the
// backend to create it.
func (e *Engine) CreateTable(ctx context.Context, in gateway.CreateTableInput) (Outcome, error) {
	tempID := e.newID()
	now := e.timestamp()

	apply := func(projects []models.Project) []models.Project {
		return appendTable(projects, in.ProjectID, models.Table{
			ID:               tempID,
			Name:             in.Name,
			Schema:           in.Schema,
			ConnectionString: in.ConnectionString,
			Status:           models.StatusPending,
			Versions:         []models.Version{},
			ProjectID:        in.ProjectID,
			CreatedAt:        now,
			UpdatedAt:        &now,
		})
	}

	out, err := e.run(ctx, OpCreateTable, apply, func(ctx context.Context) (gateway.Result, error) {
		return e.gateway.CreateTable(ctx, in)
	})
	if err != nil {
		return out, err
	}
	out.TentativeID = tempID
	return out, nil
}

// UpdateTable patches the changed table fields and stamps updated_at.
func (e *Engine) UpdateTable(ctx context.Context, projectID string, patch gateway.TablePatch) (Outcome, error) {
	now := e.timestamp()

	apply := func(projects []models.Project) []models.Project {
		return mapTable(projects, projectID, patch.ID, func(t models.Table) models.Table {
			if patch.Name != nil {
				t.Name = *patch.Name
			}
			if patch.Schema != nil {
				t.Schema = *patch.Schema
			}
			if patch.DefaultLimits != nil {
				limits := *patch.DefaultLimits
				t.DefaultLimits = &limits
			}
			t.UpdatedAt = &now
			return t
		})
	}

	return e.run(ctx, OpUpdateTable, apply, func(ctx context.Context) (gateway.Result, error) {
		return e.gateway.UpdateTable(ctx, patch)
	})
}

// DeleteTable removes the table from its project.
func (e *Engine) DeleteTable(ctx context.Context, projectID, tableID string) (Outcome, error) {
	apply := func(projects []models.Project) []models.Project {
		return removeTable(projects, projectID, tableID)
	}

	return e.run(ctx, OpDeleteTable, apply, func(ctx context.Context) (gateway.Result, error) {
		return e.gateway.DeleteTable(ctx, tableID)
	})
}

// CreateVersionInput is a version submission from the editor.
type CreateVersionInput struct {
	ProjectID  string
	TableID    string
	CommitHash string
	SQL        string
}

// CreateVersion adds a pending tentative version with one embedded query
// holding the submitted SQL.
func (e *Engine) CreateVersion(ctx context.Context, in CreateVersionInput) (Outcome, error) {
	versionID := e.newID()
	queryID := e.newID()
	now := e.timestamp()
	queryText := models.QueryText{SQL: sqltext.Build(in.SQL)}

	apply := func(projects []models.Project) []models.Project {
		return appendVersion(projects, in.ProjectID, in.TableID, models.Version{
			ID:         versionID,
			CommitHash: in.CommitHash,
			Queries: []models.Query{{
				ID:                 queryID,
				QueryText:          queryText,
				Status:             gateway.QueryStatusNew,
				SuggestedQueryText: []models.BodyQuery{},
				VersionID:          versionID,
				CreatedAt:          now,
				UpdatedAt:          &now,
			}},
			Metrics:            []models.Metrics{},
			SuggestedQueryText: []models.BodyQuery{},
			AnalysisText:       "",
			Status:             models.StatusPending,
			TableID:            in.TableID,
			CreatedAt:          now,
			UpdatedAt:          &now,
		})
	}

	req := gateway.CreateVersionInput{
		CommitHash: in.CommitHash,
		TableID:    in.TableID,
		Query: gateway.VersionQuery{
			QueryText: queryText,
			Status:    gateway.QueryStatusNew,
		},
	}

	e.logger.Debug("Creating version",
		zap.String("table_id", in.TableID),
		zap.String("sql", logging.SanitizeQuery(in.SQL)))

	out, err := e.run(ctx, OpCreateVersion, apply, func(ctx context.Context) (gateway.Result, error) {
		return e.gateway.CreateVersion(ctx, req)
	})
	if err != nil {
		return out, err
	}
	out.TentativeID = versionID
	return out, nil
}

// UpdateVersion patches commit_hash and pr_number and stamps updated_at.
func (e *Engine) UpdateVersion(ctx context.Context, projectID, tableID string, patch gateway.VersionPatch) (Outcome, error) {
	now := e.timestamp()

	apply := func(projects []models.Project) []models.Project {
		return mapVersion(projects, projectID, tableID, patch.ID, func(v models.Version) models.Version {
			if patch.CommitHash != nil {
				v.CommitHash = *patch.CommitHash
			}
			if patch.PRNumber != nil {
				pr := *patch.PRNumber
				v.PRNumber = &pr
			}
			v.UpdatedAt = &now
			return v
		})
	}

	return e.run(ctx, OpUpdateVersion, apply, func(ctx context.Context) (gateway.Result, error) {
		return e.gateway.UpdateVersion(ctx, patch)
	})
}

// DeleteVersion removes the version from its table.
func (e *Engine) DeleteVersion(ctx context.Context, projectID, tableID, versionID string) (Outcome, error) {
	apply := func(projects []models.Project) []models.Project {
		return removeVersion(projects, projectID, tableID, versionID)
	}

	return e.run(ctx, OpDeleteVersion, apply, func(ctx context.Context) (gateway.Result, error) {
		return e.gateway.DeleteVersion(ctx, versionID)
	})
}

// CreateProject is not optimistic: the backend creates the seed table and its
// first analysis, which cannot be predicted locally. The cache is still
// invalidated on settle.
func (e *Engine) CreateProject(ctx context.Context, in gateway.CreateProjectInput) (Outcome, error) {
	e.logger.Info("Creating project",
		zap.String("name", in.Name),
		zap.String("connection_string", logging.SanitizeConnectionString(in.ConnectionString)))

	return e.run(ctx, OpCreateProject, nil, func(ctx context.Context) (gateway.Result, error) {
		return e.gateway.CreateProject(ctx, in)
	})
}

// UpdateProject renames a project and stamps updated_at.
func (e *Engine) UpdateProject(ctx context.Context, patch gateway.ProjectPatch) (Outcome, error) {
	now := e.timestamp()

	apply := func(projects []models.Project) []models.Project {
		return mapProject(projects, patch.ID, func(p models.Project) models.Project {
			p.Name = patch.Name
			p.UpdatedAt = &now
			return p
		})
	}

	return e.run(ctx, OpUpdateProject, apply, func(ctx context.Context) (gateway.Result, error) {
		return e.gateway.UpdateProject(ctx, patch)
	})
}

// DeleteProject removes the project from the snapshot.
func (e *Engine) DeleteProject(ctx context.Context, projectID string) (Outcome, error) {
	apply := func(projects []models.Project) []models.Project {
		return removeProject(projects, projectID)
	}

	return e.run(ctx, OpDeleteProject, apply, func(ctx context.Context) (gateway.Result, error) {
		return e.gateway.DeleteProject(ctx, projectID)
	})
}
