package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-console/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-console/pkg/cache"
	"github.com/ekaya-inc/ekaya-console/pkg/charts"
	"github.com/ekaya-inc/ekaya-console/pkg/gateway"
	"github.com/ekaya-inc/ekaya-console/pkg/models"
	"github.com/ekaya-inc/ekaya-console/pkg/reconcile"
	"github.com/ekaya-inc/ekaya-console/pkg/refresh"
	"github.com/ekaya-inc/ekaya-console/pkg/sqltext"
	"github.com/ekaya-inc/ekaya-console/pkg/validation"
)

// ProjectView is a project with its derived status, as the dashboard shows it.
type ProjectView struct {
	models.Project
	Status     models.Status `json:"status"`
	Processing bool          `json:"processing"`
}

// ChartData is every chart series for one table.
type ChartData struct {
	TableID string            `json:"table_id"`
	Metric  models.MetricKey  `json:"metric"`
	Bars    []charts.BarDatum `json:"bars"`
	ByDate  []charts.BarDatum `json:"by_date"`
	Scaled  []charts.BarDatum `json:"scaled"`
	Pie     []charts.PieDatum `json:"pie"`
	CostPie []charts.PieDatum `json:"cost_pie"`
}

// QueryEditor is one query's SQL alongside the rewrite analysis suggested.
type QueryEditor struct {
	QueryID   string                 `json:"query_id"`
	SQL       string                 `json:"sql"`
	Suggested string                 `json:"suggested"`
	Markers   []sqltext.LineSeverity `json:"markers"`
}

// VersionEditor is what the SQL editor needs to show a version.
type VersionEditor struct {
	VersionID    string                 `json:"version_id"`
	CommitHash   string                 `json:"commit_hash"`
	AnalysisText string                 `json:"analysis_text"`
	Queries      []QueryEditor          `json:"queries"`
	Suggested    string                 `json:"suggested"`
	Markers      []sqltext.LineSeverity `json:"markers"`
}

// Refresher runs one refresh cycle.
type Refresher interface {
	Refresh(ctx context.Context) (refresh.Outcome, error)
}

// DashboardService is what the HTTP surface and the CLI drive. Mutations are
// validated before they can touch the cache.
type DashboardService interface {
	// Projects returns the busy-first ordered snapshot, loading it on first use.
	Projects(ctx context.Context) ([]ProjectView, error)
	// Project returns one project with its tables newest first.
	Project(ctx context.Context, projectID string) (ProjectView, error)
	// Charts maps a table's versions to chart series.
	Charts(ctx context.Context, projectID, tableID string, metric models.MetricKey, order charts.SortOrder) (ChartData, error)
	// Editor returns a version's SQL with the analysis markers per line.
	Editor(ctx context.Context, projectID, tableID, versionID string) (VersionEditor, error)
	// CacheStatus reports the cache bookkeeping.
	CacheStatus() cache.Status

	CreateProject(ctx context.Context, in gateway.CreateProjectInput) (reconcile.Outcome, error)
	UpdateProject(ctx context.Context, patch gateway.ProjectPatch) (reconcile.Outcome, error)
	DeleteProject(ctx context.Context, projectID string) (reconcile.Outcome, error)

	CreateTable(ctx context.Context, in gateway.CreateTableInput) (reconcile.Outcome, error)
	UpdateTable(ctx context.Context, projectID string, patch gateway.TablePatch) (reconcile.Outcome, error)
	DeleteTable(ctx context.Context, projectID, tableID string) (reconcile.Outcome, error)

	CreateVersion(ctx context.Context, in reconcile.CreateVersionInput) (reconcile.Outcome, error)
	UpdateVersion(ctx context.Context, projectID, tableID string, patch gateway.VersionPatch) (reconcile.Outcome, error)
	DeleteVersion(ctx context.Context, projectID, tableID, versionID string) (reconcile.Outcome, error)
}

type dashboardService struct {
	store      *cache.Store
	engine     *reconcile.Engine
	refresher  Refresher
	processing *refresh.ProcessingSet
	userID     string
	logger     *zap.Logger
}

// NewDashboardService creates the dashboard service. userID is attached to
// created projects when the request does not name one.
func NewDashboardService(
	store *cache.Store,
	engine *reconcile.Engine,
	refresher Refresher,
	processing *refresh.ProcessingSet,
	userID string,
	logger *zap.Logger,
) DashboardService {
	if processing == nil {
		processing = refresh.NewProcessingSet()
	}
	return &dashboardService{
		store:      store,
		engine:     engine,
		refresher:  refresher,
		processing: processing,
		userID:     userID,
		logger:     logger.Named("dashboard"),
	}
}

var _ DashboardService = (*dashboardService)(nil)

func (s *dashboardService) snapshot(ctx context.Context) []models.Project {
	projects, loaded := s.store.Get()
	if loaded {
		return projects
	}

	if _, err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Warn("Initial load failed; showing no projects", zap.Error(err))
	}
	projects, _ = s.store.Get()
	if projects == nil {
		return []models.Project{}
	}
	return projects
}

func (s *dashboardService) view(p models.Project) ProjectView {
	return ProjectView{
		Project:    p,
		Status:     refresh.ProjectStatus(p),
		Processing: s.processing.Has(p.ID),
	}
}

func (s *dashboardService) Projects(ctx context.Context) ([]ProjectView, error) {
	ordered := refresh.Ordered(s.snapshot(ctx))
	views := make([]ProjectView, len(ordered))
	for i, p := range ordered {
		views[i] = s.view(p)
	}
	return views, nil
}

func (s *dashboardService) Project(ctx context.Context, projectID string) (ProjectView, error) {
	p, _ := models.FindProject(s.snapshot(ctx), projectID)
	if p == nil {
		return ProjectView{}, fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
	}
	project := *p
	project.Tables = refresh.TablesNewestFirst(p.Tables)
	return s.view(project), nil
}

func (s *dashboardService) Charts(ctx context.Context, projectID, tableID string, metric models.MetricKey, order charts.SortOrder) (ChartData, error) {
	p, _ := models.FindProject(s.snapshot(ctx), projectID)
	if p == nil {
		return ChartData{}, fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
	}
	t, _ := p.FindTable(tableID)
	if t == nil {
		return ChartData{}, fmt.Errorf("table %s: %w", tableID, apperrors.ErrNotFound)
	}

	return ChartData{
		TableID: t.ID,
		Metric:  metric,
		Bars:    charts.BarData(t.Versions),
		ByDate:  charts.BarDataByMetric(t.Versions, metric, order, true),
		Scaled:  charts.ScaledBarData(t.Versions),
		Pie:     charts.PieDataByMetric(t.Versions, metric),
		CostPie: charts.PieData(t.Versions),
	}, nil
}

func (s *dashboardService) Editor(ctx context.Context, projectID, tableID, versionID string) (VersionEditor, error) {
	p, _ := models.FindProject(s.snapshot(ctx), projectID)
	if p == nil {
		return VersionEditor{}, fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
	}
	t, _ := p.FindTable(tableID)
	if t == nil {
		return VersionEditor{}, fmt.Errorf("table %s: %w", tableID, apperrors.ErrNotFound)
	}
	v, _ := t.FindVersion(versionID)
	if v == nil {
		return VersionEditor{}, fmt.Errorf("version %s: %w", versionID, apperrors.ErrNotFound)
	}

	queries := make([]QueryEditor, len(v.Queries))
	for i, q := range v.Queries {
		queries[i] = QueryEditor{
			QueryID:   q.ID,
			SQL:       sqltext.Text(q.QueryText),
			Suggested: sqltext.EditorValue(q.SuggestedQueryText),
			Markers:   sqltext.LineSeverities(q.SuggestedQueryText),
		}
	}

	return VersionEditor{
		VersionID:    v.ID,
		CommitHash:   v.CommitHash,
		AnalysisText: v.AnalysisText,
		Queries:      queries,
		Suggested:    sqltext.EditorValue(v.SuggestedQueryText),
		Markers:      sqltext.LineSeverities(v.SuggestedQueryText),
	}, nil
}

func (s *dashboardService) CacheStatus() cache.Status {
	return s.store.Status()
}

func (s *dashboardService) CreateProject(ctx context.Context, in gateway.CreateProjectInput) (reconcile.Outcome, error) {
	if in.UserID == "" {
		in.UserID = s.userID
	}
	if err := validation.CreateProject(in); err != nil {
		return reconcile.Outcome{}, err
	}

	out, err := s.engine.CreateProject(ctx, in)
	if err != nil {
		return out, err
	}
	if out.ID != "" {
		s.processing.Add(out.ID)
	} else {
		s.logger.Warn("Backend did not report the new project id", zap.String("name", in.Name))
	}
	return out, nil
}

func (s *dashboardService) UpdateProject(ctx context.Context, patch gateway.ProjectPatch) (reconcile.Outcome, error) {
	if err := validation.UpdateProject(patch); err != nil {
		return reconcile.Outcome{}, err
	}
	return s.engine.UpdateProject(ctx, patch)
}

func (s *dashboardService) DeleteProject(ctx context.Context, projectID string) (reconcile.Outcome, error) {
	if err := validation.Required("project_id", projectID); err != nil {
		return reconcile.Outcome{}, err
	}
	out, err := s.engine.DeleteProject(ctx, projectID)
	if err == nil {
		s.processing.Remove(projectID)
	}
	return out, err
}

func (s *dashboardService) CreateTable(ctx context.Context, in gateway.CreateTableInput) (reconcile.Outcome, error) {
	if err := validation.CreateTable(in); err != nil {
		return reconcile.Outcome{}, err
	}
	return s.engine.CreateTable(ctx, in)
}

func (s *dashboardService) UpdateTable(ctx context.Context, projectID string, patch gateway.TablePatch) (reconcile.Outcome, error) {
	if err := validation.Required("project_id", projectID); err != nil {
		return reconcile.Outcome{}, err
	}
	if err := validation.UpdateTable(patch); err != nil {
		return reconcile.Outcome{}, err
	}
	return s.engine.UpdateTable(ctx, projectID, patch)
}

func (s *dashboardService) DeleteTable(ctx context.Context, projectID, tableID string) (reconcile.Outcome, error) {
	if err := validation.Required("table_id", tableID); err != nil {
		return reconcile.Outcome{}, err
	}
	return s.engine.DeleteTable(ctx, projectID, tableID)
}

func (s *dashboardService) CreateVersion(ctx context.Context, in reconcile.CreateVersionInput) (reconcile.Outcome, error) {
	if err := validation.CreateVersion(in.TableID, in.CommitHash, in.SQL); err != nil {
		return reconcile.Outcome{}, err
	}
	return s.engine.CreateVersion(ctx, in)
}

func (s *dashboardService) UpdateVersion(ctx context.Context, projectID, tableID string, patch gateway.VersionPatch) (reconcile.Outcome, error) {
	if err := validation.UpdateVersion(patch); err != nil {
		return reconcile.Outcome{}, err
	}
	return s.engine.UpdateVersion(ctx, projectID, tableID, patch)
}

func (s *dashboardService) DeleteVersion(ctx context.Context, projectID, tableID, versionID string) (reconcile.Outcome, error) {
	if err := validation.Required("version_id", versionID); err != nil {
		return reconcile.Outcome{}, err
	}
	return s.engine.DeleteVersion(ctx, projectID, tableID, versionID)
}
