package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-console/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-console/pkg/cache"
	"github.com/ekaya-inc/ekaya-console/pkg/charts"
	"github.com/ekaya-inc/ekaya-console/pkg/gateway"
	"github.com/ekaya-inc/ekaya-console/pkg/models"
	"github.com/ekaya-inc/ekaya-console/pkg/normalize"
	"github.com/ekaya-inc/ekaya-console/pkg/reconcile"
	"github.com/ekaya-inc/ekaya-console/pkg/refresh"
	"github.com/ekaya-inc/ekaya-console/pkg/testhelpers"
)

const dashboardFixture = `[
	{"id": "idle", "name": "Idle", "updated_at": "2025-05-01T00:00:00.000Z", "tables": [
		{"id": "t-old", "name": "a", "status": "completed", "created_at": "2025-01-01T00:00:00.000Z", "versions": [
			{"id": "v1", "commit_hash": "c1", "created_at": "2025-01-02T00:00:00.000Z", "metrics": {"total_cost": "12.5"}},
			{"id": "v2", "commit_hash": "c2", "created_at": "2025-01-03T00:00:00.000Z", "metrics": [],
				"analysis_text": "Avoid SELECT *",
				"suggested_query_text": "SELECT id\nFROM a",
				"queries": [{"id": "q1", "query_text": "SELECT *\nFROM a", "suggested_query_text": [
					{"row_number": 2, "row": "FROM a", "type": "warning", "analisys": "full scan"},
					{"row_number": 1, "row": "SELECT id"}
				]}]}
		]},
		{"id": "t-new", "name": "b", "status": "completed", "created_at": "2025-02-01T00:00:00.000Z", "versions": []}
	]},
	{"id": "busy", "name": "Busy", "updated_at": "2024-01-01T00:00:00.000Z", "tables": [
		{"id": "t9", "name": "c", "status": "pending", "versions": []}
	]}
]`

type testDashboard struct {
	svc        DashboardService
	store      *cache.Store
	gw         *testhelpers.FakeGateway
	processing *refresh.ProcessingSet
}

func newTestDashboard(t *testing.T) testDashboard {
	t.Helper()
	store := cache.New()
	gw := testhelpers.NewFakeGateway()
	gw.SetProjectsJSON(dashboardFixture)
	processing := refresh.NewProcessingSet()
	poller := refresh.NewPoller(store, gw, normalize.New(), processing, time.Hour, zap.NewNop())
	engine := reconcile.NewEngine(store, gw, zap.NewNop())

	return testDashboard{
		svc:        NewDashboardService(store, engine, poller, processing, "user-1", zap.NewNop()),
		store:      store,
		gw:         gw,
		processing: processing,
	}
}

func TestDashboard_ProjectsLoadsAndOrders(t *testing.T) {
	d := newTestDashboard(t)

	views, err := d.svc.Projects(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "busy", views[0].ID)
	assert.Equal(t, models.StatusPending, views[0].Status)
	assert.Equal(t, "idle", views[1].ID)
	assert.Equal(t, models.StatusCompleted, views[1].Status)

	// The second read comes from the cache.
	_, err = d.svc.Projects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, d.gw.CallCount(testhelpers.OpFetchProjects))
}

func TestDashboard_ProjectsDegradesToEmptyOnFetchFailure(t *testing.T) {
	d := newTestDashboard(t)
	d.gw.FailFetch(assert.AnError)

	views, err := d.svc.Projects(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestDashboard_ProjectTablesNewestFirst(t *testing.T) {
	d := newTestDashboard(t)

	view, err := d.svc.Project(context.Background(), "idle")
	require.NoError(t, err)
	require.Len(t, view.Tables, 2)
	assert.Equal(t, "t-new", view.Tables[0].ID)

	// The cached snapshot keeps the backend order.
	cached, _ := d.store.Get()
	assert.Equal(t, "t-old", cached[0].Tables[0].ID)

	_, err = d.svc.Project(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDashboard_Charts(t *testing.T) {
	d := newTestDashboard(t)

	data, err := d.svc.Charts(context.Background(), "idle", "t-old", models.MetricTotalCost, charts.SortAsc)
	require.NoError(t, err)
	require.Len(t, data.Bars, 2)
	assert.Equal(t, 12.5, data.Bars[0].Value)
	assert.Equal(t, 0.0, data.Bars[1].Value)
	require.Len(t, data.ByDate, 1, "versions without the metric are filtered")
	assert.Equal(t, "c1", data.ByDate[0].Label)

	require.Len(t, data.CostPie, 2)
	assert.Equal(t, "c1", data.CostPie[0].Label)
	assert.Equal(t, 12.5, data.CostPie[0].Value)
	assert.NotEqual(t, data.Pie[0].Fill, data.CostPie[0].Fill, "cost pie uses its own palette")

	_, err = d.svc.Charts(context.Background(), "idle", "nope", models.MetricTotalCost, charts.SortAsc)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDashboard_Editor(t *testing.T) {
	d := newTestDashboard(t)

	ed, err := d.svc.Editor(context.Background(), "idle", "t-old", "v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", ed.VersionID)
	assert.Equal(t, "c2", ed.CommitHash)
	assert.Equal(t, "Avoid SELECT *", ed.AnalysisText)
	assert.Equal(t, "SELECT id\nFROM a", ed.Suggested)
	assert.Empty(t, ed.Markers)

	require.Len(t, ed.Queries, 1)
	q := ed.Queries[0]
	assert.Equal(t, "q1", q.QueryID)
	assert.Equal(t, "SELECT *\nFROM a", q.SQL)
	assert.Equal(t, "SELECT id\nFROM a", q.Suggested, "lines are ordered by row number")
	require.Len(t, q.Markers, 1)
	assert.Equal(t, 2, q.Markers[0].LineNumber)
	assert.Equal(t, models.LineWarning, q.Markers[0].Severity)
	assert.Equal(t, "full scan", q.Markers[0].Analysis)

	tests := []struct {
		name      string
		projectID string
		tableID   string
		versionID string
	}{
		{"unknown project", "nope", "t-old", "v2"},
		{"unknown table", "idle", "nope", "v2"},
		{"unknown version", "idle", "t-old", "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.svc.Editor(context.Background(), tt.projectID, tt.tableID, tt.versionID)
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
		})
	}
}

func TestDashboard_InvalidInputNeverTouchesCache(t *testing.T) {
	d := newTestDashboard(t)
	_, err := d.svc.Projects(context.Background())
	require.NoError(t, err)
	before, _ := d.store.Get()
	generation := d.store.Status().Generation

	_, err = d.svc.CreateTable(context.Background(), gateway.CreateTableInput{
		ProjectID: "idle", Name: "'; DROP TABLE users--", ConnectionString: "postgresql://db/app",
	})
	assert.ErrorIs(t, err, apperrors.ErrSuspiciousInput)

	_, err = d.svc.CreateTable(context.Background(), gateway.CreateTableInput{
		ProjectID: "idle", Name: "orders", ConnectionString: "oracle://db/app",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidConnectionString)

	_, err = d.svc.CreateVersion(context.Background(), reconcile.CreateVersionInput{ProjectID: "idle", TableID: "t-old", CommitHash: "c3"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	after, _ := d.store.Get()
	assert.Equal(t, before, after)
	assert.Equal(t, generation, d.store.Status().Generation)
	assert.Equal(t, 0, d.gw.CallCount(testhelpers.OpCreateTable))
	assert.Equal(t, 0, d.gw.CallCount(testhelpers.OpCreateVersion))
}

func TestDashboard_CreateProjectTracksProcessing(t *testing.T) {
	d := newTestDashboard(t)

	out, err := d.svc.CreateProject(context.Background(), gateway.CreateProjectInput{
		Name:             "New",
		ConnectionString: "postgresql://app:pw@db/new",
		TableName:        "orders",
		TableSchema:      "public",
	})
	require.NoError(t, err)
	assert.Equal(t, "createProject-id", out.ID)
	assert.True(t, d.processing.Has("createProject-id"))

	calls := d.gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "user-1", calls[0].Input.(gateway.CreateProjectInput).UserID)
}

func TestDashboard_RejectedMutationSurfacesMessage(t *testing.T) {
	d := newTestDashboard(t)
	_, err := d.svc.Projects(context.Background())
	require.NoError(t, err)
	d.gw.Reject(testhelpers.OpDeleteTable, "table is locked")

	_, err = d.svc.DeleteTable(context.Background(), "idle", "t-old")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMutationRejected)

	var mErr *reconcile.MutationError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, "table is locked", mErr.Message)

	view, err := d.svc.Project(context.Background(), "idle")
	require.NoError(t, err)
	assert.Len(t, view.Tables, 2)
}

func TestDashboard_DeleteProjectClearsProcessing(t *testing.T) {
	d := newTestDashboard(t)
	d.processing.Add("busy")

	_, err := d.svc.DeleteProject(context.Background(), "busy")
	require.NoError(t, err)
	assert.False(t, d.processing.Has("busy"))

	_, err = d.svc.DeleteProject(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
