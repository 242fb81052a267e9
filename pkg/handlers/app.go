package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-console/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-console/pkg/auth"
	"github.com/ekaya-inc/ekaya-console/pkg/charts"
	"github.com/ekaya-inc/ekaya-console/pkg/gateway"
	"github.com/ekaya-inc/ekaya-console/pkg/logging"
	"github.com/ekaya-inc/ekaya-console/pkg/reconcile"
	"github.com/ekaya-inc/ekaya-console/pkg/services"
)

// MutationResponse is returned with 202 once a mutation settled successfully.
// The cache is stale until the next refresh replaces tentative entities.
type MutationResponse struct {
	Status      string `json:"status"`
	TentativeID string `json:"tentative_id,omitempty"`
	ID          string `json:"id,omitempty"`
	QueryID     string `json:"query_id,omitempty"`
	Applied     bool   `json:"applied"`
}

// NoticesResponse carries pending user-visible notices.
type NoticesResponse struct {
	Notices []string `json:"notices"`
}

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

type createProjectRequest struct {
	Name             string `json:"name"`
	ConnectionString string `json:"connection_string"`
	TableName        string `json:"table_name"`
	TableSchema      string `json:"table_schema"`
	UserID           string `json:"user_id,omitempty"`
}

type updateProjectRequest struct {
	Name string `json:"name"`
}

type createTableRequest struct {
	Name             string `json:"name"`
	Schema           string `json:"schema"`
	ConnectionString string `json:"connection_string"`
}

type updateTableRequest struct {
	Name          *string `json:"name,omitempty"`
	Schema        *string `json:"schema,omitempty"`
	DefaultLimits *string `json:"default_limits,omitempty"`
}

type createVersionRequest struct {
	CommitHash string `json:"commit_hash"`
	SQL        string `json:"sql"`
}

type updateVersionRequest struct {
	CommitHash *string `json:"commit_hash,omitempty"`
	PRNumber   *int64  `json:"pr_number,omitempty"`
}

// AppHandler serves the dashboard API under /api/app.
type AppHandler struct {
	dashboard services.DashboardService
	notices   *auth.NoticeStore
	logger    *zap.Logger
}

// NewAppHandler creates the dashboard API handler. notices may be nil, in
// which case failures are only reported in the response body.
func NewAppHandler(dashboard services.DashboardService, notices *auth.NoticeStore, logger *zap.Logger) *AppHandler {
	return &AppHandler{
		dashboard: dashboard,
		notices:   notices,
		logger:    logger.Named("handlers"),
	}
}

// RegisterRoutes registers the dashboard routes. Mutating routes are wrapped
// with limit when it is non-nil.
func (h *AppHandler) RegisterRoutes(mux *http.ServeMux, limit Middleware) {
	mutating := func(fn http.HandlerFunc) http.Handler {
		if limit == nil {
			return fn
		}
		return limit(fn)
	}

	mux.HandleFunc("GET /api/app/projects", h.ListProjects)
	mux.HandleFunc("GET /api/app/projects/{pid}", h.GetProject)
	mux.HandleFunc("GET /api/app/projects/{pid}/tables/{tid}/charts", h.GetCharts)
	mux.HandleFunc("GET /api/app/projects/{pid}/tables/{tid}/versions/{vid}/editor", h.GetVersionEditor)
	mux.HandleFunc("GET /api/app/notices", h.PopNotices)

	mux.Handle("POST /api/app/projects", mutating(h.CreateProject))
	mux.Handle("PATCH /api/app/projects/{pid}", mutating(h.UpdateProject))
	mux.Handle("DELETE /api/app/projects/{pid}", mutating(h.DeleteProject))

	mux.Handle("POST /api/app/projects/{pid}/tables", mutating(h.CreateTable))
	mux.Handle("PATCH /api/app/projects/{pid}/tables/{tid}", mutating(h.UpdateTable))
	mux.Handle("DELETE /api/app/projects/{pid}/tables/{tid}", mutating(h.DeleteTable))

	mux.Handle("POST /api/app/projects/{pid}/tables/{tid}/versions", mutating(h.CreateVersion))
	mux.Handle("PATCH /api/app/projects/{pid}/tables/{tid}/versions/{vid}", mutating(h.UpdateVersion))
	mux.Handle("DELETE /api/app/projects/{pid}/tables/{tid}/versions/{vid}", mutating(h.DeleteVersion))
}

// ListProjects handles GET /api/app/projects.
func (h *AppHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	views, err := h.dashboard.Projects(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// GetProject handles GET /api/app/projects/{pid}.
func (h *AppHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	view, err := h.dashboard.Project(r.Context(), r.PathValue("pid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// GetCharts handles GET /api/app/projects/{pid}/tables/{tid}/charts.
func (h *AppHandler) GetCharts(w http.ResponseWriter, r *http.Request) {
	metric, ok := charts.ParseMetric(r.URL.Query().Get("metric"))
	if !ok {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_metric", "Unknown metric")
		return
	}
	order := charts.ParseSortOrder(r.URL.Query().Get("sort"))

	data, err := h.dashboard.Charts(r.Context(), r.PathValue("pid"), r.PathValue("tid"), metric, order)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, data)
}

// GetVersionEditor handles GET /api/app/projects/{pid}/tables/{tid}/versions/{vid}/editor.
func (h *AppHandler) GetVersionEditor(w http.ResponseWriter, r *http.Request) {
	ed, err := h.dashboard.Editor(r.Context(), r.PathValue("pid"), r.PathValue("tid"), r.PathValue("vid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ed)
}

// PopNotices handles GET /api/app/notices.
func (h *AppHandler) PopNotices(w http.ResponseWriter, r *http.Request) {
	notices := []string{}
	if h.notices != nil {
		popped, err := h.notices.Pop(w, r)
		if err != nil {
			h.logger.Warn("Failed to read notices", zap.Error(err))
		} else {
			notices = popped
		}
	}
	h.writeJSON(w, http.StatusOK, NoticesResponse{Notices: notices})
}

// CreateProject handles POST /api/app/projects.
func (h *AppHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.dashboard.CreateProject(r.Context(), gateway.CreateProjectInput{
		ConnectionString: req.ConnectionString,
		Name:             req.Name,
		TableName:        req.TableName,
		TableSchema:      req.TableSchema,
		UserID:           req.UserID,
	})
	h.respondMutation(w, r, out, err)
}

// UpdateProject handles PATCH /api/app/projects/{pid}.
func (h *AppHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.dashboard.UpdateProject(r.Context(), gateway.ProjectPatch{ID: r.PathValue("pid"), Name: req.Name})
	h.respondMutation(w, r, out, err)
}

// DeleteProject handles DELETE /api/app/projects/{pid}.
func (h *AppHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	out, err := h.dashboard.DeleteProject(r.Context(), r.PathValue("pid"))
	h.respondMutation(w, r, out, err)
}

// CreateTable handles POST /api/app/projects/{pid}/tables.
func (h *AppHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.dashboard.CreateTable(r.Context(), gateway.CreateTableInput{
		ConnectionString: req.ConnectionString,
		Name:             req.Name,
		ProjectID:        r.PathValue("pid"),
		Schema:           req.Schema,
	})
	h.respondMutation(w, r, out, err)
}

// UpdateTable handles PATCH /api/app/projects/{pid}/tables/{tid}.
func (h *AppHandler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	var req updateTableRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.dashboard.UpdateTable(r.Context(), r.PathValue("pid"), gateway.TablePatch{
		ID:            r.PathValue("tid"),
		Name:          req.Name,
		Schema:        req.Schema,
		DefaultLimits: req.DefaultLimits,
	})
	h.respondMutation(w, r, out, err)
}

// DeleteTable handles DELETE /api/app/projects/{pid}/tables/{tid}.
func (h *AppHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	out, err := h.dashboard.DeleteTable(r.Context(), r.PathValue("pid"), r.PathValue("tid"))
	h.respondMutation(w, r, out, err)
}

// CreateVersion handles POST /api/app/projects/{pid}/tables/{tid}/versions.
func (h *AppHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var req createVersionRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.dashboard.CreateVersion(r.Context(), reconcile.CreateVersionInput{
		ProjectID:  r.PathValue("pid"),
		TableID:    r.PathValue("tid"),
		CommitHash: req.CommitHash,
		SQL:        req.SQL,
	})
	h.respondMutation(w, r, out, err)
}

// UpdateVersion handles PATCH /api/app/projects/{pid}/tables/{tid}/versions/{vid}.
func (h *AppHandler) UpdateVersion(w http.ResponseWriter, r *http.Request) {
	var req updateVersionRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.dashboard.UpdateVersion(r.Context(), r.PathValue("pid"), r.PathValue("tid"), gateway.VersionPatch{
		ID:         r.PathValue("vid"),
		CommitHash: req.CommitHash,
		PRNumber:   req.PRNumber,
	})
	h.respondMutation(w, r, out, err)
}

// DeleteVersion handles DELETE /api/app/projects/{pid}/tables/{tid}/versions/{vid}.
func (h *AppHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	out, err := h.dashboard.DeleteVersion(r.Context(), r.PathValue("pid"), r.PathValue("tid"), r.PathValue("vid"))
	h.respondMutation(w, r, out, err)
}

func (h *AppHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := DecodeJSON(r, dst); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func (h *AppHandler) respondMutation(w http.ResponseWriter, r *http.Request, out reconcile.Outcome, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, MutationResponse{
		Status:      "accepted",
		TentativeID: out.TentativeID,
		ID:          out.ID,
		QueryID:     out.QueryID,
		Applied:     out.Applied,
	})
}

// writeError maps service errors onto status codes. Rejected mutations are
// also queued as notices for the next page load.
func (h *AppHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var mErr *reconcile.MutationError
	switch {
	case errors.As(err, &mErr):
		if h.notices != nil {
			if nErr := h.notices.Add(w, r, mErr.Message); nErr != nil {
				h.logger.Warn("Failed to queue notice", zap.Error(nErr))
			}
		}
		h.writeErrorResponse(w, http.StatusBadGateway, "mutation_rejected", mErr.Message)
	case errors.Is(err, apperrors.ErrInvalidConnectionString):
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_connection_string", err.Error())
	case errors.Is(err, apperrors.ErrSuspiciousInput):
		h.writeErrorResponse(w, http.StatusBadRequest, "suspicious_input", err.Error())
	case errors.Is(err, apperrors.ErrInvalidInput):
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("error", logging.SanitizeError(err)))
		h.writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Request failed")
	}
}

func (h *AppHandler) writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *AppHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
