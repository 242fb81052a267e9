package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-console/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-console/pkg/models"
	"github.com/ekaya-inc/ekaya-console/pkg/retry"
	"github.com/ekaya-inc/ekaya-console/pkg/sqltext"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   map[string]any
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Header: r.Header.Clone()}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		requests = append(requests, rec)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Options{
		BaseURL:    server.URL,
		APIKey:     "test-api-key",
		Timeout:    time.Second,
		FetchRetry: &retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2},
	}, staticToken("test-token"), zap.NewNop())
	return client, &requests
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestFetchProjects_ResponseEnvelope(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"response":[{"id":"p1"},{"id":"p2"}]}`)
	})

	items, err := client.FetchProjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/projects", req.Path)
	assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
	assert.Equal(t, "test-api-key", req.Header.Get("X-API-KEY"))
}

func TestFetchProjects_BareArrayAndOddShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"id":"p1"}]`, 1},
		{"null response", `{"response":null}`, 0},
		{"string", `"nothing"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			})
			items, err := client.FetchProjects(context.Background())
			require.NoError(t, err)
			require.NotNil(t, items)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestFetchProjects_RetriesServerErrors(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, `{"detail":"busy"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"response":[{"id":"p1"}]}`)
	})

	items, err := client.FetchProjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchProjects_PermanentFailureDegradesToEmpty(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusUnauthorized, `{"detail":"bad token"}`)
	})

	items, err := client.FetchProjects(context.Background())
	require.Error(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestCreateTable(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"response":{"id":"t-real"}}`)
	})

	res, err := client.CreateTable(context.Background(), CreateTableInput{
		ConnectionString: "postgresql://u:p@db/app",
		Name:             "orders",
		ProjectID:        "p1",
		Schema:           "public",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "t-real", res.ID())

	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/tables", req.Path)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, map[string]any{
		"connection_string": "postgresql://u:p@db/app",
		"name":              "orders",
		"project_id":        "p1",
		"schema":            "public",
	}, req.Body)
}

func TestUpdateTable_SendsIDInQueryAndPatchInBody(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"response":"updated"}`)
	})

	name := "orders_v2"
	res, err := client.UpdateTable(context.Background(), TablePatch{ID: "t1", Name: &name})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "updated", res.Message())

	req := (*requests)[0]
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/api/tables", req.Path)
	assert.Equal(t, "id=t1", req.Query)
	assert.Equal(t, map[string]any{"name": "orders_v2"}, req.Body)
}

func TestDeleteVersion_SendsIDInBody(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"response":"deleted"}`)
	})

	res, err := client.DeleteVersion(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, res.Success)

	req := (*requests)[0]
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/api/versions", req.Path)
	assert.Equal(t, map[string]any{"id": "v1"}, req.Body)
}

func TestCreateVersion_Payload(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"response":{"id":"v-real","query_id":"q-real"}}`)
	})

	res, err := client.CreateVersion(context.Background(), CreateVersionInput{
		CommitHash: "v2",
		TableID:    "t1",
		Query: VersionQuery{
			QueryText: models.QueryText{SQL: sqltext.Build("SELECT 1\nFROM dual")},
			Status:    QueryStatusNew,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "v-real", res.ID())
	assert.Equal(t, "q-real", res.QueryID())

	body := (*requests)[0].Body
	assert.Equal(t, "v2", body["commit_hash"])
	assert.Equal(t, "t1", body["table_id"])
	query := body["query"].(map[string]any)
	assert.Equal(t, "new", query["status"])
	rows := query["query_text"].(map[string]any)["sql"].(map[string]any)["query"].(map[string]any)["body_query"].([]any)
	assert.Len(t, rows, 2)
}

func TestMutation_RejectedBySuccessFlag(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":false,"response":"table already exists"}`)
	})

	res, err := client.CreateTable(context.Background(), CreateTableInput{Name: "orders"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "table already exists", res.Message())
}

func TestMutation_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"envelope", http.StatusBadRequest, `{"success":true,"response":"invalid schema"}`, "invalid schema"},
		{"detail object", http.StatusUnprocessableEntity, `{"response":{"detail":"name required"}}`, "name required"},
		{"no body", http.StatusInternalServerError, ``, "backend returned status 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			res, err := client.DeleteTable(context.Background(), "t1")
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message())
		})
	}
}

func TestMutation_EmptySuccessBody(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"no content", http.StatusNoContent, ""},
		{"empty ok", http.StatusOK, ""},
		{"whitespace ok", http.StatusOK, "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			res, err := client.DeleteTable(context.Background(), "t1")
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Empty(t, res.ID())
		})
	}

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, "<html>")
	})
	_, err := client.DeleteTable(context.Background(), "t1")
	assert.ErrorContains(t, err, "failed to parse response")
}

func TestMutation_TransportFailure(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, nil, zap.NewNop())

	_, err := client.DeleteTable(context.Background(), "t1")
	assert.Error(t, err)
}

func TestResult_Helpers(t *testing.T) {
	assert.Equal(t, "", Result{}.ID())
	assert.Equal(t, "", Result{Response: json.RawMessage(`"x"`)}.ID())
	assert.Equal(t, "42", Result{Response: json.RawMessage(`{"id":42}`)}.ID())

	f := Failure("nope")
	assert.False(t, f.Success)
	assert.Equal(t, "nope", f.Message())
}

func TestBuildURL(t *testing.T) {
	got, err := buildURL("https://api.example.com/base", idQuery("a b"), "api", "tables")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/base/api/tables?id=a+b", got)
}
