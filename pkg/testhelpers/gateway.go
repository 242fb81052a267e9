package testhelpers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ekaya-inc/ekaya-console/pkg/gateway"
)

// Gateway operation names recorded by FakeGateway.
const (
	OpFetchProjects = "fetchProjects"
	OpCreateProject = "createProject"
	OpUpdateProject = "updateProject"
	OpDeleteProject = "deleteProject"
	OpCreateTable   = "createTable"
	OpUpdateTable   = "updateTable"
	OpDeleteTable   = "deleteTable"
	OpCreateVersion = "createVersion"
	OpUpdateVersion = "updateVersion"
	OpDeleteVersion = "deleteVersion"
)

// Call is one recorded gateway invocation.
type Call struct {
	Op    string
	Input any
}

// FakeGateway is an in-memory gateway.Gateway with scripted results.
// Unscripted mutations succeed with {"id": "<op>-id"}.
type FakeGateway struct {
	mu       sync.Mutex
	projects []any
	fetchErr error
	results  map[string]outcome
	calls    []Call

	// OnCall runs before every operation returns, outside the lock. Tests
	// use it to block a call or inspect state while the call is in flight.
	OnCall func(ctx context.Context, op string)
}

type outcome struct {
	result gateway.Result
	err    error
}

var _ gateway.Gateway = (*FakeGateway)(nil)

// NewFakeGateway creates a fake serving projects from FetchProjects.
func NewFakeGateway(projects ...any) *FakeGateway {
	return &FakeGateway{
		projects: projects,
		results:  make(map[string]outcome),
	}
}

// SetProjects replaces the raw projects returned by FetchProjects.
func (f *FakeGateway) SetProjects(projects ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects = projects
	f.fetchErr = nil
}

// SetProjectsJSON replaces the projects with a decoded JSON array.
func (f *FakeGateway) SetProjectsJSON(data string) {
	var items []any
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		panic(err)
	}
	f.SetProjects(items...)
}

// FailFetch makes FetchProjects return err and an empty list.
func (f *FakeGateway) FailFetch(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

// SetResult scripts the outcome of op.
func (f *FakeGateway) SetResult(op string, result gateway.Result, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[op] = outcome{result: result, err: err}
}

// Reject scripts op to return {success:false, response: message}.
func (f *FakeGateway) Reject(op, message string) {
	f.SetResult(op, gateway.Failure(message), nil)
}

// Calls returns the recorded invocations.
func (f *FakeGateway) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times op was invoked.
func (f *FakeGateway) CallCount(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *FakeGateway) record(ctx context.Context, op string, input any) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Input: input})
	hook := f.OnCall
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, op)
	}
}

func (f *FakeGateway) mutate(ctx context.Context, op string, input any) (gateway.Result, error) {
	f.record(ctx, op, input)

	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.results[op]; ok {
		return o.result, o.err
	}
	return gateway.Result{Success: true, Response: json.RawMessage(`{"id":"` + op + `-id"}`)}, nil
}

// FetchProjects returns the scripted project list.
func (f *FakeGateway) FetchProjects(ctx context.Context) ([]any, error) {
	f.record(ctx, OpFetchProjects, nil)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return []any{}, f.fetchErr
	}
	out := make([]any, len(f.projects))
	copy(out, f.projects)
	return out, nil
}

func (f *FakeGateway) CreateProject(ctx context.Context, in gateway.CreateProjectInput) (gateway.Result, error) {
	return f.mutate(ctx, OpCreateProject, in)
}

func (f *FakeGateway) UpdateProject(ctx context.Context, patch gateway.ProjectPatch) (gateway.Result, error) {
	return f.mutate(ctx, OpUpdateProject, patch)
}

func (f *FakeGateway) DeleteProject(ctx context.Context, id string) (gateway.Result, error) {
	return f.mutate(ctx, OpDeleteProject, id)
}

func (f *FakeGateway) CreateTable(ctx context.Context, in gateway.CreateTableInput) (gateway.Result, error) {
	return f.mutate(ctx, OpCreateTable, in)
}

func (f *FakeGateway) UpdateTable(ctx context.Context, patch gateway.TablePatch) (gateway.Result, error) {
	return f.mutate(ctx, OpUpdateTable, patch)
}

func (f *FakeGateway) DeleteTable(ctx context.Context, id string) (gateway.Result, error) {
	return f.mutate(ctx, OpDeleteTable, id)
}

func (f *FakeGateway) CreateVersion(ctx context.Context, in gateway.CreateVersionInput) (gateway.Result, error) {
	return f.mutate(ctx, OpCreateVersion, in)
}

func (f *FakeGateway) UpdateVersion(ctx context.Context, patch gateway.VersionPatch) (gateway.Result, error) {
	return f.mutate(ctx, OpUpdateVersion, patch)
}

func (f *FakeGateway) DeleteVersion(ctx context.Context, id string) (gateway.Result, error) {
	return f.mutate(ctx, OpDeleteVersion, id)
}
