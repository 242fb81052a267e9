// Package cache holds the in-memory snapshot of the user's projects and the
// bookkeeping that lets optimistic mutations and background refreshes share it.
//
// Snapshots are copy-on-write: a writer builds a new slice (sharing untouched
// projects) and swaps it in. Readers must treat every slice, struct and nested
// slice they receive as immutable.
package cache

import (
	"context"
	"sync"

	"github.com/ekaya-inc/ekaya-console/pkg/models"
)

// ProjectsKey is the single cache key: all projects of the current user.
const ProjectsKey = "projects"

// Store owns the projects snapshot. Create one per process with New and pass
// it to the components that read or write it.
type Store struct {
	mu sync.Mutex

	projects   []models.Project
	loaded     bool
	stale      bool
	generation uint64

	// inflight counts mutations between BeginMutation and End. Refreshes are
	// suppressed while it is non-zero.
	inflight int

	fetch       *Fetch
	nextFetchID uint64

	invalidated chan struct{}
}

// New creates an empty, unloaded store.
func New() *Store {
	return &Store{
		invalidated: make(chan struct{}, 1),
	}
}

// Reset drops the snapshot and all bookkeeping. In-flight fetches are cancelled.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelFetchLocked()
	s.projects = nil
	s.loaded = false
	s.stale = false
	s.generation++
	s.inflight = 0
	select {
	case <-s.invalidated:
	default:
	}
}

// Get returns the current snapshot and whether it has been loaded.
func (s *Store) Get() ([]models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects, s.loaded
}

// Status describes the store for diagnostics.
type Status struct {
	Loaded            bool   `json:"loaded"`
	Stale             bool   `json:"stale"`
	Generation        uint64 `json:"generation"`
	MutationsInFlight int    `json:"mutations_in_flight"`
	Fetching          bool   `json:"fetching"`
}

// Status reports the store's bookkeeping.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Loaded:            s.loaded,
		Stale:             s.stale,
		Generation:        s.generation,
		MutationsInFlight: s.inflight,
		Fetching:          s.fetch != nil,
	}
}

// Set replaces the snapshot with server truth outside the fetch protocol.
func (s *Store) Set(projects []models.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked(projects)
}

// Invalidate marks the snapshot stale and wakes the refresher.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

// Invalidated signals after every Invalidate. Signals coalesce.
func (s *Store) Invalidated() <-chan struct{} {
	return s.invalidated
}

func (s *Store) invalidateLocked() {
	s.stale = true
	select {
	case s.invalidated <- struct{}{}:
	default:
	}
}

func (s *Store) commitLocked(projects []models.Project) {
	if projects == nil {
		projects = []models.Project{}
	}
	s.projects = projects
	s.loaded = true
	s.stale = false
	s.generation++
}

// Mutation is one optimistic write between BeginMutation and End.
type Mutation struct {
	store    *Store
	previous []models.Project
	applied  bool
	ended    bool
}

// BeginMutation starts an optimistic write. In order, under one lock, it
// cancels any in-flight fetch, suppresses new fetches, captures the current
// snapshot as previous and installs apply(previous) as the tentative snapshot.
// apply must not modify its argument. When nothing is loaded yet there is
// nothing to patch, so apply is skipped.
func (s *Store) BeginMutation(apply func([]models.Project) []models.Project) *Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelFetchLocked()
	s.inflight++

	m := &Mutation{store: s}
	if s.loaded && apply != nil {
		m.previous = s.projects
		s.projects = apply(s.projects)
		s.generation++
		m.applied = true
	}
	return m
}

// Applied reports whether a tentative snapshot was installed.
func (m *Mutation) Applied() bool {
	return m.applied
}

// Rollback restores the snapshot captured when the mutation began. Later
// tentative layers installed on top of it are discarded with it.
func (m *Mutation) Rollback() {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if !m.applied || m.ended {
		return
	}
	s.projects = m.previous
	s.generation++
}

// End settles the mutation: refreshes are allowed again once no other
// mutation is in flight, and the snapshot is marked stale so the next
// refresh replaces tentative entities with server truth. Safe to call twice.
func (m *Mutation) End() {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ended {
		return
	}
	m.ended = true
	if s.inflight > 0 {
		s.inflight--
	}
	s.invalidateLocked()
}

// Fetch is one background refresh of the snapshot.
type Fetch struct {
	id         uint64
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

// Context is cancelled when the fetch is superseded by a mutation or by a
// newer fetch.
func (f *Fetch) Context() context.Context {
	return f.ctx
}

// BeginFetch starts a refresh. It returns false while a mutation is in
// flight. A newer fetch cancels the older one.
func (s *Store) BeginFetch(parent context.Context) (*Fetch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight > 0 {
		return nil, false
	}

	s.cancelFetchLocked()
	s.nextFetchID++
	ctx, cancel := context.WithCancel(parent)
	f := &Fetch{
		id:         s.nextFetchID,
		generation: s.generation,
		ctx:        ctx,
		cancel:     cancel,
	}
	s.fetch = f
	return f, true
}

// CompleteFetch commits projects if f is still the current fetch, was not
// cancelled and nothing else wrote the snapshot since it began. It reports
// whether the snapshot was replaced.
func (s *Store) CompleteFetch(f *Fetch, projects []models.Project) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer f.cancel()

	if s.fetch != f || f.ctx.Err() != nil {
		return false
	}
	s.fetch = nil

	if s.inflight > 0 || s.generation != f.generation {
		return false
	}
	s.commitLocked(projects)
	return true
}

// AbandonFetch releases f without touching the snapshot.
func (s *Store) AbandonFetch(f *Fetch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetch == f {
		s.fetch = nil
	}
	f.cancel()
}

func (s *Store) cancelFetchLocked() {
	if s.fetch != nil {
		s.fetch.cancel()
		s.fetch = nil
	}
}
