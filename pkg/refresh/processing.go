package refresh

import (
	"sort"
	"sync"

	"github.com/ekaya-inc/ekaya-console/pkg/models"
)

// ProcessingSet tracks projects the user just created so the dashboard can
// show them as busy before the backend reports any table status.
type ProcessingSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewProcessingSet creates an empty set.
func NewProcessingSet() *ProcessingSet {
	return &ProcessingSet{ids: make(map[string]struct{})}
}

// Add records a project id. Empty ids are ignored.
func (s *ProcessingSet) Add(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

// Remove forgets a project id.
func (s *ProcessingSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// Has reports whether id is still processing.
func (s *ProcessingSet) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the tracked ids in sorted order.
func (s *ProcessingSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Prune removes every tracked project that appears in projects with a
// derived status that is no longer busy. Projects not yet visible in the
// snapshot stay tracked. It returns the removed ids.
func (s *ProcessingSet) Prune(projects []models.Project) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for _, p := range projects {
		if _, ok := s.ids[p.ID]; !ok {
			continue
		}
		if !IsBusy(p) {
			delete(s.ids, p.ID)
			removed = append(removed, p.ID)
		}
	}
	sort.Strings(removed)
	return removed
}
