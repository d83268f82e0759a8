package projects

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu         sync.RWMutex
	projects   map[string]Project
	activities map[string][]Activity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: map[string]Project{}, activities: map[string][]Activity{}}
}

func (s *MemoryStore) Create(_ context.Context, p Project, act Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = cloneProject(p)
	s.activities[p.ID] = append(s.activities[p.ID], act)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return cloneProject(p), nil
}

func (s *MemoryStore) List(_ context.Context, f ListFilter) ([]Project, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Project
	for _, p := range s.projects {
		if matches(p, f) {
			p = cloneProject(p)
			p.Stages = nil
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedAt.After(matched[j].UpdatedAt) })

	total := len(matched)
	from := min(f.offset(), total)
	to := min(from+f.Limit, total)
	return append([]Project{}, matched[from:to]...), total, nil
}

func matches(p Project, f ListFilter) bool {
	switch {
	case f.Stage != "" && p.Stage != f.Stage,
		f.Status != "" && p.Status != f.Status,
		f.Priority != "" && p.Priority != f.Priority,
		f.ClientID != "" && p.ClientID != f.ClientID,
		f.ProjectManagerID != "" && p.ProjectManagerID != f.ProjectManagerID:
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Description), q)
}

func (s *MemoryStore) Update(_ context.Context, p Project, startStage int, acts []Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.projects[p.ID]
	if !ok {
		return ErrNotFound
	}
	p = cloneProject(p)
	p.Stages = old.Stages
	if startStage > 0 && startStage <= len(p.Stages) {
		at := p.UpdatedAt
		p.Stages[startStage-1].Status = StageInProgress
		p.Stages[startStage-1].StartDate = &at
	}
	s.projects[p.ID] = p
	s.activities[p.ID] = append(s.activities[p.ID], acts...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return ErrNotFound
	}
	delete(s.projects, id)
	delete(s.activities, id)
	return nil
}

func (s *MemoryStore) Activities(_ context.Context, projectID string, limit int) ([]Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.activities[projectID]
	out := make([]Activity, 0, min(limit, len(src)))
	for i := len(src) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, src[i])
	}
	return out, nil
}

func cloneProject(p Project) Project {
	p.Stages = append([]StageRecord(nil), p.Stages...)
	p.Tags = append([]string{}, p.Tags...)
	p.Deliverables = append([]string{}, p.Deliverables...)
	return p
}
