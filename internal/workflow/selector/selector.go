// Package selector lists the projects that can receive a reward distribution.
package selector

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"reward-core/internal/model"
	"reward-core/pkg/errno"
	"reward-core/pkg/logger"
)

// ProjectLister is the slice of the admin API the selector needs.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]model.RewardProject, error)
}

// StatusAll disables the reward status filter.
const StatusAll = "all"

// Filter narrows the eligible list. Zero value shows everything.
type Filter struct {
	Search string // case-insensitive title substring
	Status string // all | pending | ready | completed
}

func (f Filter) match(p model.RewardProject) bool {
	if f.Status != "" && f.Status != StatusAll && !strings.EqualFold(p.RewardStatus, f.Status) {
		return false
	}
	q := strings.TrimSpace(f.Search)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), strings.ToLower(q))
}

// Selector holds the eligible projects and the current selection.
type Selector struct {
	api ProjectLister

	mu       sync.RWMutex
	projects []model.RewardProject
	selected *model.RewardProject
	err      error
	loaded   bool
}

func New(api ProjectLister) *Selector {
	return &Selector{api: api}
}

// Load fetches the project list and keeps the eligible ones.
// A failure is kept as section state (see Err) and returned; the previous list stays visible.
func (s *Selector) Load(ctx context.Context) error {
	all, err := s.api.ListProjects(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		logger.Error("failed to load reward projects", zap.Error(err))
		s.err = err
		return err
	}

	eligible := make([]model.RewardProject, 0, len(all))
	for _, p := range all {
		if p.Eligible() {
			eligible = append(eligible, p)
		}
	}
	s.projects = eligible
	s.err = nil
	s.loaded = true

	// 选中的项目可能已经不在列表里了
	if s.selected != nil {
		s.selected = s.find(s.selected.ID)
	}
	logger.Debug("reward projects loaded", zap.Int("total", len(all)), zap.Int("eligible", len(eligible)))
	return nil
}

// Reload re-issues the same fetch. It is the retry action of the section error.
func (s *Selector) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// Projects returns every eligible project.
func (s *Selector) Projects() []model.RewardProject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RewardProject, len(s.projects))
	copy(out, s.projects)
	return out
}

// Visible returns the eligible projects matching f, in backend order.
func (s *Selector) Visible(f Filter) []model.RewardProject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.RewardProject
	for _, p := range s.projects {
		if f.match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Select marks project id as the one carried into the rest of the workflow.
func (s *Selector) Select(id int64) (model.RewardProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(id)
	if p == nil {
		return model.RewardProject{}, errno.ErrProjectNotFound
	}
	s.selected = p
	return *p, nil
}

// Selected returns the current selection, if any.
func (s *Selector) Selected() (model.RewardProject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return model.RewardProject{}, false
	}
	return *s.selected, true
}

// Err is the last fetch error, nil after a successful load.
func (s *Selector) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Loaded reports whether at least one fetch succeeded.
func (s *Selector) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Selector) find(id int64) *model.RewardProject {
	for i := range s.projects {
		if s.projects[i].ID == id {
			p := s.projects[i]
			return &p
		}
	}
	return nil
}
