// Package consistency checks the store's cross-references after state
// transitions. Violations are reported, never raised; Plan derives the
// repair that removes them.
package consistency

import (
	"fmt"
	"sort"

	"remotion_studio/internal/domain/models"
)

type State struct {
	Projects       []models.Project
	CurrentProject *models.Project
	Timeline       *models.Timeline
	SelectionKeys  []string
}

// Repair lists the changes that make a State consistent.
type Repair struct {
	ClearCurrentProject bool
	UnbindTimeline      bool
	DropSelection       []string
}

func (r Repair) Empty() bool {
	return !r.ClearCurrentProject && !r.UnbindTimeline && len(r.DropSelection) == 0
}

// Check returns one message per violated rule instance, in a stable order.
func Check(s State) []string {
	var out []string

	if s.CurrentProject != nil && !listed(s.Projects, s.CurrentProject.ID) {
		out = append(out, fmt.Sprintf("current project %s is not in the project list", s.CurrentProject.ID))
	}

	for _, key := range orphans(s) {
		out = append(out, fmt.Sprintf("selection references scene %s which is not in the current project", key))
	}

	if s.Timeline != nil {
		switch {
		case s.CurrentProject == nil:
			out = append(out, fmt.Sprintf("timeline %s is bound while no project is current", s.Timeline.ID))
		case s.Timeline.ProjectID != s.CurrentProject.ID:
			out = append(out, fmt.Sprintf("timeline belongs to project %s but current project is %s",
				s.Timeline.ProjectID, s.CurrentProject.ID))
		}
	}

	return out
}

// Plan computes the repair for s. Applying it and checking again yields no
// violations, and planning on a consistent state yields an empty repair.
func Plan(s State) Repair {
	var r Repair

	current := s.CurrentProject
	if current != nil && !listed(s.Projects, current.ID) {
		r.ClearCurrentProject = true
		current = nil
	}

	if s.Timeline != nil && (current == nil || s.Timeline.ProjectID != current.ID) {
		r.UnbindTimeline = true
	}

	r.DropSelection = orphans(State{CurrentProject: current, SelectionKeys: s.SelectionKeys})

	return r
}

// Apply returns s with r applied.
func (r Repair) Apply(s State) State {
	if r.ClearCurrentProject {
		s.CurrentProject = nil
	}
	if r.UnbindTimeline {
		s.Timeline = nil
	}
	if len(r.DropSelection) > 0 {
		drop := make(map[string]struct{}, len(r.DropSelection))
		for _, k := range r.DropSelection {
			drop[k] = struct{}{}
		}
		keys := make([]string, 0, len(s.SelectionKeys))
		for _, k := range s.SelectionKeys {
			if _, ok := drop[k]; !ok {
				keys = append(keys, k)
			}
		}
		s.SelectionKeys = keys
	}
	return s
}

func listed(projects []models.Project, id string) bool {
	for i := range projects {
		if projects[i].ID == id {
			return true
		}
	}
	return false
}

func orphans(s State) []string {
	scenes := make(map[string]struct{})
	if s.CurrentProject != nil {
		for _, sc := range s.CurrentProject.Scenes {
			scenes[sc.ID] = struct{}{}
		}
	}

	var out []string
	for _, key := range s.SelectionKeys {
		if _, ok := scenes[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
