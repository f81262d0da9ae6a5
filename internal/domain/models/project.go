package models

import "time"

type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusArchived  ProjectStatus = "archived"
	ProjectStatusCompleted ProjectStatus = "completed"
)

type ProjectSettings struct {
	FPS                  int      `json:"fps,omitempty"`
	Width                int      `json:"width,omitempty"`
	Height               int      `json:"height,omitempty"`
	DefaultSceneDuration float64  `json:"defaultSceneDuration,omitempty"`
	Extra                Metadata `json:"extra,omitempty"`
}

// Project is the root of the aggregate: it owns its scenes exclusively.
type Project struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	Status      ProjectStatus   `json:"status,omitempty"`
	Scenes      []Scene         `json:"scenes"`
	Settings    ProjectSettings `json:"settings"`
	Metadata    Metadata        `json:"metadata,omitempty"`
	// Timeline is the last editor state the server accepted, if any.
	Timeline    *Timeline       `json:"timeline,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type ProjectInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=4000"`
	UserID      string          `json:"userId"`
	Status      ProjectStatus   `json:"status" validate:"omitempty,oneof=draft active archived completed"`
	Settings    ProjectSettings `json:"settings"`
	Metadata    Metadata        `json:"metadata,omitempty"`
}

// ProjectPatch carries the mutable project fields; nil fields are left
// untouched. Timeline is only sent by auto-save.
type ProjectPatch struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=4000"`
	Status      *ProjectStatus   `json:"status,omitempty" validate:"omitempty,oneof=draft active archived completed"`
	Settings    *ProjectSettings `json:"settings,omitempty"`
	Metadata    Metadata         `json:"metadata,omitempty"`
	Timeline    *Timeline        `json:"timeline,omitempty"`
}

type ProjectFilter struct {
	UserID string
	Page   int
	Limit  int
	Search string
	Status ProjectStatus
}

func (s ProjectSettings) Clone() ProjectSettings {
	s.Extra = s.Extra.Clone()
	return s
}

func (p Project) Clone() Project {
	out := p
	out.Scenes = CloneScenes(p.Scenes)
	out.Settings = p.Settings.Clone()
	out.Metadata = p.Metadata.Clone()
	out.Timeline = CloneTimeline(p.Timeline)
	return out
}

func (p *Project) SceneByID(id string) (*Scene, int) {
	for i := range p.Scenes {
		if p.Scenes[i].ID == id {
			return &p.Scenes[i], i
		}
	}
	return nil, -1
}

func (p *Project) SceneByNumber(n int) *Scene {
	for i := range p.Scenes {
		if p.Scenes[i].SceneNumber == n {
			return &p.Scenes[i]
		}
	}
	return nil
}

// Apply returns a copy of the project with the patch fields written over it.
func (pp ProjectPatch) Apply(p Project) Project {
	out := p.Clone()
	if pp.Name != nil {
		out.Name = *pp.Name
	}
	if pp.Description != nil {
		out.Description = *pp.Description
	}
	if pp.Status != nil {
		out.Status = *pp.Status
	}
	if pp.Settings != nil {
		out.Settings = pp.Settings.Clone()
	}
	if pp.Metadata != nil {
		out.Metadata = pp.Metadata.Clone()
	}
	if pp.Timeline != nil {
		out.Timeline = CloneTimeline(pp.Timeline)
	}
	return out
}

func CloneProjects(projects []Project) []Project {
	if projects == nil {
		return nil
	}
	out := make([]Project, len(projects))
	for i := range projects {
		out[i] = projects[i].Clone()
	}
	return out
}
