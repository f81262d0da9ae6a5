package dto

import "remotion_studio/internal/domain/models"

type CreateProjectRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Status      string                 `json:"status,omitempty" validate:"omitempty,oneof=draft active archived completed"`
	Settings    models.ProjectSettings `json:"settings"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
}

// Input leaves name checks to the store so an empty name is reported the
// same way from every caller.
func (r CreateProjectRequest) Input() models.ProjectInput {
	return models.ProjectInput{
		Name:        r.Name,
		Description: r.Description,
		Status:      models.ProjectStatus(r.Status),
		Settings:    r.Settings,
		Metadata:    r.Metadata,
	}
}

type UpdateProjectRequest struct {
	Name        *string                 `json:"name,omitempty"`
	Description *string                 `json:"description,omitempty"`
	Status      *string                 `json:"status,omitempty" validate:"omitempty,oneof=draft active archived completed"`
	Settings    *models.ProjectSettings `json:"settings,omitempty"`
	Metadata    map[string]any          `json:"metadata,omitempty"`
}

func (r UpdateProjectRequest) Patch() models.ProjectPatch {
	p := models.ProjectPatch{
		Name:        r.Name,
		Description: r.Description,
		Settings:    r.Settings,
		Metadata:    r.Metadata,
	}
	if r.Status != nil {
		st := models.ProjectStatus(*r.Status)
		p.Status = &st
	}
	return p
}

type ListProjectsQuery struct {
	Page   int    `query:"page" validate:"gte=0"`
	Limit  int    `query:"limit" validate:"gte=0,lte=100"`
	Search string `query:"search"`
	Status string `query:"status" validate:"omitempty,oneof=draft active archived completed"`
}

func (q ListProjectsQuery) Filter() models.ProjectFilter {
	return models.ProjectFilter{
		Page:   q.Page,
		Limit:  q.Limit,
		Search: q.Search,
		Status: models.ProjectStatus(q.Status),
	}
}
