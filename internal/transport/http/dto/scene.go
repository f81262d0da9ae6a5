package dto

import "remotion_studio/internal/domain/models"

type CreateSceneRequest struct {
	SceneNumber int     `json:"sceneNumber,omitempty" validate:"gte=0"`
	Title       string  `json:"title" validate:"max=255"`
	Description string  `json:"description,omitempty"`
	ImagePrompt string  `json:"imagePrompt,omitempty"`
	VideoPrompt string  `json:"videoPrompt,omitempty"`
	Duration    float64 `json:"duration,omitempty" validate:"gte=0"`
}

func (r CreateSceneRequest) Input() models.SceneInput {
	return models.SceneInput{
		SceneNumber: r.SceneNumber,
		Title:       r.Title,
		Description: r.Description,
		ImagePrompt: r.ImagePrompt,
		VideoPrompt: r.VideoPrompt,
		Duration:    r.Duration,
	}
}

type UpdateSceneRequest struct {
	SceneNumber *int     `json:"sceneNumber,omitempty" validate:"omitempty,gte=1"`
	Title       *string  `json:"title,omitempty" validate:"omitempty,max=255"`
	Description *string  `json:"description,omitempty"`
	ImagePrompt *string  `json:"imagePrompt,omitempty"`
	VideoPrompt *string  `json:"videoPrompt,omitempty"`
	Duration    *float64 `json:"duration,omitempty" validate:"omitempty,gte=0"`
}

func (r UpdateSceneRequest) Patch() models.ScenePatch {
	return models.ScenePatch{
		SceneNumber: r.SceneNumber,
		Title:       r.Title,
		Description: r.Description,
		ImagePrompt: r.ImagePrompt,
		VideoPrompt: r.VideoPrompt,
		Duration:    r.Duration,
	}
}

type RenameSceneRequest struct {
	Title string `json:"title" validate:"max=255"`
}

type ImportScenesRequest struct {
	Scenes     []models.ImportRecord `json:"scenes" validate:"required,min=1,dive"`
	Strategy   string                `json:"strategy" validate:"required,oneof=skip overwrite renumber"`
	ServerSide bool                  `json:"serverSide,omitempty"`
}

type ToggleImageRequest struct {
	ImageID string `json:"imageId" validate:"required"`
}

type AttachImageRequest struct {
	ID       string         `json:"id" validate:"required"`
	URL      string         `json:"url" validate:"required,url"`
	Provider string         `json:"provider,omitempty"`
	Prompt   string         `json:"prompt,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (r AttachImageRequest) Image() models.GeneratedImage {
	return models.GeneratedImage{
		ID:       r.ID,
		URL:      r.URL,
		Provider: r.Provider,
		Prompt:   r.Prompt,
		Metadata: r.Metadata,
	}
}

type AttachVideoRequest struct {
	ID       string         `json:"id" validate:"required"`
	URL      string         `json:"url" validate:"required,url"`
	Provider string         `json:"provider,omitempty"`
	Prompt   string         `json:"prompt,omitempty"`
	Duration float64        `json:"duration,omitempty" validate:"gte=0"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (r AttachVideoRequest) Video() models.GeneratedVideo {
	return models.GeneratedVideo{
		ID:       r.ID,
		URL:      r.URL,
		Provider: r.Provider,
		Prompt:   r.Prompt,
		Duration: r.Duration,
		Metadata: r.Metadata,
	}
}
