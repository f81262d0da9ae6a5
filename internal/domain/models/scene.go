package models

import (
	"sort"
	"time"
)

// Scene is one numbered storyboard beat of a project.
type Scene struct {
	ID               string           `json:"id"`
	ProjectID        string           `json:"projectId"`
	SceneNumber      int              `json:"sceneNumber"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	ImagePrompt      string           `json:"imagePrompt,omitempty"`
	VideoPrompt      string           `json:"videoPrompt,omitempty"`
	Duration         float64          `json:"duration,omitempty"`
	GeneratedImages  []GeneratedImage `json:"generatedImages"`
	GeneratedVideos  []GeneratedVideo `json:"generatedVideos"`
	SelectedImageIDs []string         `json:"selectedImageIds"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// SceneInput is the body of a scene creation request. A zero SceneNumber
// lets the server allocate the next free number.
type SceneInput struct {
	ProjectID   string  `json:"projectId" validate:"required"`
	SceneNumber int     `json:"sceneNumber,omitempty" validate:"gte=0"`
	Title       string  `json:"title" validate:"max=255"`
	Description string  `json:"description,omitempty"`
	ImagePrompt string  `json:"imagePrompt,omitempty"`
	VideoPrompt string  `json:"videoPrompt,omitempty"`
	Duration    float64 `json:"duration,omitempty" validate:"gte=0"`
}

// ScenePatch carries the mutable scene fields; nil fields are left untouched.
// The media lists, when set, replace the scene's lists wholesale.
type ScenePatch struct {
	SceneNumber     *int             `json:"sceneNumber,omitempty" validate:"omitempty,gte=1"`
	Title           *string          `json:"title,omitempty" validate:"omitempty,max=255"`
	Description     *string          `json:"description,omitempty"`
	ImagePrompt     *string          `json:"imagePrompt,omitempty"`
	VideoPrompt     *string          `json:"videoPrompt,omitempty"`
	Duration        *float64         `json:"duration,omitempty" validate:"omitempty,gte=0"`
	GeneratedImages []GeneratedImage `json:"generatedImages,omitempty"`
	GeneratedVideos []GeneratedVideo `json:"generatedVideos,omitempty"`
}

// SelectionUpdate is the wire body of the image-selection PATCH.
type SelectionUpdate struct {
	SelectedImageIDs    []string        `json:"selectedImageIds"`
	ImageSelectionState map[string]bool `json:"imageSelectionState"`
}

func NewSelectionUpdate(ids []string) SelectionUpdate {
	state := make(map[string]bool, len(ids))
	for _, id := range ids {
		state[id] = true
	}
	return SelectionUpdate{
		SelectedImageIDs:    append([]string{}, ids...),
		ImageSelectionState: state,
	}
}

func (s Scene) Clone() Scene {
	out := s
	if s.GeneratedImages != nil {
		out.GeneratedImages = make([]GeneratedImage, len(s.GeneratedImages))
		for i := range s.GeneratedImages {
			out.GeneratedImages[i] = s.GeneratedImages[i].Clone()
		}
	}
	if s.GeneratedVideos != nil {
		out.GeneratedVideos = make([]GeneratedVideo, len(s.GeneratedVideos))
		for i := range s.GeneratedVideos {
			out.GeneratedVideos[i] = s.GeneratedVideos[i].Clone()
		}
	}
	if s.SelectedImageIDs != nil {
		out.SelectedImageIDs = append([]string{}, s.SelectedImageIDs...)
	}
	return out
}

// ImageIDs returns the ids of the scene's images in display order.
func (s Scene) ImageIDs() []string {
	ids := make([]string, 0, len(s.GeneratedImages))
	for _, img := range s.GeneratedImages {
		ids = append(ids, img.ID)
	}
	return ids
}

func (s Scene) HasImage(id string) bool {
	for _, img := range s.GeneratedImages {
		if img.ID == id {
			return true
		}
	}
	return false
}

// Apply returns a copy of the scene with the patch fields written over it.
func (p ScenePatch) Apply(s Scene) Scene {
	out := s.Clone()
	if p.SceneNumber != nil {
		out.SceneNumber = *p.SceneNumber
	}
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.ImagePrompt != nil {
		out.ImagePrompt = *p.ImagePrompt
	}
	if p.VideoPrompt != nil {
		out.VideoPrompt = *p.VideoPrompt
	}
	if p.Duration != nil {
		out.Duration = *p.Duration
	}
	if p.GeneratedImages != nil {
		out.GeneratedImages = Scene{GeneratedImages: p.GeneratedImages}.Clone().GeneratedImages
	}
	if p.GeneratedVideos != nil {
		out.GeneratedVideos = Scene{GeneratedVideos: p.GeneratedVideos}.Clone().GeneratedVideos
	}
	return out
}

func (i SceneInput) Patch() ScenePatch {
	p := ScenePatch{
		Title:       &i.Title,
		Description: &i.Description,
		ImagePrompt: &i.ImagePrompt,
		VideoPrompt: &i.VideoPrompt,
	}
	if i.Duration > 0 {
		p.Duration = &i.Duration
	}
	return p
}

func CloneScenes(scenes []Scene) []Scene {
	if scenes == nil {
		return nil
	}
	out := make([]Scene, len(scenes))
	for i := range scenes {
		out[i] = scenes[i].Clone()
	}
	return out
}

// SortScenes orders scenes by number, keeping the relative order of equal
// numbers.
func SortScenes(scenes []Scene) {
	sort.SliceStable(scenes, func(i, j int) bool {
		return scenes[i].SceneNumber < scenes[j].SceneNumber
	})
}

func MaxSceneNumber(scenes []Scene) int {
	max := 0
	for _, s := range scenes {
		if s.SceneNumber > max {
			max = s.SceneNumber
		}
	}
	return max
}

// DuplicateSceneNumbers reports every scene number used more than once.
func DuplicateSceneNumbers(scenes []Scene) []int {
	seen := make(map[int]int, len(scenes))
	var dups []int
	for _, s := range scenes {
		seen[s.SceneNumber]++
		if seen[s.SceneNumber] == 2 {
			dups = append(dups, s.SceneNumber)
		}
	}
	sort.Ints(dups)
	return dups
}
