package dto

import "remotion_studio/internal/domain/models"

type AddTrackRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"max=255"`
	Kind string `json:"kind" validate:"required,oneof=image video audio text"`
}

func (r AddTrackRequest) Track() models.Track {
	return models.Track{ID: r.ID, Name: r.Name, Kind: models.ClipKind(r.Kind)}
}

type AddClipRequest struct {
	ID               string         `json:"id" validate:"required"`
	SceneID          string         `json:"sceneId,omitempty"`
	Kind             string         `json:"kind" validate:"required,oneof=image video audio text"`
	Src              string         `json:"src,omitempty"`
	StartFrame       int            `json:"startFrame" validate:"gte=0"`
	DurationInFrames int            `json:"durationInFrames" validate:"gt=0"`
	Props            map[string]any `json:"props,omitempty"`
}

func (r AddClipRequest) Clip() models.Clip {
	return models.Clip{
		ID:               r.ID,
		SceneID:          r.SceneID,
		Kind:             models.ClipKind(r.Kind),
		Src:              r.Src,
		StartFrame:       r.StartFrame,
		DurationInFrames: r.DurationInFrames,
		Props:            r.Props,
	}
}

type MoveClipRequest struct {
	StartFrame int `json:"startFrame" validate:"gte=0"`
}

type TrimClipRequest struct {
	DurationInFrames int `json:"durationInFrames" validate:"gt=0"`
}
