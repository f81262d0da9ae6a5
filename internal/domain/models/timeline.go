package models

import (
	"errors"
	"fmt"
)

var (
	ErrClipNotFound  = errors.New("clip not found")
	ErrTrackNotFound = errors.New("track not found")
	ErrTrackLocked   = errors.New("track is locked")
	ErrInvalidFrames = errors.New("invalid frame range")
)

type ClipKind string

const (
	ClipKindImage ClipKind = "image"
	ClipKindVideo ClipKind = "video"
	ClipKindAudio ClipKind = "audio"
	ClipKindText  ClipKind = "text"
)

// Timeline is the editable composition bound to a project. It is the
// aggregate the history manager snapshots.
type Timeline struct {
	ID               string  `json:"id"`
	ProjectID        string  `json:"projectId"`
	FPS              int     `json:"fps"`
	DurationInFrames int     `json:"durationInFrames"`
	Tracks           []Track `json:"tracks"`
}

type Track struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Kind   ClipKind `json:"kind"`
	Muted  bool     `json:"muted,omitempty"`
	Locked bool     `json:"locked,omitempty"`
	Clips  []Clip   `json:"clips"`
}

type Clip struct {
	ID               string   `json:"id"`
	SceneID          string   `json:"sceneId,omitempty"`
	Kind             ClipKind `json:"kind"`
	Src              string   `json:"src,omitempty"`
	StartFrame       int      `json:"startFrame"`
	DurationInFrames int      `json:"durationInFrames"`
	Props            Metadata `json:"props,omitempty"`
}

func (c Clip) Clone() Clip {
	c.Props = c.Props.Clone()
	return c
}

func (t Track) Clone() Track {
	out := t
	if t.Clips != nil {
		out.Clips = make([]Clip, len(t.Clips))
		for i := range t.Clips {
			out.Clips[i] = t.Clips[i].Clone()
		}
	}
	return out
}

func (t Timeline) Clone() Timeline {
	out := t
	if t.Tracks != nil {
		out.Tracks = make([]Track, len(t.Tracks))
		for i := range t.Tracks {
			out.Tracks[i] = t.Tracks[i].Clone()
		}
	}
	return out
}

// CloneTimeline copies a possibly nil timeline pointer.
func CloneTimeline(t *Timeline) *Timeline {
	if t == nil {
		return nil
	}
	c := t.Clone()
	return &c
}

// NewTimeline builds the default composition for a project: one video track
// holding a clip per scene, laid out back to back.
func NewTimeline(p Project) Timeline {
	fps := p.Settings.FPS
	if fps <= 0 {
		fps = 30
	}
	sceneSeconds := p.Settings.DefaultSceneDuration
	if sceneSeconds <= 0 {
		sceneSeconds = 5
	}

	track := Track{ID: "track-video", Name: "Video", Kind: ClipKindVideo, Clips: []Clip{}}
	frame := 0
	for _, s := range p.Scenes {
		seconds := s.Duration
		if seconds <= 0 {
			seconds = sceneSeconds
		}
		frames := int(seconds * float64(fps))
		track.Clips = append(track.Clips, Clip{
			ID:               "clip-" + s.ID,
			SceneID:          s.ID,
			Kind:             ClipKindVideo,
			StartFrame:       frame,
			DurationInFrames: frames,
		})
		frame += frames
	}

	return Timeline{
		ID:               "timeline-" + p.ID,
		ProjectID:        p.ID,
		FPS:              fps,
		DurationInFrames: frame,
		Tracks:           []Track{track},
	}
}

func (t *Timeline) findClip(clipID string) (*Track, int, error) {
	for i := range t.Tracks {
		for j := range t.Tracks[i].Clips {
			if t.Tracks[i].Clips[j].ID == clipID {
				return &t.Tracks[i], j, nil
			}
		}
	}
	return nil, -1, fmt.Errorf("%w: %s", ErrClipNotFound, clipID)
}

func (t *Timeline) track(trackID string) (*Track, error) {
	for i := range t.Tracks {
		if t.Tracks[i].ID == trackID {
			return &t.Tracks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
}

func (t *Timeline) AddTrack(track Track) {
	if track.Clips == nil {
		track.Clips = []Clip{}
	}
	t.Tracks = append(t.Tracks, track.Clone())
	t.Recompute()
}

func (t *Timeline) AddClip(trackID string, clip Clip) error {
	if clip.StartFrame < 0 || clip.DurationInFrames <= 0 {
		return ErrInvalidFrames
	}
	tr, err := t.track(trackID)
	if err != nil {
		return err
	}
	if tr.Locked {
		return ErrTrackLocked
	}
	tr.Clips = append(tr.Clips, clip.Clone())
	t.Recompute()
	return nil
}

func (t *Timeline) MoveClip(clipID string, startFrame int) error {
	if startFrame < 0 {
		return ErrInvalidFrames
	}
	tr, i, err := t.findClip(clipID)
	if err != nil {
		return err
	}
	if tr.Locked {
		return ErrTrackLocked
	}
	tr.Clips[i].StartFrame = startFrame
	t.Recompute()
	return nil
}

func (t *Timeline) TrimClip(clipID string, durationInFrames int) error {
	if durationInFrames <= 0 {
		return ErrInvalidFrames
	}
	tr, i, err := t.findClip(clipID)
	if err != nil {
		return err
	}
	if tr.Locked {
		return ErrTrackLocked
	}
	tr.Clips[i].DurationInFrames = durationInFrames
	t.Recompute()
	return nil
}

func (t *Timeline) RemoveClip(clipID string) error {
	tr, i, err := t.findClip(clipID)
	if err != nil {
		return err
	}
	if tr.Locked {
		return ErrTrackLocked
	}
	tr.Clips = append(tr.Clips[:i], tr.Clips[i+1:]...)
	t.Recompute()
	return nil
}

// RemoveSceneClips drops every clip bound to sceneID and reports how many
// were removed.
func (t *Timeline) RemoveSceneClips(sceneID string) int {
	removed := 0
	for i := range t.Tracks {
		kept := t.Tracks[i].Clips[:0]
		for _, c := range t.Tracks[i].Clips {
			if c.SceneID == sceneID {
				removed++
				continue
			}
			kept = append(kept, c)
		}
		t.Tracks[i].Clips = kept
	}
	if removed > 0 {
		t.Recompute()
	}
	return removed
}

// AppendScene adds a clip for s at the end of the first video track.
func (t *Timeline) AppendScene(s Scene, defaultSeconds float64) {
	fps := t.FPS
	if fps <= 0 {
		fps = 30
	}
	seconds := s.Duration
	if seconds <= 0 {
		seconds = defaultSeconds
	}
	if seconds <= 0 {
		seconds = 5
	}

	idx := -1
	for i := range t.Tracks {
		if t.Tracks[i].Kind == ClipKindVideo {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.Tracks = append(t.Tracks, Track{ID: "track-video", Name: "Video", Kind: ClipKindVideo, Clips: []Clip{}})
		idx = len(t.Tracks) - 1
	}

	end := 0
	for _, c := range t.Tracks[idx].Clips {
		if e := c.StartFrame + c.DurationInFrames; e > end {
			end = e
		}
	}

	t.Tracks[idx].Clips = append(t.Tracks[idx].Clips, Clip{
		ID:               "clip-" + s.ID,
		SceneID:          s.ID,
		Kind:             ClipKindVideo,
		StartFrame:       end,
		DurationInFrames: int(seconds * float64(fps)),
	})
	t.Recompute()
}

// Recompute sets DurationInFrames to the end of the last clip.
func (t *Timeline) Recompute() {
	end := 0
	for _, tr := range t.Tracks {
		for _, c := range tr.Clips {
			if e := c.StartFrame + c.DurationInFrames; e > end {
				end = e
			}
		}
	}
	t.DurationInFrames = end
}
