package models

import (
	"fmt"
	"strings"
)

type ConflictStrategy string

const (
	ConflictSkip      ConflictStrategy = "skip"
	ConflictOverwrite ConflictStrategy = "overwrite"
	ConflictRenumber  ConflictStrategy = "renumber"
)

func (s ConflictStrategy) Valid() bool {
	switch s {
	case ConflictSkip, ConflictOverwrite, ConflictRenumber:
		return true
	}
	return false
}

func (s ConflictStrategy) String() string {
	return string(s)
}

// ImportRecord is one row of a batch import, usually produced by the CSV
// parser upstream.
type ImportRecord struct {
	SceneNumber int     `json:"sceneNumber" validate:"gte=0"`
	Title       string  `json:"title" validate:"max=255"`
	Description string  `json:"description,omitempty"`
	ImagePrompt string  `json:"imagePrompt,omitempty"`
	VideoPrompt string  `json:"videoPrompt,omitempty"`
	Duration    float64 `json:"duration,omitempty" validate:"gte=0"`
}

func (r ImportRecord) Input(projectID string) SceneInput {
	return SceneInput{
		ProjectID:   projectID,
		SceneNumber: r.SceneNumber,
		Title:       r.Title,
		Description: r.Description,
		ImagePrompt: r.ImagePrompt,
		VideoPrompt: r.VideoPrompt,
		Duration:    r.Duration,
	}
}

type SkippedRecord struct {
	Index       int    `json:"index"`
	SceneNumber int    `json:"sceneNumber"`
	Title       string `json:"title,omitempty"`
	Reason      string `json:"reason"`
}

// ImportResult partitions the input records: every record lands in exactly
// one of the three lists.
type ImportResult struct {
	Created []Scene         `json:"created"`
	Updated []Scene         `json:"updated"`
	Skipped []SkippedRecord `json:"skipped"`
}

func (r ImportResult) Total() int {
	return len(r.Created) + len(r.Updated) + len(r.Skipped)
}

// Summary renders the per-record outcome breakdown shown to the user.
func (r ImportResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d created, %d updated, %d skipped", len(r.Created), len(r.Updated), len(r.Skipped))
	for _, s := range r.Skipped {
		fmt.Fprintf(&b, "; row %d (scene %d): %s", s.Index+1, s.SceneNumber, s.Reason)
	}
	return b.String()
}

// BatchImportRequest is the wire body of POST /scenes/batch-import.
type BatchImportRequest struct {
	ProjectID string           `json:"projectId"`
	Scenes    []ImportRecord   `json:"scenes"`
	Strategy  ConflictStrategy `json:"strategy"`
	Options   map[string]any   `json:"options,omitempty"`
}
