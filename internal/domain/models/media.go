package models

import (
	"fmt"
	"strings"
	"time"
)

type MediaKind string

type Metadata map[string]interface{}

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// GeneratedImage is an AI-generated still owned by exactly one scene.
type GeneratedImage struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Provider  string    `json:"provider,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// GeneratedVideo is an AI-generated clip owned by exactly one scene.
type GeneratedVideo struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Provider  string    `json:"provider,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy of the metadata tree. Nested maps and slices are
// copied; scalar leaves are shared since they are immutable.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneAny(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = cloneAny(e)
		}
		return out
	case Metadata:
		return t.Clone()
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = cloneAny(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func (i GeneratedImage) Clone() GeneratedImage {
	i.Metadata = i.Metadata.Clone()
	return i
}

func (v GeneratedVideo) Clone() GeneratedVideo {
	v.Metadata = v.Metadata.Clone()
	return v
}

// Validate checks the fields a provider result must carry before it can be
// attached to a scene.
func (i GeneratedImage) Validate() error {
	return validateMedia(MediaKindImage, i.ID, i.URL)
}

func (v GeneratedVideo) Validate() error {
	return validateMedia(MediaKindVideo, v.ID, v.URL)
}

func validateMedia(kind MediaKind, id, url string) error {
	var validationErrors []string

	if strings.TrimSpace(id) == "" {
		validationErrors = append(validationErrors, "id is required")
	}
	if strings.TrimSpace(url) == "" {
		validationErrors = append(validationErrors, "url is required")
	}

	if len(validationErrors) > 0 {
		return &MediaValidationError{
			Kind:   kind,
			Errors: validationErrors,
		}
	}

	return nil
}

type MediaValidationError struct {
	Kind   MediaKind
	Errors []string
}

func (e *MediaValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Kind, strings.Join(e.Errors, "; "))
}

func IsMediaValidationError(err error) bool {
	_, ok := err.(*MediaValidationError)
	return ok
}
