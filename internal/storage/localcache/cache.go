// Package localcache is the durable fallback used when a server round trip
// fails. Values are stored JSON-encoded, so a read never aliases a write.
package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"remotion_studio/internal/storage"
)

const keyPrefix = "remotion-"

type Cache interface {
	// Get decodes the value stored at key into dst. It returns
	// storage.ErrorNoSuchKey when nothing is stored.
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

func ProjectKey(projectID string) string  { return keyPrefix + "project-" + projectID }
func TimelineKey(projectID string) string { return keyPrefix + "timeline-" + projectID }
func SettingsKey(projectID string) string { return keyPrefix + "settings-" + projectID }
func HistoryKey(projectID string) string  { return keyPrefix + "history-" + projectID }

// ProjectKeys lists every fallback key owned by a project.
func ProjectKeys(projectID string) []string {
	return []string{
		ProjectKey(projectID),
		TimelineKey(projectID),
		SettingsKey(projectID),
		HistoryKey(projectID),
	}
}

func encode(value any) ([]byte, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidValue, err)
	}
	return b, nil
}

func decode(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidValue, err)
	}
	return nil
}

func IsMiss(err error) bool {
	return errors.Is(err, storage.ErrorNoSuchKey)
}
