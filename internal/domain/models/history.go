package models

import "time"

type HistoryAction string

const (
	HistoryActionLoad      HistoryAction = "load"
	HistoryActionAddClip   HistoryAction = "add_clip"
	HistoryActionMoveClip  HistoryAction = "move_clip"
	HistoryActionTrimClip  HistoryAction = "trim_clip"
	HistoryActionRemove    HistoryAction = "remove_clip"
	HistoryActionAddTrack  HistoryAction = "add_track"
	HistoryActionEdit      HistoryAction = "edit"
	HistoryActionImport    HistoryAction = "import"
	HistoryActionReconcile HistoryAction = "reconcile"
)

// HistoryEntry is one undo step. Snapshot never shares memory with the live
// timeline or with any other entry.
type HistoryEntry struct {
	ID          string        `json:"id"`
	Timestamp   time.Time     `json:"timestamp"`
	Action      HistoryAction `json:"action"`
	Description string        `json:"description"`
	Snapshot    Timeline      `json:"snapshot"`
}

func (e HistoryEntry) Clone() HistoryEntry {
	e.Snapshot = e.Snapshot.Clone()
	return e
}
