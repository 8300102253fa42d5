package domain

import "time"

// TaskStatus values are the wire strings the polling endpoint returns.
type TaskStatus string

const (
	TaskQueued     TaskStatus = "queued"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskError      TaskStatus = "error"
)

// Terminal reports whether the status can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskError
}

// GenerationTask tracks one asynchronous (re)generation. A beatmap has at
// most one task in a non-terminal status at a time; terminal records are
// retained for a window so late polls still resolve.
type GenerationTask struct {
	ID        string
	BeatmapID string
	Status    TaskStatus
	Progress  int
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
