package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Kind tags which variant of work item a Task value holds.
type Kind string

const (
	KindTask    Kind = "TASK"
	KindEpic    Kind = "EPIC"
	KindSubTask Kind = "SUBTASK"
)

// ParseKind accepts a kind tag in any letter case.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindTask, KindEpic, KindSubTask:
		return k, true
	}
	return "", false
}

type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "NEW"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// ParseStatus accepts a status in any letter case.
func ParseStatus(s string) (TaskStatus, bool) {
	switch st := TaskStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case TaskStatusNew, TaskStatusInProgress, TaskStatusDone:
		return st, true
	}
	return "", false
}

// Task is a single work item. Kind selects the variant: only epics carry
// SubTaskIDs and only subtasks carry EpicID. For epics, Status, Duration,
// StartTime and End are derived from the subtasks.
type Task struct {
	ID          int
	Kind        Kind
	Name        string
	Description string
	Status      TaskStatus
	Duration    time.Duration
	StartTime   *time.Time

	// EpicID is the owning epic of a subtask.
	EpicID int

	// SubTaskIDs lists an epic's subtasks in insertion order.
	SubTaskIDs []int

	// End is the derived end of an epic (latest subtask end).
	End *time.Time
}

// EndTime returns StartTime+Duration, or the derived end for an epic.
// It is nil when no start time is set.
func (t *Task) EndTime() *time.Time {
	if t.Kind == KindEpic {
		if t.End == nil {
			return nil
		}
		end := *t.End
		return &end
	}
	if t.StartTime == nil {
		return nil
	}
	end := t.StartTime.Add(t.Duration)
	return &end
}

// Scheduled reports whether the item has a start time.
func (t *Task) Scheduled() bool {
	return t.StartTime != nil
}

// Clone returns a deep copy that shares no memory with t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.StartTime != nil {
		start := *t.StartTime
		c.StartTime = &start
	}
	if t.End != nil {
		end := *t.End
		c.End = &end
	}
	c.SubTaskIDs = slices.Clone(t.SubTaskIDs)
	return &c
}

// Validate checks the fields a caller must provide before the item reaches
// the store. Epic status and timing are derived, so they are not checked.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if t.ID < 0 {
		return fmt.Errorf("id must not be negative: %d", t.ID)
	}
	switch t.Kind {
	case KindTask, KindSubTask:
		if _, ok := ParseStatus(string(t.Status)); !ok {
			return fmt.Errorf("invalid status %q", t.Status)
		}
		if t.Duration < 0 {
			return fmt.Errorf("duration must not be negative: %s", t.Duration)
		}
	case KindEpic:
	default:
		return fmt.Errorf("invalid kind %q", t.Kind)
	}
	if t.Kind == KindSubTask && t.EpicID <= 0 {
		return fmt.Errorf("epic_id is required for a subtask")
	}
	return nil
}

type taskJSON struct {
	ID          int        `json:"id"`
	Kind        Kind       `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Duration    string     `json:"duration,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	EpicID      int        `json:"epic_id,omitempty"`
	SubTaskIDs  []int      `json:"subtask_ids,omitempty"`
}

// MarshalJSON writes durations as Go duration strings ("30m0s") and includes
// the computed end time.
func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(taskJSON{
		ID:          t.ID,
		Kind:        t.Kind,
		Name:        t.Name,
		Description: t.Description,
		Status:      t.Status,
		Duration:    t.Duration.String(),
		StartTime:   t.StartTime,
		EndTime:     t.EndTime(),
		EpicID:      t.EpicID,
		SubTaskIDs:  t.SubTaskIDs,
	})
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var raw taskJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var d time.Duration
	if raw.Duration != "" {
		parsed, err := time.ParseDuration(raw.Duration)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw.Duration, err)
		}
		d = parsed
	}
	*t = Task{
		ID:          raw.ID,
		Kind:        raw.Kind,
		Name:        raw.Name,
		Description: raw.Description,
		Status:      raw.Status,
		Duration:    d,
		StartTime:   raw.StartTime,
		EpicID:      raw.EpicID,
		SubTaskIDs:  raw.SubTaskIDs,
	}
	if t.Kind == KindEpic {
		t.End = raw.EndTime
	}
	return nil
}
