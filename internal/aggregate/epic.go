// Package aggregate derives an epic's status and time span from its subtasks.
package aggregate

import "github.com/nick-dorsch/tracker/pkg/models"

// Epic overwrites epic's Status, Duration, StartTime and End from subtasks.
//
// Status is NEW when there are no subtasks or all are NEW, DONE when all are
// DONE, and IN_PROGRESS otherwise. Duration is the sum of subtask durations.
// StartTime is the earliest subtask start and End the latest subtask end;
// both stay nil when no subtask is scheduled.
func Epic(epic *models.Task, subtasks []*models.Task) {
	var (
		newCount, doneCount int
		total               = len(subtasks)
	)

	epic.Duration = 0
	epic.StartTime = nil
	epic.End = nil

	for _, s := range subtasks {
		switch s.Status {
		case models.TaskStatusNew:
			newCount++
		case models.TaskStatusDone:
			doneCount++
		}

		epic.Duration += s.Duration

		if s.StartTime != nil && (epic.StartTime == nil || s.StartTime.Before(*epic.StartTime)) {
			start := *s.StartTime
			epic.StartTime = &start
		}
		if end := s.EndTime(); end != nil && (epic.End == nil || end.After(*epic.End)) {
			epic.End = end
		}
	}

	switch {
	case total == newCount:
		epic.Status = models.TaskStatusNew
	case total == doneCount:
		epic.Status = models.TaskStatusDone
	default:
		epic.Status = models.TaskStatusInProgress
	}
}
