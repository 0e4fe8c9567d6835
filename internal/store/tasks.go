package store

import (
	"context"

	"github.com/nick-dorsch/tracker/pkg/models"
)

// CreateTask stores a new standalone task. If t.ID is zero the next id is
// assigned. A scheduled task that overlaps another scheduled item is rejected
// with a ConflictError. On success t holds the stored values.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	if err := s.create(ctx, t, models.KindTask); err != nil {
		return err
	}
	s.triggerChange(ctx)
	return nil
}

// GetTask returns a copy of a task and records it in the history.
func (s *Store) GetTask(ctx context.Context, id int) (*models.Task, error) {
	return s.get(ctx, id, models.KindTask)
}

// UpdateTask replaces a task. When the new schedule overlaps another item
// the store is left exactly as it was.
func (s *Store) UpdateTask(ctx context.Context, t *models.Task) error {
	if err := s.update(ctx, t, models.KindTask); err != nil {
		return err
	}
	s.triggerChange(ctx)
	return nil
}

// DeleteTask removes a task along with its history entry.
func (s *Store) DeleteTask(ctx context.Context, id int) error {
	if err := s.delete(ctx, id, models.KindTask); err != nil {
		return err
	}
	s.triggerChange(ctx)
	return nil
}

// ListTasks returns copies of all tasks ordered by id.
func (s *Store) ListTasks(ctx context.Context) []*models.Task {
	return s.list(models.KindTask)
}

func (s *Store) DeleteAllTasks(ctx context.Context) {
	s.deleteAll(ctx, models.KindTask)
	s.triggerChange(ctx)
}

// CreateEpic stores a new epic. Its status and schedule are derived from
// subtasks, so values supplied for them are replaced.
func (s *Store) CreateEpic(ctx context.Context, e *models.Task) error {
	if err := s.create(ctx, e, models.KindEpic); err != nil {
		return err
	}
	s.triggerChange(ctx)
	return nil
}

func (s *Store) GetEpic(ctx context.Context, id int) (*models.Task, error) {
	return s.get(ctx, id, models.KindEpic)
}

// UpdateEpic changes an epic's name and description. Subtask membership and
// derived fields are kept.
func (s *Store) UpdateEpic(ctx context.Context, e *models.Task) error {
	if err := s.update(ctx, e, models.KindEpic); err != nil {
		return err
	}
	s.triggerChange(ctx)
	return nil
}

// DeleteEpic removes an epic and every one of its subtasks.
func (s *Store) DeleteEpic(ctx context.Context, id int) error {
	if err := s.delete(ctx, id, models.KindEpic); err != nil {
		return err
	}
	s.triggerChange(ctx)
	return nil
}

func (s *Store) ListEpics(ctx context.Context) []*models.Task {
	return s.list(models.KindEpic)
}

// DeleteAllEpics removes all epics and, with them, all subtasks.
func (s *Store) DeleteAllEpics(ctx context.Context) {
	s.deleteAll(ctx, models.KindEpic)
	s.triggerChange(ctx)
}

// EpicSubTasks returns copies of an epic's subtasks in insertion order.
// Reading them does not touch the history.
func (s *Store) EpicSubTasks(ctx context.Context, epicID int) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	epic, ok := s.epics[epicID]
	if !ok {
		return nil, notFound(models.KindEpic, epicID)
	}
	out := make([]*models.Task, 0, len(epic.SubTaskIDs))
	for _, id := range epic.SubTaskIDs {
		if sub, ok := s.subtasks[id]; ok {
			out = append(out, sub.Clone())
		}
	}
	return out, nil
}

// CreateSubTask stores a new subtask under the epic named by EpicID, which
// must exist, and re-derives that epic.
func (s *Store) CreateSubTask(ctx context.Context, st *models.Task) error {
	if err := s.create(ctx, st, models.KindSubTask); err != nil {
		return err
	}
	s.triggerChange(ctx)
	return nil
}

func (s *Store) GetSubTask(ctx context.Context, id int) (*models.Task, error) {
	return s.get(ctx, id, models.KindSubTask)
}

// UpdateSubTask replaces a subtask. A changed EpicID moves it to the other
// epic; both epics are re-derived.
func (s *Store) UpdateSubTask(ctx context.Context, st *models.Task) error {
	if err := s.update(ctx, st, models.KindSubTask); err != nil {
		return err
	}
	s.triggerChange(ctx)
	return nil
}

func (s *Store) DeleteSubTask(ctx context.Context, id int) error {
	if err := s.delete(ctx, id, models.KindSubTask); err != nil {
		return err
	}
	s.triggerChange(ctx)
	return nil
}

func (s *Store) ListSubTasks(ctx context.Context) []*models.Task {
	return s.list(models.KindSubTask)
}

// DeleteAllSubTasks removes every subtask and resets all epics.
func (s *Store) DeleteAllSubTasks(ctx context.Context) {
	s.deleteAll(ctx, models.KindSubTask)
	s.triggerChange(ctx)
}
