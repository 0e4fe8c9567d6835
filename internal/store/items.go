package store

import (
	"context"
	"slices"

	"github.com/nick-dorsch/tracker/pkg/models"
)

// prepare normalizes the kind tag of in and validates its fields.
func prepare(in *models.Task, kind models.Kind) error {
	if in == nil {
		return invalidf("%s is required", kind)
	}
	if in.Kind == "" {
		in.Kind = kind
	}
	if in.Kind != kind {
		return invalidf("expected %s, got %s", kind, in.Kind)
	}
	// Only epics own child ids and only subtasks point at an epic.
	if kind != models.KindEpic {
		in.SubTaskIDs = nil
	}
	if kind != models.KindSubTask {
		in.EpicID = 0
	}
	if err := in.Validate(); err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	return nil
}

func (s *Store) create(ctx context.Context, in *models.Task, kind models.Kind) error {
	if err := prepare(in, kind); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ID != 0 {
		if _, taken := s.lookup(in.ID, ""); taken {
			return invalidf("id %d is already in use", in.ID)
		}
	}

	stored := in.Clone()
	var epic *models.Task

	switch kind {
	case models.KindTask:
		if err := s.conflict(stored); err != nil {
			return err
		}
	case models.KindEpic:
		stored.SubTaskIDs = nil
	case models.KindSubTask:
		var ok bool
		if epic, ok = s.epics[stored.EpicID]; !ok {
			return notFound(models.KindEpic, stored.EpicID)
		}
		if err := s.conflict(stored, epic.ID); err != nil {
			return err
		}
	}

	if stored.ID == 0 {
		s.lastID++
		stored.ID = s.lastID
	} else {
		s.lastID = max(s.lastID, stored.ID)
	}

	s.mapFor(kind)[stored.ID] = stored
	switch kind {
	case models.KindEpic:
		s.refreshEpic(stored)
	case models.KindSubTask:
		s.index.Insert(stored)
		epic.SubTaskIDs = append(epic.SubTaskIDs, stored.ID)
		s.refreshEpic(epic)
	default:
		s.index.Insert(stored)
	}

	*in = *stored.Clone()
	s.logger.DebugContext(ctx, "item created", "id", stored.ID, "kind", kind)
	return nil
}

func (s *Store) update(ctx context.Context, in *models.Task, kind models.Kind) error {
	if err := prepare(in, kind); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.mapFor(kind)[in.ID]
	if !ok {
		return notFound(kind, in.ID)
	}

	var stored *models.Task

	switch kind {
	case models.KindTask:
		stored = in.Clone()
		s.index.Remove(old.ID)
		if err := s.conflict(stored); err != nil {
			s.index.Insert(old)
			return err
		}
		s.tasks[stored.ID] = stored
		s.index.Insert(stored)

	case models.KindEpic:
		// Only the descriptive fields are caller-owned.
		stored = old.Clone()
		stored.Name = in.Name
		stored.Description = in.Description
		s.epics[stored.ID] = stored
		s.refreshEpic(stored)

	case models.KindSubTask:
		newEpic, ok := s.epics[in.EpicID]
		if !ok {
			return notFound(models.KindEpic, in.EpicID)
		}
		stored = in.Clone()
		s.index.Remove(old.ID)
		if err := s.conflict(stored, old.EpicID, newEpic.ID); err != nil {
			s.index.Insert(old)
			return err
		}
		s.subtasks[stored.ID] = stored
		s.index.Insert(stored)

		if old.EpicID != stored.EpicID {
			if oldEpic, ok := s.epics[old.EpicID]; ok {
				oldEpic.SubTaskIDs = slices.DeleteFunc(oldEpic.SubTaskIDs, func(id int) bool {
					return id == stored.ID
				})
				s.refreshEpic(oldEpic)
			}
			newEpic.SubTaskIDs = append(newEpic.SubTaskIDs, stored.ID)
		}
		s.refreshEpic(newEpic)
	}

	*in = *stored.Clone()
	s.logger.DebugContext(ctx, "item updated", "id", stored.ID, "kind", kind)
	return nil
}

func (s *Store) delete(ctx context.Context, id int, kind models.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.mapFor(kind)[id]
	if !ok {
		return notFound(kind, id)
	}

	switch kind {
	case models.KindEpic:
		for _, subID := range t.SubTaskIDs {
			s.drop(s.subtasks, subID)
		}
		t.SubTaskIDs = nil
	case models.KindSubTask:
		if epic, ok := s.epics[t.EpicID]; ok {
			epic.SubTaskIDs = slices.DeleteFunc(epic.SubTaskIDs, func(sid int) bool {
				return sid == id
			})
			s.refreshEpic(epic)
		}
	}
	s.drop(s.mapFor(kind), id)

	s.logger.DebugContext(ctx, "item deleted", "id", id, "kind", kind)
	return nil
}

// drop removes id from m, the time index and the history.
func (s *Store) drop(m map[int]*models.Task, id int) {
	delete(m, id)
	s.index.Remove(id)
	s.history.Remove(id)
}

func (s *Store) deleteAll(ctx context.Context, kind models.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case models.KindTask:
		s.dropAll(s.tasks)
	case models.KindSubTask:
		s.dropAllSubTasks()
	case models.KindEpic:
		s.dropAllSubTasks()
		s.dropAll(s.epics)
	}

	s.logger.DebugContext(ctx, "items cleared", "kind", kind)
}

func (s *Store) dropAll(m map[int]*models.Task) {
	for id := range m {
		s.drop(m, id)
	}
}

func (s *Store) dropAllSubTasks() {
	s.dropAll(s.subtasks)
	for _, epic := range s.epics {
		epic.SubTaskIDs = nil
		s.refreshEpic(epic)
	}
}
