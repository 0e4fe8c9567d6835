// Package store holds tasks, epics and subtasks in memory. It assigns ids,
// rejects schedules that overlap, keeps epics consistent with their subtasks
// and records read access in a history tracker.
package store

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/nick-dorsch/tracker/internal/aggregate"
	"github.com/nick-dorsch/tracker/internal/history"
	"github.com/nick-dorsch/tracker/internal/schedule"
	"github.com/nick-dorsch/tracker/pkg/models"
)

// Store is safe for concurrent use. Every operation runs under one mutex so
// the maps, the time index and the history list change together.
type Store struct {
	mu       sync.Mutex
	lastID   int
	tasks    map[int]*models.Task
	epics    map[int]*models.Task
	subtasks map[int]*models.Task
	index    *schedule.Index
	history  *history.Tracker
	logger   *slog.Logger

	onChange   func(ctx context.Context)
	onChangeMu sync.RWMutex
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an empty store that records reads into h.
func New(h *history.Tracker, opts ...Option) *Store {
	if h == nil {
		h = history.NewTracker()
	}
	s := &Store{
		tasks:    make(map[int]*models.Task),
		epics:    make(map[int]*models.Task),
		subtasks: make(map[int]*models.Task),
		index:    schedule.NewIndex(),
		history:  h,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOnChange registers fn to run after every successful mutation, outside
// the store lock.
func (s *Store) SetOnChange(fn func(ctx context.Context)) {
	s.onChangeMu.Lock()
	defer s.onChangeMu.Unlock()
	s.onChange = fn
}

func (s *Store) triggerChange(ctx context.Context) {
	s.onChangeMu.RLock()
	fn := s.onChange
	s.onChangeMu.RUnlock()

	if fn != nil {
		fn(ctx)
	}
}

func (s *Store) mapFor(kind models.Kind) map[int]*models.Task {
	switch kind {
	case models.KindTask:
		return s.tasks
	case models.KindEpic:
		return s.epics
	case models.KindSubTask:
		return s.subtasks
	}
	return nil
}

// lookup finds id in the map for kind, or in any map when kind is empty.
func (s *Store) lookup(id int, kind models.Kind) (*models.Task, bool) {
	if kind != "" {
		t, ok := s.mapFor(kind)[id]
		return t, ok
	}
	for _, m := range []map[int]*models.Task{s.tasks, s.epics, s.subtasks} {
		if t, ok := m[id]; ok {
			return t, true
		}
	}
	return nil, false
}

// refreshEpic recomputes epic from its current subtasks and repositions it
// in the time index.
func (s *Store) refreshEpic(epic *models.Task) {
	subs := make([]*models.Task, 0, len(epic.SubTaskIDs))
	for _, id := range epic.SubTaskIDs {
		if sub, ok := s.subtasks[id]; ok {
			subs = append(subs, sub)
		}
	}
	aggregate.Epic(epic, subs)
	s.index.Insert(epic)
}

// conflict returns a ConflictError when candidate overlaps an indexed item
// other than those in skip.
func (s *Store) conflict(candidate *models.Task, skip ...int) error {
	with, ok := s.index.Overlapping(candidate, func(id int) bool {
		return slices.Contains(skip, id)
	})
	if !ok {
		return nil
	}
	return &ConflictError{ID: candidate.ID, With: with}
}

// Get returns a copy of the item with id, whatever its kind, and records it
// in the history.
func (s *Store) Get(ctx context.Context, id int) (*models.Task, error) {
	return s.get(ctx, id, "")
}

func (s *Store) get(ctx context.Context, id int, kind models.Kind) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.lookup(id, kind)
	if !ok {
		return nil, notFound(kind, id)
	}
	snapshot := t.Clone()
	s.history.Record(snapshot)
	s.logger.DebugContext(ctx, "item read", "id", id, "kind", t.Kind)
	return snapshot, nil
}

func (s *Store) list(kind models.Kind) []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedClones(s.mapFor(kind))
}

func sortedClones(m map[int]*models.Task) []*models.Task {
	ids := slices.Sorted(maps.Keys(m))
	out := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id].Clone())
	}
	return out
}

// History returns the read history from oldest to most recent access.
func (s *Store) History(ctx context.Context) []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.List()
}

// Prioritized returns every scheduled item ordered by start time, then id.
func (s *Store) Prioritized(ctx context.Context) []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.index.Ordered()
	out := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.lookup(id, ""); ok {
			out = append(out, t.Clone())
		}
	}
	return out
}

// All returns copies of every item: tasks and epics ordered by id, then
// subtasks grouped by epic in each epic's child order, so Restore rebuilds
// the same child lists.
func (s *Store) All(ctx context.Context) []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := sortedClones(s.tasks)
	epics := sortedClones(s.epics)
	out = append(out, epics...)
	for _, e := range epics {
		for _, id := range e.SubTaskIDs {
			if sub, ok := s.subtasks[id]; ok {
				out = append(out, sub.Clone())
			}
		}
	}
	return out
}

// Restore replaces the store contents with items loaded from persistence.
// Overlap checks are skipped; ids are kept and the counter continues after
// the highest one. Epic child lists are rebuilt from subtask order.
func (s *Store) Restore(ctx context.Context, items []*models.Task) error {
	tasks := make(map[int]*models.Task)
	epics := make(map[int]*models.Task)
	subtasks := make(map[int]*models.Task)
	seen := make(map[int]bool)
	var subOrder []int
	lastID := 0

	for _, it := range items {
		if it.ID <= 0 {
			return invalidf("%s %q has no id", it.Kind, it.Name)
		}
		if seen[it.ID] {
			return invalidf("duplicate id %d", it.ID)
		}
		seen[it.ID] = true
		lastID = max(lastID, it.ID)

		c := it.Clone()
		switch c.Kind {
		case models.KindTask:
			tasks[c.ID] = c
		case models.KindEpic:
			c.SubTaskIDs = nil
			epics[c.ID] = c
		case models.KindSubTask:
			subtasks[c.ID] = c
			subOrder = append(subOrder, c.ID)
		default:
			return invalidf("unknown kind %q for id %d", c.Kind, c.ID)
		}
	}

	for _, id := range subOrder {
		sub := subtasks[id]
		epic, ok := epics[sub.EpicID]
		if !ok {
			return notFound(models.KindEpic, sub.EpicID)
		}
		epic.SubTaskIDs = append(epic.SubTaskIDs, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks, s.epics, s.subtasks = tasks, epics, subtasks
	s.lastID = max(s.lastID, lastID)
	s.index.Clear()
	s.history.Clear()
	for _, t := range tasks {
		s.index.Insert(t)
	}
	for _, t := range subtasks {
		s.index.Insert(t)
	}
	for _, e := range epics {
		s.refreshEpic(e)
	}

	s.logger.InfoContext(ctx, "store restored",
		"tasks", len(tasks), "epics", len(epics), "subtasks", len(subtasks))
	return nil
}

// Counts reports how many items of each kind are stored.
func (s *Store) Counts() map[models.Kind]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[models.Kind]int{
		models.KindTask:    len(s.tasks),
		models.KindEpic:    len(s.epics),
		models.KindSubTask: len(s.subtasks),
	}
}
