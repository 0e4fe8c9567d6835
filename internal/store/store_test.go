package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nick-dorsch/tracker/internal/history"
	"github.com/nick-dorsch/tracker/pkg/models"
)

var day = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) *time.Time {
	t := day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	return &t
}

func newStore() *Store {
	return New(history.NewTracker())
}

func newTask(name string, start *time.Time, d time.Duration) *models.Task {
	return &models.Task{Name: name, Description: name + " description", Status: models.TaskStatusNew, StartTime: start, Duration: d}
}

func newSubTask(name string, epicID int, status models.TaskStatus, start *time.Time, d time.Duration) *models.Task {
	return &models.Task{Name: name, Status: status, EpicID: epicID, StartTime: start, Duration: d}
}

func TestTaskCRUD(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	task := newTask("write report", at(10, 0), 30*time.Minute)
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if task.ID != 1 {
		t.Errorf("Expected ID 1, got %d", task.ID)
	}
	if task.Kind != models.KindTask {
		t.Errorf("Expected kind TASK, got %s", task.Kind)
	}

	fetched, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if fetched.Name != "write report" {
		t.Errorf("Expected name write report, got %s", fetched.Name)
	}

	fetched.Description = "updated description"
	if err := s.UpdateTask(ctx, fetched); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}
	got, _ := s.GetTask(ctx, task.ID)
	if got.Description != "updated description" {
		t.Errorf("Expected updated description, got %s", got.Description)
	}
	if p := s.Prioritized(ctx); len(p) != 1 || p[0].ID != task.ID {
		t.Errorf("Expected task to stay in the time index, got %v", p)
	}

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}
	if _, err := s.GetTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if len(s.Prioritized(ctx)) != 0 {
		t.Error("Expected deleted task to leave the time index")
	}
}

func TestNotFound(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	var nf *NotFoundError
	if _, err := s.GetEpic(ctx, 42); !errors.As(err, &nf) || nf.ID != 42 {
		t.Errorf("Expected NotFoundError for 42, got %v", err)
	}
	if err := s.UpdateTask(ctx, &models.Task{ID: 7, Name: "x", Status: models.TaskStatusNew}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on update, got %v", err)
	}
	if err := s.DeleteSubTask(ctx, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on delete, got %v", err)
	}
	if err := s.CreateSubTask(ctx, newSubTask("orphan", 99, models.TaskStatusNew, nil, 0)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for dangling epic id, got %v", err)
	}
	if len(s.ListSubTasks(ctx)) != 0 {
		t.Error("Orphan subtask must not be stored")
	}

	task := newTask("a", nil, 0)
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if _, err := s.GetEpic(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected task id to be unknown as an epic, got %v", err)
	}
	if _, err := s.Get(ctx, task.ID); err != nil {
		t.Errorf("Expected Get to resolve any kind, got %v", err)
	}
}

func TestValidation(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	cases := []struct {
		name string
		task *models.Task
	}{
		{"missing name", &models.Task{Status: models.TaskStatusNew}},
		{"bad status", &models.Task{Name: "x", Status: "LATER"}},
		{"negative duration", &models.Task{Name: "x", Status: models.TaskStatusNew, Duration: -time.Minute}},
		{"wrong kind", &models.Task{Name: "x", Status: models.TaskStatusNew, Kind: models.KindEpic}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ve *ValidationError
			if err := s.CreateTask(ctx, tc.task); !errors.As(err, &ve) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}
	if err := s.CreateTask(ctx, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for nil, got %v", err)
	}

	first := newTask("first", nil, 0)
	if err := s.CreateTask(ctx, first); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	dup := newTask("dup", nil, 0)
	dup.ID = first.ID
	if err := s.CreateTask(ctx, dup); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for a taken id, got %v", err)
	}
}

func TestEpicStatusScenario(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	epic := &models.Task{Name: "release"}
	if err := s.CreateEpic(ctx, epic); err != nil {
		t.Fatalf("Failed to create epic: %v", err)
	}
	if epic.Status != models.TaskStatusNew {
		t.Errorf("Expected NEW for empty epic, got %s", epic.Status)
	}

	if err := s.CreateSubTask(ctx, newSubTask("s1", epic.ID, models.TaskStatusNew, nil, 0)); err != nil {
		t.Fatalf("Failed to create subtask: %v", err)
	}
	e, _ := s.GetEpic(ctx, epic.ID)
	if e.Status != models.TaskStatusNew {
		t.Errorf("Expected NEW with one NEW subtask, got %s", e.Status)
	}

	s2 := newSubTask("s2", epic.ID, models.TaskStatusDone, nil, 0)
	if err := s.CreateSubTask(ctx, s2); err != nil {
		t.Fatalf("Failed to create subtask: %v", err)
	}
	e, _ = s.GetEpic(ctx, epic.ID)
	if e.Status != models.TaskStatusInProgress {
		t.Errorf("Expected IN_PROGRESS with mixed subtasks, got %s", e.Status)
	}
	if len(e.SubTaskIDs) != 2 || e.SubTaskIDs[1] != s2.ID {
		t.Errorf("Expected subtasks in insertion order, got %v", e.SubTaskIDs)
	}

	subs, err := s.EpicSubTasks(ctx, epic.ID)
	if err != nil {
		t.Fatalf("Failed to list epic subtasks: %v", err)
	}
	for _, sub := range subs {
		sub.Status = models.TaskStatusDone
		if err := s.UpdateSubTask(ctx, sub); err != nil {
			t.Fatalf("Failed to update subtask: %v", err)
		}
	}
	e, _ = s.GetEpic(ctx, epic.ID)
	if e.Status != models.TaskStatusDone {
		t.Errorf("Expected DONE when all subtasks are done, got %s", e.Status)
	}

	if err := s.DeleteSubTask(ctx, s2.ID); err != nil {
		t.Fatalf("Failed to delete subtask: %v", err)
	}
	s.DeleteAllSubTasks(ctx)
	e, _ = s.GetEpic(ctx, epic.ID)
	if e.Status != models.TaskStatusNew || len(e.SubTaskIDs) != 0 {
		t.Errorf("Expected reset epic, got %s with %v", e.Status, e.SubTaskIDs)
	}
}

func TestEpicUpdateKeepsDerivedFields(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	epic := &models.Task{Name: "epic"}
	s.CreateEpic(ctx, epic)
	s.CreateSubTask(ctx, newSubTask("s", epic.ID, models.TaskStatusDone, at(9, 0), time.Hour))

	update := &models.Task{ID: epic.ID, Name: "renamed", Description: "d", Status: models.TaskStatusNew}
	if err := s.UpdateEpic(ctx, update); err != nil {
		t.Fatalf("Failed to update epic: %v", err)
	}
	if update.Status != models.TaskStatusDone || len(update.SubTaskIDs) != 1 {
		t.Errorf("Expected derived fields to survive, got %s %v", update.Status, update.SubTaskIDs)
	}
	if update.StartTime == nil || !update.StartTime.Equal(*at(9, 0)) {
		t.Errorf("Expected start 09:00, got %v", update.StartTime)
	}
}

func TestOverlapRejected(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	a := newTask("A", at(10, 0), 30*time.Minute)
	if err := s.CreateTask(ctx, a); err != nil {
		t.Fatalf("Failed to create A: %v", err)
	}

	b := newTask("B", at(10, 15), 30*time.Minute)
	err := s.CreateTask(ctx, b)
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.With != a.ID {
		t.Fatalf("Expected ConflictError with A, got %v", err)
	}
	if tasks := s.ListTasks(ctx); len(tasks) != 1 || tasks[0].ID != a.ID {
		t.Errorf("Expected only A to be stored, got %d tasks", len(tasks))
	}

	adjacent := newTask("C", at(10, 30), 30*time.Minute)
	if err := s.CreateTask(ctx, adjacent); err != nil {
		t.Errorf("Expected adjacent task to be accepted, got %v", err)
	}
	unscheduled := newTask("D", nil, time.Hour)
	if err := s.CreateTask(ctx, unscheduled); err != nil {
		t.Errorf("Expected unscheduled task to be accepted, got %v", err)
	}
}

func TestUpdateConflictRollsBack(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	a := newTask("A", at(10, 0), 30*time.Minute)
	b := newTask("B", at(11, 0), 30*time.Minute)
	s.CreateTask(ctx, a)
	s.CreateTask(ctx, b)

	before := s.Prioritized(ctx)

	moved := b.Clone()
	moved.StartTime = at(10, 10)
	moved.Name = "B moved"
	if err := s.UpdateTask(ctx, moved); !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}

	got, _ := s.GetTask(ctx, b.ID)
	if got.Name != "B" || !got.StartTime.Equal(*at(11, 0)) {
		t.Errorf("Expected B unchanged, got %s at %v", got.Name, got.StartTime)
	}
	after := s.Prioritized(ctx)
	if len(after) != len(before) {
		t.Fatalf("Expected %d indexed items, got %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Errorf("Expected index order unchanged, got %v", after)
		}
	}

	// Moving B within its own old slot is not a conflict with itself.
	shift := b.Clone()
	shift.StartTime = at(11, 10)
	if err := s.UpdateTask(ctx, shift); err != nil {
		t.Errorf("Expected self-overlapping update to succeed, got %v", err)
	}
}

func TestSubTaskSchedulingAgainstOwnEpic(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	epic := &models.Task{Name: "epic"}
	s.CreateEpic(ctx, epic)

	s1 := newSubTask("s1", epic.ID, models.TaskStatusNew, at(9, 0), time.Hour)
	s2 := newSubTask("s2", epic.ID, models.TaskStatusNew, at(12, 0), time.Hour)
	if err := s.CreateSubTask(ctx, s1); err != nil {
		t.Fatalf("Failed to create s1: %v", err)
	}
	if err := s.CreateSubTask(ctx, s2); err != nil {
		t.Fatalf("Failed to create s2: %v", err)
	}

	// Inside the epic span but clear of siblings.
	s3 := newSubTask("s3", epic.ID, models.TaskStatusNew, at(10, 30), time.Hour)
	if err := s.CreateSubTask(ctx, s3); err != nil {
		t.Fatalf("Expected sibling gap to be usable, got %v", err)
	}

	e, _ := s.GetEpic(ctx, epic.ID)
	if !e.StartTime.Equal(*at(9, 0)) || !e.EndTime().Equal(*at(13, 0)) {
		t.Errorf("Expected epic span 09:00-13:00, got %v-%v", e.StartTime, e.EndTime())
	}
	if e.Duration != 3*time.Hour {
		t.Errorf("Expected epic duration 3h, got %s", e.Duration)
	}

	// A standalone task falling inside the epic span conflicts with the epic.
	task := newTask("t", at(10, 10), 10*time.Minute)
	var ce *ConflictError
	if err := s.CreateTask(ctx, task); !errors.As(err, &ce) || ce.With != epic.ID {
		t.Errorf("Expected conflict with the epic, got %v", err)
	}

	clash := newSubTask("clash", epic.ID, models.TaskStatusNew, at(9, 30), time.Hour)
	if err := s.CreateSubTask(ctx, clash); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected sibling overlap to be rejected, got %v", err)
	}
}

func TestSubTaskMovesBetweenEpics(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	e1 := &models.Task{Name: "e1"}
	e2 := &models.Task{Name: "e2"}
	s.CreateEpic(ctx, e1)
	s.CreateEpic(ctx, e2)

	sub := newSubTask("s", e1.ID, models.TaskStatusDone, at(9, 0), time.Hour)
	s.CreateSubTask(ctx, sub)

	moved := sub.Clone()
	moved.EpicID = e2.ID
	if err := s.UpdateSubTask(ctx, moved); err != nil {
		t.Fatalf("Failed to move subtask: %v", err)
	}

	g1, _ := s.GetEpic(ctx, e1.ID)
	g2, _ := s.GetEpic(ctx, e2.ID)
	if len(g1.SubTaskIDs) != 0 || g1.StartTime != nil || g1.Status != models.TaskStatusNew {
		t.Errorf("Expected e1 emptied, got %v %v %s", g1.SubTaskIDs, g1.StartTime, g1.Status)
	}
	if len(g2.SubTaskIDs) != 1 || g2.Status != models.TaskStatusDone || g2.StartTime == nil {
		t.Errorf("Expected e2 to own the subtask, got %v %s", g2.SubTaskIDs, g2.Status)
	}

	bad := moved.Clone()
	bad.EpicID = 999
	if err := s.UpdateSubTask(ctx, bad); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown epic, got %v", err)
	}
}

func TestCascadeDelete(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	epic := &models.Task{Name: "epic"}
	s.CreateEpic(ctx, epic)
	s1 := newSubTask("s1", epic.ID, models.TaskStatusNew, at(9, 0), time.Hour)
	s2 := newSubTask("s2", epic.ID, models.TaskStatusNew, nil, 0)
	s.CreateSubTask(ctx, s1)
	s.CreateSubTask(ctx, s2)
	other := newTask("other", at(15, 0), time.Hour)
	s.CreateTask(ctx, other)

	s.GetSubTask(ctx, s1.ID)
	s.GetSubTask(ctx, s2.ID)
	s.GetEpic(ctx, epic.ID)
	s.GetTask(ctx, other.ID)

	if err := s.DeleteEpic(ctx, epic.ID); err != nil {
		t.Fatalf("Failed to delete epic: %v", err)
	}

	if len(s.ListSubTasks(ctx)) != 0 {
		t.Error("Expected subtasks removed with their epic")
	}
	for _, id := range []int{s1.ID, s2.ID, epic.ID} {
		if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected %d to be gone, got %v", id, err)
		}
	}
	h := s.History(ctx)
	if len(h) != 1 || h[0].ID != other.ID {
		t.Errorf("Expected history to keep only the task, got %d entries", len(h))
	}
	p := s.Prioritized(ctx)
	if len(p) != 1 || p[0].ID != other.ID {
		t.Errorf("Expected time index to keep only the task, got %d entries", len(p))
	}
}

func TestDeleteAll(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	epic := &models.Task{Name: "epic"}
	s.CreateEpic(ctx, epic)
	sub := newSubTask("s", epic.ID, models.TaskStatusNew, at(9, 0), time.Hour)
	s.CreateSubTask(ctx, sub)
	task := newTask("t", at(11, 0), time.Hour)
	s.CreateTask(ctx, task)
	s.GetTask(ctx, task.ID)
	s.GetSubTask(ctx, sub.ID)

	s.DeleteAllTasks(ctx)
	if len(s.ListTasks(ctx)) != 0 {
		t.Error("Expected no tasks")
	}
	if h := s.History(ctx); len(h) != 1 || h[0].ID != sub.ID {
		t.Errorf("Expected only subtask in history, got %d entries", len(h))
	}

	s.DeleteAllEpics(ctx)
	if len(s.ListEpics(ctx)) != 0 || len(s.ListSubTasks(ctx)) != 0 {
		t.Error("Expected epics and subtasks cleared")
	}
	if len(s.History(ctx)) != 0 || len(s.Prioritized(ctx)) != 0 {
		t.Error("Expected history and time index cleared")
	}
}

func TestHistoryScenario(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	x := newTask("X", nil, 0)
	y := newTask("Y", nil, 0)
	s.CreateTask(ctx, x)
	s.CreateTask(ctx, y)

	s.GetTask(ctx, x.ID)
	s.GetTask(ctx, x.ID)
	s.GetTask(ctx, y.ID)

	h := s.History(ctx)
	if len(h) != 2 {
		t.Fatalf("Expected history length 2, got %d", len(h))
	}
	if h[0].ID != x.ID || h[1].ID != y.ID {
		t.Errorf("Expected [X Y], got [%d %d]", h[0].ID, h[1].ID)
	}

	s.DeleteTask(ctx, x.ID)
	h = s.History(ctx)
	if len(h) != 1 || h[0].ID != y.ID {
		t.Errorf("Expected X dropped from history, got %d entries", len(h))
	}
}

func TestSnapshotsAreDetached(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	task := newTask("original", at(8, 0), time.Hour)
	s.CreateTask(ctx, task)
	task.Name = "caller edit after create"

	got, _ := s.GetTask(ctx, task.ID)
	if got.Name != "original" {
		t.Errorf("Expected stored name original, got %s", got.Name)
	}
	got.Name = "caller edit after get"
	*got.StartTime = got.StartTime.Add(time.Hour)

	again, _ := s.GetTask(ctx, task.ID)
	if again.Name != "original" || !again.StartTime.Equal(*at(8, 0)) {
		t.Errorf("Expected stored task untouched, got %s at %v", again.Name, again.StartTime)
	}
	if h := s.History(ctx); h[0].Name != "original" {
		t.Errorf("Expected history entry untouched, got %s", h[0].Name)
	}
}

func TestIDsAreMonotonic(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	a := newTask("a", nil, 0)
	e := &models.Task{Name: "e"}
	s.CreateTask(ctx, a)
	s.CreateEpic(ctx, e)
	s.DeleteTask(ctx, a.ID)
	s.DeleteEpic(ctx, e.ID)

	b := newTask("b", nil, 0)
	s.CreateTask(ctx, b)
	if b.ID <= e.ID {
		t.Errorf("Expected id after %d, got %d", e.ID, b.ID)
	}

	explicit := newTask("explicit", nil, 0)
	explicit.ID = 50
	if err := s.CreateTask(ctx, explicit); err != nil {
		t.Fatalf("Failed to create task with explicit id: %v", err)
	}
	next := newTask("next", nil, 0)
	s.CreateTask(ctx, next)
	if next.ID != 51 {
		t.Errorf("Expected counter to continue at 51, got %d", next.ID)
	}
}

func TestPrioritizedOrder(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	late := newTask("late", at(15, 0), time.Hour)
	early := newTask("early", at(8, 0), time.Hour)
	none := newTask("none", nil, time.Hour)
	s.CreateTask(ctx, late)
	s.CreateTask(ctx, early)
	s.CreateTask(ctx, none)

	p := s.Prioritized(ctx)
	if len(p) != 2 || p[0].ID != early.ID || p[1].ID != late.ID {
		t.Errorf("Expected [early late], got %d items", len(p))
	}
}

func TestRestore(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	items := []*models.Task{
		{ID: 4, Kind: models.KindTask, Name: "t", Status: models.TaskStatusNew, StartTime: at(8, 0), Duration: time.Hour},
		{ID: 1, Kind: models.KindEpic, Name: "e", Status: models.TaskStatusNew},
		{ID: 3, Kind: models.KindSubTask, Name: "s2", Status: models.TaskStatusDone, EpicID: 1},
		{ID: 2, Kind: models.KindSubTask, Name: "s1", Status: models.TaskStatusNew, EpicID: 1, StartTime: at(10, 0), Duration: time.Hour},
	}
	if err := s.Restore(ctx, items); err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}

	e, err := s.GetEpic(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get epic: %v", err)
	}
	if len(e.SubTaskIDs) != 2 || e.SubTaskIDs[0] != 3 || e.SubTaskIDs[1] != 2 {
		t.Errorf("Expected child list [3 2], got %v", e.SubTaskIDs)
	}
	if e.Status != models.TaskStatusInProgress {
		t.Errorf("Expected IN_PROGRESS, got %s", e.Status)
	}
	if p := s.Prioritized(ctx); len(p) != 3 {
		t.Errorf("Expected task, subtask and epic indexed, got %d", len(p))
	}

	next := newTask("next", nil, 0)
	s.CreateTask(ctx, next)
	if next.ID != 5 {
		t.Errorf("Expected next id 5, got %d", next.ID)
	}

	dangling := []*models.Task{{ID: 1, Kind: models.KindSubTask, Name: "s", Status: models.TaskStatusNew, EpicID: 9}}
	if err := s.Restore(ctx, dangling); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for dangling epic, got %v", err)
	}
	if len(s.ListTasks(ctx)) != 2 {
		t.Error("Expected failed restore to leave the store untouched")
	}
}

func TestOnChange(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	calls := 0
	s.SetOnChange(func(ctx context.Context) {
		calls++
		// The hook runs outside the lock, so reading back is safe.
		s.All(ctx)
	})

	task := newTask("t", nil, 0)
	s.CreateTask(ctx, task)
	s.GetTask(ctx, task.ID)
	s.CreateTask(ctx, &models.Task{Status: models.TaskStatusNew})
	if calls != 1 {
		t.Errorf("Expected hook only on successful mutation, got %d calls", calls)
	}

	s.SetOnChange(nil)
	s.DeleteTask(ctx, task.ID)
	if calls != 1 {
		t.Errorf("Expected cleared hook to be skipped, got %d calls", calls)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	epic := &models.Task{Name: "epic"}
	s.CreateEpic(ctx, epic)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := newSubTask("s", epic.ID, models.TaskStatusNew, nil, time.Minute)
			if err := s.CreateSubTask(ctx, sub); err != nil {
				t.Errorf("Failed to create subtask: %v", err)
				return
			}
			s.GetSubTask(ctx, sub.ID)
			s.History(ctx)
		}()
	}
	wg.Wait()

	e, _ := s.GetEpic(ctx, epic.ID)
	if len(e.SubTaskIDs) != 20 || e.Duration != 20*time.Minute {
		t.Errorf("Expected 20 subtasks totalling 20m, got %d and %s", len(e.SubTaskIDs), e.Duration)
	}
}

func TestSubTaskUpdateConflictRollsBack(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	first := &models.Task{Name: "first"}
	second := &models.Task{Name: "second"}
	s.CreateEpic(ctx, first)
	s.CreateEpic(ctx, second)

	a := newSubTask("a", first.ID, models.TaskStatusNew, at(10, 0), 30*time.Minute)
	b := newSubTask("b", second.ID, models.TaskStatusDone, at(12, 0), 30*time.Minute)
	s.CreateSubTask(ctx, a)
	s.CreateSubTask(ctx, b)
	busy := newTask("busy", at(14, 0), time.Hour)
	if err := s.CreateTask(ctx, busy); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	epicsBefore := s.ListEpics(ctx)
	before := s.Prioritized(ctx)

	tests := []struct {
		name   string
		epicID int
		start  *time.Time
	}{
		{"same epic", first.ID, at(14, 30)},
		{"move to other epic", second.ID, at(14, 10)},
		{"move onto sibling", second.ID, at(12, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			moved := a.Clone()
			moved.EpicID = tt.epicID
			moved.StartTime = tt.start
			moved.Name = "a moved"
			if err := s.UpdateSubTask(ctx, moved); !errors.Is(err, ErrConflict) {
				t.Fatalf("Expected ErrConflict, got %v", err)
			}

			subs := s.ListSubTasks(ctx)
			if len(subs) != 2 || subs[0].Name != "a" || subs[0].EpicID != first.ID || !subs[0].StartTime.Equal(*at(10, 0)) {
				t.Errorf("Expected subtask a unchanged, got %+v", subs[0])
			}

			epics := s.ListEpics(ctx)
			for i, e := range epics {
				want := epicsBefore[i]
				if !slices.Equal(e.SubTaskIDs, want.SubTaskIDs) {
					t.Errorf("Expected epic %d children %v, got %v", e.ID, want.SubTaskIDs, e.SubTaskIDs)
				}
				if e.Status != want.Status || e.Duration != want.Duration ||
					!e.StartTime.Equal(*want.StartTime) || !e.EndTime().Equal(*want.EndTime()) {
					t.Errorf("Expected epic %d span unchanged, got %s %s from %v", e.ID, e.Status, e.Duration, e.StartTime)
				}
			}

			after := s.Prioritized(ctx)
			if len(after) != len(before) {
				t.Fatalf("Expected %d indexed items, got %d", len(before), len(after))
			}
			for i := range before {
				if before[i].ID != after[i].ID || !before[i].StartTime.Equal(*after[i].StartTime) {
					t.Errorf("Expected index unchanged, got %v", after)
				}
			}
		})
	}
}

func TestFieldsOfOtherKindsAreDropped(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	epic := &models.Task{Name: "epic", EpicID: 9}
	s.CreateEpic(ctx, epic)

	task := newTask("task", nil, 0)
	task.EpicID = epic.ID
	task.SubTaskIDs = []int{1}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	sub := newSubTask("sub", epic.ID, models.TaskStatusNew, nil, 0)
	sub.SubTaskIDs = []int{task.ID}
	if err := s.CreateSubTask(ctx, sub); err != nil {
		t.Fatalf("Failed to create subtask: %v", err)
	}

	gotTask, _ := s.GetTask(ctx, task.ID)
	if gotTask.EpicID != 0 || gotTask.SubTaskIDs != nil {
		t.Errorf("Expected task without epic or children, got %+v", gotTask)
	}
	gotSub, _ := s.GetSubTask(ctx, sub.ID)
	if gotSub.EpicID != epic.ID || gotSub.SubTaskIDs != nil {
		t.Errorf("Expected subtask with epic only, got %+v", gotSub)
	}
	gotEpic, _ := s.GetEpic(ctx, epic.ID)
	if gotEpic.EpicID != 0 || !slices.Equal(gotEpic.SubTaskIDs, []int{sub.ID}) {
		t.Errorf("Expected epic with its own children only, got %+v", gotEpic)
	}

	update := gotTask.Clone()
	update.EpicID = epic.ID
	if err := s.UpdateTask(ctx, update); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}
	if update.EpicID != 0 {
		t.Errorf("Expected update to drop epic id, got %d", update.EpicID)
	}
}
