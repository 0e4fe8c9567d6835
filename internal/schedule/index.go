// Package schedule keeps the ordered set of work items that have a start time
// and answers interval overlap queries against it.
package schedule

import (
	"cmp"
	"slices"
	"time"

	"github.com/nick-dorsch/tracker/pkg/models"
)

// IsOverlapping reports whether the half-open intervals [start, end) of a and
// b intersect. Unscheduled items and zero-length intervals never overlap.
func IsOverlapping(a, b *models.Task) bool {
	aEnd, bEnd := a.EndTime(), b.EndTime()
	if aEnd == nil || bEnd == nil {
		return false
	}
	return intersects(*a.StartTime, *aEnd, *b.StartTime, *bEnd)
}

func intersects(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aStart.Before(aEnd) || !bStart.Before(bEnd) {
		return false
	}
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

type entry struct {
	id    int
	kind  models.Kind
	start time.Time
	end   time.Time
}

// compareEntries orders by start time, then id.
func compareEntries(a, b entry) int {
	if c := a.start.Compare(b.start); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

// Index is an ordered collection of scheduled items. It is not safe for
// concurrent use; the owning store serializes access.
type Index struct {
	entries []entry
	byID    map[int]entry
}

func NewIndex() *Index {
	return &Index{byID: make(map[int]entry)}
}

// Insert adds t to the index, replacing any previous entry with the same id.
// An item without a start time is removed instead.
func (ix *Index) Insert(t *models.Task) {
	ix.Remove(t.ID)
	end := t.EndTime()
	if end == nil {
		return
	}
	e := entry{id: t.ID, kind: t.Kind, start: *t.StartTime, end: *end}
	pos, _ := slices.BinarySearchFunc(ix.entries, e, compareEntries)
	ix.entries = slices.Insert(ix.entries, pos, e)
	ix.byID[t.ID] = e
}

// Remove drops the entry for id and reports whether one was present.
func (ix *Index) Remove(id int) bool {
	e, ok := ix.byID[id]
	if !ok {
		return false
	}
	pos, found := slices.BinarySearchFunc(ix.entries, e, compareEntries)
	if found {
		ix.entries = slices.Delete(ix.entries, pos, pos+1)
	}
	delete(ix.byID, id)
	return true
}

func (ix *Index) Contains(id int) bool {
	_, ok := ix.byID[id]
	return ok
}

func (ix *Index) Len() int {
	return len(ix.entries)
}

// Overlapping returns the id of the first indexed item whose interval
// intersects candidate's, skipping ids for which skip returns true.
// The candidate's own id is always skipped.
func (ix *Index) Overlapping(candidate *models.Task, skip func(id int) bool) (int, bool) {
	end := candidate.EndTime()
	if end == nil {
		return 0, false
	}
	start := *candidate.StartTime
	for _, e := range ix.entries {
		if !e.start.Before(*end) {
			break
		}
		if e.id == candidate.ID || (skip != nil && skip(e.id)) {
			continue
		}
		if intersects(start, *end, e.start, e.end) {
			return e.id, true
		}
	}
	return 0, false
}

// Ordered returns the indexed ids by start time, then id.
func (ix *Index) Ordered() []int {
	ids := make([]int, len(ix.entries))
	for i, e := range ix.entries {
		ids[i] = e.id
	}
	return ids
}

// Clear empties the index.
func (ix *Index) Clear() {
	ix.entries = nil
	clear(ix.byID)
}
