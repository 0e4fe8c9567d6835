// Package history records which work items were read, most recent last,
// keeping at most one entry per item id.
package history

import "github.com/nick-dorsch/tracker/pkg/models"

const nilSlot = -1

type node struct {
	task *models.Task
	prev int
	next int
}

// Tracker is a doubly linked list stored in a slot table. index maps an item
// id to its slot so lookup and unlink are O(1). Freed slots are reused.
// A Tracker is not safe for concurrent use.
type Tracker struct {
	nodes []node
	free  []int
	index map[int]int
	head  int
	tail  int
	limit int
}

type Option func(*Tracker)

// WithLimit caps the number of entries; the oldest is evicted when a new id
// would exceed it. A limit of zero or less means unbounded.
func WithLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.limit = n
		}
	}
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		index: make(map[int]int),
		head:  nilSlot,
		tail:  nilSlot,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record appends a copy of task as the most recent entry. An existing entry
// for the same id is dropped first.
func (t *Tracker) Record(task *models.Task) {
	if slot, ok := t.index[task.ID]; ok {
		t.unlink(slot)
	} else if t.limit > 0 && len(t.index) >= t.limit {
		t.unlink(t.head)
	}
	t.index[task.ID] = t.pushBack(task.Clone())
}

// Remove drops the entry for id, if any.
func (t *Tracker) Remove(id int) {
	if slot, ok := t.index[id]; ok {
		t.unlink(slot)
	}
}

// List returns copies of all entries from oldest to newest access.
func (t *Tracker) List() []*models.Task {
	out := make([]*models.Task, 0, len(t.index))
	for slot := t.head; slot != nilSlot; slot = t.nodes[slot].next {
		out = append(out, t.nodes[slot].task.Clone())
	}
	return out
}

func (t *Tracker) Len() int {
	return len(t.index)
}

// Clear drops every entry.
func (t *Tracker) Clear() {
	t.nodes = nil
	t.free = nil
	clear(t.index)
	t.head, t.tail = nilSlot, nilSlot
}

func (t *Tracker) pushBack(task *models.Task) int {
	n := node{task: task, prev: t.tail, next: nilSlot}

	var slot int
	if last := len(t.free) - 1; last >= 0 {
		slot = t.free[last]
		t.free = t.free[:last]
		t.nodes[slot] = n
	} else {
		slot = len(t.nodes)
		t.nodes = append(t.nodes, n)
	}

	if t.tail == nilSlot {
		t.head = slot
	} else {
		t.nodes[t.tail].next = slot
	}
	t.tail = slot
	return slot
}

func (t *Tracker) unlink(slot int) {
	n := t.nodes[slot]
	if n.prev == nilSlot {
		t.head = n.next
	} else {
		t.nodes[n.prev].next = n.next
	}
	if n.next == nilSlot {
		t.tail = n.prev
	} else {
		t.nodes[n.next].prev = n.prev
	}

	delete(t.index, n.task.ID)
	t.nodes[slot] = node{prev: nilSlot, next: nilSlot}
	t.free = append(t.free, slot)
}
