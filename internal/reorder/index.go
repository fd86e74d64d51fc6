// Package reorder plans and submits drag-and-drop moves of tasks between
// day lists, keeping each day's order values contiguous from zero.
package reorder

import (
	"sort"

	"daybook/internal/models"
)

// Index holds one owner's tasks by id.
type Index map[string]models.Task

// NewIndex builds an index from a task listing.
func NewIndex(tasks []models.Task) Index {
	ix := make(Index, len(tasks))
	for _, t := range tasks {
		ix[t.ID] = t
	}
	return ix
}

// Clone returns an independent copy.
func (ix Index) Clone() Index {
	out := make(Index, len(ix))
	for id, t := range ix {
		out[id] = t
	}
	return out
}

// Day returns the tasks due on day in display sequence: ascending order,
// then creation time, then id.
func (ix Index) Day(day string) []models.Task {
	var seq []models.Task
	for _, t := range ix {
		if t.DueDate == day {
			seq = append(seq, t)
		}
	}
	SortDay(seq)
	return seq
}

// Tasks returns every task ordered by day then sequence.
func (ix Index) Tasks() []models.Task {
	out := make([]models.Task, 0, len(ix))
	for _, t := range ix {
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DueDate != out[j].DueDate {
			return out[i].DueDate < out[j].DueDate
		}
		return less(out[i], out[j])
	})
	return out
}

// Apply writes the batch into the index. Updates for unknown ids are ignored.
func (ix Index) Apply(b Batch) {
	for _, u := range b {
		t, ok := ix[u.TaskID]
		if !ok {
			continue
		}
		ix[u.TaskID] = u.Patch().Apply(t)
	}
}

// SortDay sorts tasks of a single day into display sequence.
func SortDay(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
}

func less(a, b models.Task) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
