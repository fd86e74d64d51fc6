package reorder

import (
	"errors"
	"fmt"

	"daybook/internal/models"
)

var (
	// ErrNoTask is returned when the source position holds no task.
	ErrNoTask = errors.New("no task at source position")
	// ErrFixedTask is returned when the source task may not be moved.
	ErrFixedTask = errors.New("fixed tasks cannot be moved")
	// ErrInvalidDay is returned for a malformed day key.
	ErrInvalidDay = errors.New("invalid day key")
)

// Move is a drag-and-drop event: the task at SourceIndex of SourceDay is
// dropped at DestIndex of DestDay. Indexes are positions in Index.Day order.
type Move struct {
	SourceDay   string `json:"sourceDay"`
	SourceIndex int    `json:"sourceIndex"`
	DestDay     string `json:"destDay"`
	DestIndex   int    `json:"destIndex"`
}

// Update carries the fields of one task that a move changed.
type Update struct {
	TaskID  string  `json:"id"`
	Order   *int    `json:"order,omitempty"`
	DueDate *string `json:"dueDate,omitempty"`
}

// Patch converts the update into a store patch.
func (u Update) Patch() models.TaskPatch {
	return models.TaskPatch{Order: u.Order, DueDate: u.DueDate}
}

// Batch is the set of per-task updates produced by one move.
type Batch []Update

// IDs lists the task ids in the batch.
func (b Batch) IDs() []string {
	ids := make([]string, len(b))
	for i, u := range b {
		ids[i] = u.TaskID
	}
	return ids
}

// Plan computes the updates that carry out m against ix. ix is not modified.
// Moving a task onto its own position yields an empty batch.
func Plan(ix Index, m Move) (Batch, error) {
	if err := checkDay(m.SourceDay); err != nil {
		return nil, err
	}
	if err := checkDay(m.DestDay); err != nil {
		return nil, err
	}

	source := ix.Day(m.SourceDay)
	if m.SourceIndex < 0 || m.SourceIndex >= len(source) {
		return nil, fmt.Errorf("%w: %s[%d]", ErrNoTask, m.SourceDay, m.SourceIndex)
	}
	moved := source[m.SourceIndex]
	if isFixed(moved) {
		return nil, fmt.Errorf("%w: %s", ErrFixedTask, moved.ID)
	}
	if m.SourceDay == m.DestDay && m.SourceIndex == m.DestIndex {
		return Batch{}, nil
	}

	rest := make([]models.Task, 0, len(source)-1)
	rest = append(rest, source[:m.SourceIndex]...)
	rest = append(rest, source[m.SourceIndex+1:]...)

	b := Batch{}
	if m.SourceDay == m.DestDay {
		b = append(b, renumber(insert(rest, moved, m.DestIndex), "", nil)...)
		return b, nil
	}

	b = append(b, renumber(rest, "", nil)...)
	dest := insert(ix.Day(m.DestDay), moved, m.DestIndex)
	b = append(b, renumber(dest, moved.ID, &m.DestDay)...)
	return b, nil
}

func insert(seq []models.Task, t models.Task, at int) []models.Task {
	if at < 0 {
		at = 0
	}
	if at > len(seq) {
		at = len(seq)
	}
	out := make([]models.Task, 0, len(seq)+1)
	out = append(out, seq[:at]...)
	out = append(out, t)
	return append(out, seq[at:]...)
}

// renumber assigns orders along seq and returns updates for tasks whose order
// changed. Fixed tasks keep their order and never appear in the batch; the
// movable tasks fill the remaining slots from zero in sequence. The task named
// movedID additionally receives dueDate.
func renumber(seq []models.Task, movedID string, dueDate *string) Batch {
	pinned := make(map[int]bool)
	for _, t := range seq {
		if isFixed(t) {
			pinned[t.Order] = true
		}
	}

	var b Batch
	slot := 0
	for _, t := range seq {
		if isFixed(t) {
			continue
		}
		for pinned[slot] {
			slot++
		}
		u := Update{TaskID: t.ID}
		if t.Order != slot {
			order := slot
			u.Order = &order
		}
		if t.ID == movedID && dueDate != nil && t.DueDate != *dueDate {
			day := *dueDate
			u.DueDate = &day
			if u.Order == nil {
				order := slot
				u.Order = &order
			}
		}
		if u.Order != nil || u.DueDate != nil {
			b = append(b, u)
		}
		slot++
	}
	return b
}

func isFixed(t models.Task) bool {
	return t.Fixed || t.Category == models.CategoryHoliday
}

func checkDay(day string) error {
	parsed, err := models.ParseDay(day)
	if err != nil || parsed != day {
		return fmt.Errorf("%w: %q", ErrInvalidDay, day)
	}
	return nil
}
