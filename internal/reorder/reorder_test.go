package reorder

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daybook/internal/models"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func task(id, day string, order int) models.Task {
	return models.Task{ID: id, Title: id, DueDate: day, Order: order, Category: models.CategoryPersonal, CreatedAt: base}
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func ids(ts []models.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func assertContiguous(t *testing.T, ix Index, day string) {
	t.Helper()
	for i, tk := range ix.Day(day) {
		assert.Equal(t, i, tk.Order, "day %s position %d (%s)", day, i, tk.ID)
	}
}

func TestPlan_SameDayMoveToFront(t *testing.T) {
	ix := NewIndex([]models.Task{
		task("A", "2025-01-10", 0),
		task("B", "2025-01-10", 1),
		task("C", "2025-01-10", 2),
	})

	b, err := Plan(ix, Move{SourceDay: "2025-01-10", SourceIndex: 1, DestDay: "2025-01-10", DestIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, Batch{
		{TaskID: "B", Order: intp(0)},
		{TaskID: "A", Order: intp(1)},
	}, b)

	ix.Apply(b)
	assert.Equal(t, []string{"B", "A", "C"}, ids(ix.Day("2025-01-10")))
	assertContiguous(t, ix, "2025-01-10")
}

func TestPlan_CrossDayMove(t *testing.T) {
	ix := NewIndex([]models.Task{
		task("A", "2025-01-10", 0),
		task("B", "2025-01-10", 1),
		task("C", "2025-01-11", 0),
	})

	b, err := Plan(ix, Move{SourceDay: "2025-01-10", SourceIndex: 0, DestDay: "2025-01-11", DestIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, Batch{
		{TaskID: "B", Order: intp(0)},
		{TaskID: "A", Order: intp(0), DueDate: strp("2025-01-11")},
		{TaskID: "C", Order: intp(1)},
	}, b)

	ix.Apply(b)
	assert.Equal(t, []string{"B"}, ids(ix.Day("2025-01-10")))
	assert.Equal(t, []string{"A", "C"}, ids(ix.Day("2025-01-11")))
	assert.Equal(t, "2025-01-11", ix["A"].DueDate)
}

func TestPlan_SamePositionIsNoop(t *testing.T) {
	ix := NewIndex([]models.Task{task("A", "2025-01-10", 0), task("B", "2025-01-10", 1)})

	b, err := Plan(ix, Move{SourceDay: "2025-01-10", SourceIndex: 1, DestDay: "2025-01-10", DestIndex: 1})
	require.NoError(t, err)
	assert.Empty(t, b)
	assert.NotNil(t, b)
}

func TestPlan_ClampsDestinationIndex(t *testing.T) {
	ix := NewIndex([]models.Task{
		task("A", "2025-01-10", 0),
		task("B", "2025-01-10", 1),
		task("C", "2025-01-11", 0),
	})

	b, err := Plan(ix, Move{SourceDay: "2025-01-10", SourceIndex: 0, DestDay: "2025-01-11", DestIndex: 99})
	require.NoError(t, err)
	ix.Apply(b)
	assert.Equal(t, []string{"C", "A"}, ids(ix.Day("2025-01-11")))
	assertContiguous(t, ix, "2025-01-11")

	b, err = Plan(ix, Move{SourceDay: "2025-01-11", SourceIndex: 1, DestDay: "2025-01-11", DestIndex: -3})
	require.NoError(t, err)
	ix.Apply(b)
	assert.Equal(t, []string{"A", "C"}, ids(ix.Day("2025-01-11")))
}

func TestPlan_MoveIntoEmptyDay(t *testing.T) {
	ix := NewIndex([]models.Task{task("A", "2025-01-10", 0)})

	b, err := Plan(ix, Move{SourceDay: "2025-01-10", SourceIndex: 0, DestDay: "2025-02-01", DestIndex: 3})
	require.NoError(t, err)
	assert.Equal(t, Batch{{TaskID: "A", Order: intp(0), DueDate: strp("2025-02-01")}}, b)
}

func TestPlan_RenumbersGappedSequences(t *testing.T) {
	ix := NewIndex([]models.Task{
		task("A", "2025-01-10", 3),
		task("B", "2025-01-10", 7),
		task("C", "2025-01-10", 7),
	})
	ix["C"] = func(t models.Task) models.Task { t.CreatedAt = base.Add(time.Minute); return t }(ix["C"])

	b, err := Plan(ix, Move{SourceDay: "2025-01-10", SourceIndex: 2, DestDay: "2025-01-10", DestIndex: 0})
	require.NoError(t, err)
	ix.Apply(b)
	assert.Equal(t, []string{"C", "A", "B"}, ids(ix.Day("2025-01-10")))
	assertContiguous(t, ix, "2025-01-10")
}

func TestPlan_Rejections(t *testing.T) {
	holiday := task("H", "2025-12-25", 0)
	holiday.Category = models.CategoryHoliday
	fixed := task("F", "2025-12-25", 1)
	fixed.Fixed = true
	ix := NewIndex([]models.Task{holiday, fixed, task("A", "2025-12-25", 2)})

	_, err := Plan(ix, Move{SourceDay: "2025-12-25", SourceIndex: 0, DestDay: "2025-12-26", DestIndex: 0})
	assert.ErrorIs(t, err, ErrFixedTask)

	_, err = Plan(ix, Move{SourceDay: "2025-12-25", SourceIndex: 1, DestDay: "2025-12-25", DestIndex: 1})
	assert.ErrorIs(t, err, ErrFixedTask)

	_, err = Plan(ix, Move{SourceDay: "2025-12-25", SourceIndex: 5, DestDay: "2025-12-25", DestIndex: 0})
	assert.ErrorIs(t, err, ErrNoTask)

	_, err = Plan(ix, Move{SourceDay: "2025-12-24", SourceIndex: 0, DestDay: "2025-12-25", DestIndex: 0})
	assert.ErrorIs(t, err, ErrNoTask)

	_, err = Plan(ix, Move{SourceDay: "25-12-2025", SourceIndex: 0, DestDay: "2025-12-25", DestIndex: 0})
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func TestPlan_FixedTasksKeepTheirDay(t *testing.T) {
	holiday := task("H", "2025-12-25", 0)
	holiday.Category = models.CategoryHoliday
	holiday.Fixed = true
	ix := NewIndex([]models.Task{holiday, task("A", "2025-12-25", 1), task("B", "2025-12-24", 0)})

	b, err := Plan(ix, Move{SourceDay: "2025-12-25", SourceIndex: 1, DestDay: "2025-12-24", DestIndex: 0})
	require.NoError(t, err)
	for _, u := range b {
		if u.TaskID == "H" {
			assert.Nil(t, u.DueDate)
		}
	}
	assert.Equal(t, "2025-12-25", func() string { ix.Apply(b); return ix["H"].DueDate }())
}

func TestPlan_FixedTasksNeverEnterTheBatch(t *testing.T) {
	pinned := func(id, day string, order int) models.Task {
		tk := task(id, day, order)
		tk.Fixed = true
		return tk
	}

	ix := NewIndex([]models.Task{pinned("H", "2025-12-25", 0), task("A", "2025-12-25", 1)})
	b, err := Plan(ix, Move{SourceDay: "2025-12-25", SourceIndex: 1, DestDay: "2025-12-25", DestIndex: 0})
	require.NoError(t, err)
	assert.Empty(t, b, "the only free slot is the one A already holds")

	holiday := task("H", "2025-12-25", 0)
	holiday.Category = models.CategoryHoliday
	ix = NewIndex([]models.Task{holiday, task("A", "2025-12-25", 1), task("B", "2025-12-25", 2)})
	b, err = Plan(ix, Move{SourceDay: "2025-12-25", SourceIndex: 2, DestDay: "2025-12-25", DestIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, b.IDs())
	ix.Apply(b)
	assert.Equal(t, []string{"H", "B", "A"}, ids(ix.Day("2025-12-25")))
	assertContiguous(t, ix, "2025-12-25")

	ix = NewIndex([]models.Task{
		pinned("F", "2025-12-26", 0),
		task("X", "2025-12-26", 1),
		task("Y", "2025-12-27", 0),
	})
	b, err = Plan(ix, Move{SourceDay: "2025-12-27", SourceIndex: 0, DestDay: "2025-12-26", DestIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"Y", "X"}, b.IDs())
	ix.Apply(b)
	assert.Equal(t, []string{"F", "Y", "X"}, ids(ix.Day("2025-12-26")))
	assertContiguous(t, ix, "2025-12-26")
}

func TestPlan_RandomMovesKeepDaysContiguous(t *testing.T) {
	days := []string{"2025-01-10", "2025-01-11", "2025-01-12"}
	rng := rand.New(rand.NewSource(42))

	var tasks []models.Task
	for i := 0; i < 12; i++ {
		day := days[i%len(days)]
		tasks = append(tasks, task(fmt.Sprintf("t%02d", i), day, i/len(days)))
	}
	ix := NewIndex(tasks)

	for step := 0; step < 200; step++ {
		src := days[rng.Intn(len(days))]
		seq := ix.Day(src)
		if len(seq) == 0 {
			continue
		}
		m := Move{
			SourceDay:   src,
			SourceIndex: rng.Intn(len(seq)),
			DestDay:     days[rng.Intn(len(days))],
			DestIndex:   rng.Intn(len(seq) + 2),
		}
		movedID := seq[m.SourceIndex].ID

		b, err := Plan(ix, m)
		require.NoError(t, err)
		ix.Apply(b)

		assert.Equal(t, m.DestDay, ix[movedID].DueDate)
		for _, d := range days {
			assertContiguous(t, ix, d)
		}
	}
	assert.Len(t, ix, 12)
}

type fakeUpdater struct {
	mu    sync.Mutex
	tasks map[string]models.Task
	fail  map[string]bool
}

func (f *fakeUpdater) UpdateTask(_ context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[id] {
		return models.Task{}, errors.New("write failed")
	}
	t := patch.Apply(f.tasks[id])
	f.tasks[id] = t
	return t, nil
}

func TestSubmit_AllSucceed(t *testing.T) {
	ix := NewIndex([]models.Task{
		task("A", "2025-01-10", 0),
		task("B", "2025-01-10", 1),
		task("C", "2025-01-11", 0),
	})
	up := &fakeUpdater{tasks: ix.Clone()}

	b, err := Plan(ix, Move{SourceDay: "2025-01-10", SourceIndex: 0, DestDay: "2025-01-11", DestIndex: 0})
	require.NoError(t, err)

	tasks, err := Submit(context.Background(), up, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, ids(tasks))
	assert.Equal(t, "2025-01-11", up.tasks["A"].DueDate)
	assert.Equal(t, 1, up.tasks["C"].Order)
}

func TestSubmit_PartialFailureIsAggregated(t *testing.T) {
	ix := NewIndex([]models.Task{
		task("A", "2025-01-10", 0),
		task("B", "2025-01-10", 1),
		task("C", "2025-01-11", 0),
	})
	up := &fakeUpdater{tasks: ix.Clone(), fail: map[string]bool{"C": true, "B": true}}

	b, err := Plan(ix, Move{SourceDay: "2025-01-10", SourceIndex: 0, DestDay: "2025-01-11", DestIndex: 0})
	require.NoError(t, err)

	tasks, err := Submit(context.Background(), up, b)
	require.Error(t, err)

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, []string{"B", "C"}, be.Failed)
	assert.Equal(t, 3, be.Total)
	assert.Contains(t, err.Error(), "2 of 3 updates failed")

	assert.Equal(t, []string{"A"}, ids(tasks))
	assert.Equal(t, "2025-01-11", up.tasks["A"].DueDate, "succeeded updates are kept")
}

func TestSubmit_EmptyBatch(t *testing.T) {
	tasks, err := Submit(context.Background(), &fakeUpdater{}, Batch{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
