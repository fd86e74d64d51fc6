package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daybook/internal/models"
)

func TestGridSize(t *testing.T) {
	assert.Equal(t, 35, GridSize(31, 3))
	assert.Equal(t, 28, GridSize(28, 0))
	assert.Equal(t, 42, GridSize(31, 6))
	assert.Equal(t, 35, GridSize(30, 5))
}

func TestMonth_GridAndPlaceholders(t *testing.T) {
	// January 2025 starts on a Wednesday.
	view, err := Month(2025, time.January, nil, nil, "")
	require.NoError(t, err)

	assert.Equal(t, 3, view.Offset)
	assert.Equal(t, 31, view.Days)
	require.Len(t, view.Cells, 35)

	for i := 0; i < 3; i++ {
		assert.True(t, view.Cells[i].Placeholder())
		assert.Empty(t, view.Cells[i].Tasks)
	}
	assert.Equal(t, "2025-01-01", view.Cells[3].Date)
	assert.Equal(t, 1, view.Cells[3].Day)
	assert.Equal(t, "2025-01-31", view.Cells[33].Date)
	assert.True(t, view.Cells[34].Placeholder())
}

func TestMonth_SixRowMonth(t *testing.T) {
	// March 2025 starts on a Saturday.
	view, err := Month(2025, time.March, nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 6, view.Offset)
	assert.Len(t, view.Cells, 42)
}

func TestMonth_BucketsTasksAndHolidays(t *testing.T) {
	tasks := []models.Task{
		{ID: "c", DueDate: "2025-01-10", Order: 2},
		{ID: "a", DueDate: "2025-01-10", Order: 0},
		{ID: "b", DueDate: "2025-01-10", Order: 1},
		{ID: "x", DueDate: "2025-02-10", Order: 0},
	}
	holidays := []models.Holiday{{Date: "2025-01-01", Name: "New Year's Day"}}

	view, err := Month(2025, time.January, tasks, holidays, "2025-01-05")
	require.NoError(t, err)

	jan10 := view.Cells[3+9]
	assert.Equal(t, "2025-01-10", jan10.Date)
	require.Len(t, jan10.Tasks, 3)
	assert.Equal(t, "a", jan10.Tasks[0].ID)
	assert.Equal(t, "b", jan10.Tasks[1].ID)
	assert.Equal(t, "c", jan10.Tasks[2].ID)
	assert.False(t, jan10.Past)

	jan1 := view.Cells[3]
	require.Len(t, jan1.Holidays, 1)
	assert.True(t, jan1.Past)

	assert.True(t, view.Cells[3+4].Today)

	for _, c := range view.Cells {
		for _, tk := range c.Tasks {
			assert.NotEqual(t, "x", tk.ID)
		}
	}
}

func TestMonth_InvalidMonth(t *testing.T) {
	_, err := Month(2025, 13, nil, nil, "")
	assert.Error(t, err)
}

func TestWeek(t *testing.T) {
	tasks := []models.Task{
		{ID: "late", DueDate: "2025-01-02", Order: 1},
		{ID: "early", DueDate: "2025-01-02", Order: 0},
		{ID: "out", DueDate: "2025-01-06", Order: 0},
	}

	view, err := Week("2024-12-30", tasks, nil, "2025-01-01")
	require.NoError(t, err)
	require.Len(t, view.Cells, 7)
	assert.Equal(t, "2025-01-05", view.End)
	assert.Equal(t, "2024-12-31", view.Cells[1].Date)
	assert.True(t, view.Cells[1].Past)
	assert.True(t, view.Cells[2].Today)
	assert.Equal(t, []string{"early", "late"}, []string{view.Cells[3].Tasks[0].ID, view.Cells[3].Tasks[1].ID})

	for _, c := range view.Cells {
		assert.False(t, c.Placeholder())
	}

	_, err = Week("not-a-day", nil, nil, "")
	assert.Error(t, err)
}

func TestRanges(t *testing.T) {
	start, end := MonthRange(2024, time.February)
	assert.Equal(t, "2024-02-01", start)
	assert.Equal(t, "2024-02-29", end)

	start, end, err := WeekRange("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10", start)
	assert.Equal(t, "2025-01-16", end)
}
