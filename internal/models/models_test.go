package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	day, err := ParseDay("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10", day)

	day, err = ParseDay(" 2025-01-10T18:30:00Z ")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10", day)

	_, err = ParseDay("10/01/2025")
	assert.Error(t, err)
	_, err = ParseDay("")
	assert.Error(t, err)
}

func TestTaskPatch_Apply(t *testing.T) {
	task := Task{ID: "a", Title: "old", DueDate: "2025-01-10", Order: 2, Category: CategoryPersonal, Tags: []string{"x"}}

	title := "new"
	order := 0
	holiday := CategoryHoliday
	tags := []string{"y", "z"}
	patch := TaskPatch{Title: &title, Order: &order, Category: &holiday, Tags: &tags}

	got := patch.Apply(task)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, 0, got.Order)
	assert.Equal(t, "2025-01-10", got.DueDate)
	assert.True(t, got.Fixed)
	assert.Equal(t, []string{"y", "z"}, got.Tags)

	tags[0] = "mutated"
	assert.Equal(t, "y", got.Tags[0])
	assert.Equal(t, "old", task.Title)
}

func TestTaskPatch_Empty(t *testing.T) {
	assert.True(t, TaskPatch{}.Empty())
	done := true
	assert.False(t, TaskPatch{Completed: &done}.Empty())
}
