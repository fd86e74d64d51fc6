package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "daybook/internal/errors"
	"daybook/internal/models"
	"daybook/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "daybook.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, s *Store, email string) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), models.User{Email: email, Name: "Test", Country: "US", PasswordHash: "hash"})
	require.NoError(t, err)
	return u
}

func createTask(t *testing.T, s *Store, owner, title, day string) models.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), models.Task{OwnerID: owner, Title: title, DueDate: day})
	require.NoError(t, err)
	return task
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("", nil)
	assert.Error(t, err)
}

func TestCreateUser_DuplicateEmailConflicts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := createUser(t, s, "Ann@Example.com")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ann@example.com", u.Email)

	_, err := s.CreateUser(ctx, models.User{Email: "ann@example.com", Name: "Other", Country: "DE", PasswordHash: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConflict))

	got, err := s.GetUserByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetUser(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateTask_AppendsToEndOfDay(t *testing.T) {
	s := setupTestStore(t)
	owner := createUser(t, s, "a@example.com").ID

	a := createTask(t, s, owner, "A", "2025-01-10")
	b := createTask(t, s, owner, "B", "2025-01-10")
	c := createTask(t, s, owner, "C", "2025-01-11")

	assert.Equal(t, 0, a.Order)
	assert.Equal(t, 1, b.Order)
	assert.Equal(t, 0, c.Order)
	assert.Equal(t, models.CategoryPersonal, a.Category)
	assert.Equal(t, []string{}, a.Tags)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestCreateTask_HolidayCategoryIsFixed(t *testing.T) {
	s := setupTestStore(t)
	owner := createUser(t, s, "a@example.com").ID

	task, err := s.CreateTask(context.Background(), models.Task{OwnerID: owner, Title: "Day off", DueDate: "2025-12-25", Category: models.CategoryHoliday, Tags: []string{"rest"}})
	require.NoError(t, err)
	assert.True(t, task.Fixed)
	assert.Equal(t, []string{"rest"}, task.Tags)
}

func TestCreateTask_RejectsBlankTitle(t *testing.T) {
	s := setupTestStore(t)
	owner := createUser(t, s, "a@example.com").ID

	_, err := s.CreateTask(context.Background(), models.Task{OwnerID: owner, Title: "  ", DueDate: "2025-01-10"})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
}

func TestListTasks_RangeAndOrdering(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "a@example.com").ID
	other := createUser(t, s, "b@example.com").ID

	createTask(t, s, owner, "late", "2025-01-20")
	createTask(t, s, owner, "first", "2025-01-10")
	createTask(t, s, owner, "second", "2025-01-10")
	createTask(t, s, other, "foreign", "2025-01-10")

	all, err := s.ListTasks(ctx, owner, storage.DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"first", "second", "late"}, titles(all))

	ranged, err := s.ListTasks(ctx, owner, storage.DateRange{Start: "2025-01-10", End: "2025-01-10"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, titles(ranged))

	openEnd, err := s.ListTasks(ctx, owner, storage.DateRange{Start: "2025-01-11"})
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, titles(openEnd))

	none, err := s.ListTasks(ctx, "nobody", storage.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearchTasks_CaseInsensitiveSubstring(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "a@example.com").ID
	other := createUser(t, s, "b@example.com").ID

	createTask(t, s, owner, "Buy Milk", "2025-01-10")
	createTask(t, s, owner, "call mom", "2025-01-11")
	createTask(t, s, owner, "100% done", "2025-01-12")
	createTask(t, s, owner, "Über Meeting", "2025-01-13")
	createTask(t, s, other, "milk for other", "2025-01-10")

	found, err := s.SearchTasks(ctx, owner, "MILK")
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy Milk"}, titles(found))

	found, err = s.SearchTasks(ctx, owner, "%")
	require.NoError(t, err)
	assert.Equal(t, []string{"100% done"}, titles(found))

	found, err = s.SearchTasks(ctx, owner, "über")
	require.NoError(t, err)
	assert.Equal(t, []string{"Über Meeting"}, titles(found))

	found, err = s.SearchTasks(ctx, owner, "ÜBER MEET")
	require.NoError(t, err)
	assert.Equal(t, []string{"Über Meeting"}, titles(found))
}

func TestUpdateTask_PatchFieldsAndDayChange(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "a@example.com").ID

	createTask(t, s, owner, "existing", "2025-01-11")
	task := createTask(t, s, owner, "moving", "2025-01-10")

	day := "2025-01-11"
	done := true
	updated, err := s.UpdateTask(ctx, task.ID, models.TaskPatch{DueDate: &day, Completed: &done})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-11", updated.DueDate)
	assert.Equal(t, 1, updated.Order)
	assert.True(t, updated.Completed)
	assert.Equal(t, "moving", updated.Title)

	order := 0
	back := "2025-01-10"
	updated, err = s.UpdateTask(ctx, task.ID, models.TaskPatch{DueDate: &back, Order: &order})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Order)

	_, err = s.UpdateTask(ctx, "missing", models.TaskPatch{Order: &order})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteTask(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "a@example.com").ID
	task := createTask(t, s, owner, "gone", "2025-01-10")

	deleted, err := s.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, deleted.ID)

	_, err = s.GetTask(ctx, task.ID)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = s.DeleteTask(ctx, task.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteTask_ClosesOrderGap(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "a@example.com").ID
	createTask(t, s, owner, "A", "2025-01-10")
	b := createTask(t, s, owner, "B", "2025-01-10")
	createTask(t, s, owner, "C", "2025-01-10")
	createTask(t, s, owner, "D", "2025-01-10")
	other := createTask(t, s, owner, "E", "2025-01-11")

	_, err := s.DeleteTask(ctx, b.ID)
	require.NoError(t, err)

	day := listDay(t, s, owner, "2025-01-10")
	assert.Equal(t, []string{"A", "C", "D"}, titles(day))
	assert.Equal(t, []int{0, 1, 2}, orders(day))

	got, err := s.GetTask(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Order)
}

func TestUpdateTask_DayChangeClosesSourceGap(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "a@example.com").ID
	a := createTask(t, s, owner, "A", "2025-01-10")
	createTask(t, s, owner, "B", "2025-01-10")
	createTask(t, s, owner, "C", "2025-01-10")

	next := "2025-01-12"
	_, err := s.UpdateTask(ctx, a.ID, models.TaskPatch{DueDate: &next})
	require.NoError(t, err)

	day := listDay(t, s, owner, "2025-01-10")
	assert.Equal(t, []string{"B", "C"}, titles(day))
	assert.Equal(t, []int{0, 1}, orders(day))
}

func TestUpdateTask_ExplicitOrderLeavesSourceDayAlone(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "a@example.com").ID
	a := createTask(t, s, owner, "A", "2025-01-10")
	createTask(t, s, owner, "B", "2025-01-10")

	next, order := "2025-01-12", 0
	_, err := s.UpdateTask(ctx, a.ID, models.TaskPatch{DueDate: &next, Order: &order})
	require.NoError(t, err)

	day := listDay(t, s, owner, "2025-01-10")
	assert.Equal(t, []int{1}, orders(day), "reorder batches renumber the source day themselves")
}

func listDay(t *testing.T, s *Store, owner, day string) []models.Task {
	t.Helper()
	tasks, err := s.ListTasks(context.Background(), owner, storage.DateRange{Start: day, End: day})
	require.NoError(t, err)
	return tasks
}

func orders(tasks []models.Task) []int {
	out := make([]int, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Order)
	}
	return out
}

func titles(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}
