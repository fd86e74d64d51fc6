package reorder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"daybook/internal/models"
)

// Updater persists a partial update of one task.
type Updater interface {
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
}

// BatchError reports the updates of a batch that did not persist. The
// updates that succeeded are not rolled back.
type BatchError struct {
	Failed []string
	Total  int
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("reorder: %d of %d updates failed: %v", len(e.Failed), e.Total, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Submit issues every update concurrently and waits for all of them. It
// returns the tasks as persisted, in batch order, and a *BatchError when any
// update failed.
func Submit(ctx context.Context, u Updater, b Batch) ([]models.Task, error) {
	type result struct {
		task models.Task
		err  error
	}
	results := make([]result, len(b))

	var wg sync.WaitGroup
	for i, upd := range b {
		wg.Add(1)
		go func(i int, upd Update) {
			defer wg.Done()
			task, err := u.UpdateTask(ctx, upd.TaskID, upd.Patch())
			results[i] = result{task: task, err: err}
		}(i, upd)
	}
	wg.Wait()

	var (
		tasks  = make([]models.Task, 0, len(b))
		failed []string
		errs   []error
	)
	for i, r := range results {
		if r.err != nil {
			failed = append(failed, b[i].TaskID)
			errs = append(errs, fmt.Errorf("task %s: %w", b[i].TaskID, r.err))
			continue
		}
		tasks = append(tasks, r.task)
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return tasks, &BatchError{Failed: failed, Total: len(b), Err: errors.Join(errs...)}
	}
	return tasks, nil
}
