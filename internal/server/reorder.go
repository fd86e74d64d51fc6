package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "daybook/internal/errors"
	"daybook/internal/events"
	"daybook/internal/models"
	"daybook/internal/reorder"
	"daybook/internal/storage"
)

// handleReorder plans a drag-and-drop move against the stored state of the
// two affected days and writes the resulting batch.
func (s *Server) handleReorder(c *gin.Context) {
	var move reorder.Move
	if err := c.ShouldBindJSON(&move); err != nil {
		s.respondError(c, apperrors.NewValidationError("invalid request body", err))
		return
	}

	ctx := c.Request.Context()
	owner := currentClaims(c).UserID()

	var tasks []models.Task
	for _, day := range uniqueDays(move.SourceDay, move.DestDay) {
		list, err := s.store.ListTasks(ctx, owner, storage.DateRange{Start: day, End: day})
		if err != nil {
			s.respondError(c, err)
			return
		}
		tasks = append(tasks, list...)
	}

	batch, err := reorder.Plan(reorder.NewIndex(tasks), move)
	switch {
	case errors.Is(err, reorder.ErrNoTask):
		s.respondError(c, apperrors.NewNotFoundError("task at position", move.SourceDay))
		return
	case err != nil:
		s.respondError(c, apperrors.NewValidationError(err.Error(), err))
		return
	}

	s.metrics.ReorderBatch()
	updated, err := reorder.Submit(ctx, s.store, batch)
	for _, t := range updated {
		s.publish(ctx, events.TaskUpdated, t)
	}

	var batchErr *reorder.BatchError
	if errors.As(err, &batchErr) {
		s.metrics.ReorderUpdatesFailed(len(batchErr.Failed))
		s.logger.Error("reorder partially applied",
			slog.Int("failed", len(batchErr.Failed)),
			slog.Int("total", batchErr.Total),
			slog.String("error", batchErr.Error()),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":  "some updates were not saved; reload to see the stored order",
			"code":   "PARTIAL_UPDATE",
			"failed": batchErr.Failed,
			"tasks":  updated,
		})
		return
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"updates": batch, "tasks": updated})
}

func uniqueDays(a, b string) []string {
	if a == b {
		return []string{a}
	}
	return []string{a, b}
}
