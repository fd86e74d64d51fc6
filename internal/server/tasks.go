package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "daybook/internal/errors"
	"daybook/internal/events"
	"daybook/internal/models"
	"daybook/internal/storage"
)

type createTaskRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	DueDate     string          `json:"dueDate" binding:"required"`
	Completed   bool            `json:"completed"`
	Category    models.Category `json:"category"`
	Tags        []string        `json:"tags"`
	Fixed       bool            `json:"fixed"`
}

// handleCreateTask inserts a new task at the end of its day.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.NewValidationError("title and dueDate are required", err))
		return
	}
	day, err := models.ParseDay(req.DueDate)
	if err != nil {
		s.respondError(c, apperrors.NewValidationError(err.Error(), nil))
		return
	}
	if req.Category != "" {
		if err := validCategory(req.Category); err != nil {
			s.respondError(c, err)
			return
		}
	}

	task, err := s.store.CreateTask(c.Request.Context(), models.Task{
		OwnerID:     currentClaims(c).UserID(),
		Title:       req.Title,
		Description: req.Description,
		DueDate:     day,
		Completed:   req.Completed,
		Category:    req.Category,
		Tags:        req.Tags,
		Fixed:       req.Fixed,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.publish(c.Request.Context(), events.TaskCreated, task)
	respondSuccess(c, http.StatusCreated, task)
}

// handleListTasks returns the owner's tasks, filtered by title when a query
// is present. A blank query lists everything.
func (s *Server) handleListTasks(c *gin.Context) {
	owner := currentClaims(c).UserID()
	query := strings.TrimSpace(c.Query("query"))

	var (
		tasks []models.Task
		err   error
	)
	if query == "" {
		tasks, err = s.store.ListTasks(c.Request.Context(), owner, storage.DateRange{})
	} else {
		tasks, err = s.store.SearchTasks(c.Request.Context(), owner, query)
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleFilterTasks lists tasks whose due day lies within startDate..endDate.
func (s *Server) handleFilterTasks(c *gin.Context) {
	var r storage.DateRange
	for _, p := range []struct {
		name string
		dst  *string
	}{{"startDate", &r.Start}, {"endDate", &r.End}} {
		raw := strings.TrimSpace(c.Query(p.name))
		if raw == "" {
			continue
		}
		day, err := models.ParseDay(raw)
		if err != nil {
			s.respondError(c, apperrors.NewValidationError(p.name+": "+err.Error(), nil))
			return
		}
		*p.dst = day
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), currentClaims(c).UserID(), r)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleGetTask returns one of the owner's tasks.
func (s *Server) handleGetTask(c *gin.Context) {
	task, ok := s.ownedTask(c)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, task)
}

// handleUpdateTask applies a partial update.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.respondError(c, apperrors.NewValidationError("invalid request body", err))
		return
	}
	if err := validatePatch(&patch); err != nil {
		s.respondError(c, err)
		return
	}

	current, ok := s.ownedTask(c)
	if !ok {
		return
	}

	task, err := s.store.UpdateTask(c.Request.Context(), current.ID, patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.publish(c.Request.Context(), events.TaskUpdated, task)
	respondSuccess(c, http.StatusOK, task)
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	current, ok := s.ownedTask(c)
	if !ok {
		return
	}
	task, err := s.store.DeleteTask(c.Request.Context(), current.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.publish(c.Request.Context(), events.TaskDeleted, task)
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// ownedTask loads the :id task and hides tasks of other owners.
func (s *Server) ownedTask(c *gin.Context) (models.Task, bool) {
	id := c.Param("id")
	task, err := s.store.GetTask(c.Request.Context(), id)
	if err == nil && task.OwnerID != currentClaims(c).UserID() {
		err = apperrors.NewNotFoundError("task", id)
	}
	if err != nil {
		s.respondError(c, err)
		return models.Task{}, false
	}
	return task, true
}

// publish emits a change event. Failures are logged and never fail the request.
func (s *Server) publish(ctx context.Context, typ events.Type, task models.Task) {
	ev := events.Event{Type: typ, Task: task, At: s.now().UTC()}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish event failed", slog.String("type", string(typ)), slog.String("task", task.ID), slog.String("error", err.Error()))
	}
}

func validatePatch(p *models.TaskPatch) error {
	if p.Empty() {
		return apperrors.NewValidationError("update must change at least one field", nil)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return apperrors.NewValidationError("task title must not be empty", nil)
	}
	if p.DueDate != nil {
		day, err := models.ParseDay(*p.DueDate)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), nil)
		}
		p.DueDate = &day
	}
	if p.Order != nil && *p.Order < 0 {
		return apperrors.NewValidationError("order must not be negative", nil)
	}
	if p.Category != nil {
		return validCategory(*p.Category)
	}
	return nil
}

func validCategory(cat models.Category) error {
	if _, ok := models.ValidCategories[cat]; !ok {
		return apperrors.NewValidationError("category must be personal, work or holiday", nil)
	}
	return nil
}
