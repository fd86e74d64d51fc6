package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"daybook/internal/calendar"
	apperrors "daybook/internal/errors"
	"daybook/internal/models"
	"daybook/internal/storage"
)

// handleMonth projects ?year=&month= into a Sunday-first grid.
func (s *Server) handleMonth(c *gin.Context) {
	now := s.now()
	year, ok := s.intQuery(c, "year", now.Year())
	if !ok {
		return
	}
	month, ok := s.intQuery(c, "month", int(now.Month()))
	if !ok {
		return
	}
	if month < 1 || month > 12 {
		s.respondError(c, apperrors.NewValidationError("month must be between 1 and 12", nil))
		return
	}

	claims := currentClaims(c)
	start, end := calendar.MonthRange(year, time.Month(month))
	tasks, err := s.store.ListTasks(c.Request.Context(), claims.UserID(), storage.DateRange{Start: start, End: end})
	if err != nil {
		s.respondError(c, err)
		return
	}
	hols := s.holidaysFor(c.Request.Context(), claims.Country, year)

	view, err := calendar.Month(year, time.Month(month), tasks, hols, s.today())
	if err != nil {
		s.respondError(c, apperrors.NewValidationError(err.Error(), nil))
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

// handleWeek projects seven days from ?start=, defaulting to the current
// week's Sunday.
func (s *Server) handleWeek(c *gin.Context) {
	now := s.now()
	start := c.Query("start")
	if start == "" {
		start = models.DayKey(now.AddDate(0, 0, -int(now.Weekday())))
	}
	first, last, err := calendar.WeekRange(start)
	if err != nil {
		s.respondError(c, apperrors.NewValidationError(err.Error(), nil))
		return
	}

	claims := currentClaims(c)
	tasks, err := s.store.ListTasks(c.Request.Context(), claims.UserID(), storage.DateRange{Start: first, End: last})
	if err != nil {
		s.respondError(c, err)
		return
	}
	hols := s.holidaysFor(c.Request.Context(), claims.Country, yearOf(first), yearOf(last))

	view, err := calendar.Week(first, tasks, hols, s.today())
	if err != nil {
		s.respondError(c, apperrors.NewValidationError(err.Error(), nil))
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

func (s *Server) intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		s.respondError(c, apperrors.NewValidationError(name+" must be a number", err))
		return 0, false
	}
	return v, true
}

func yearOf(day string) int {
	t, _ := time.Parse(models.DayLayout, day)
	return t.Year()
}
