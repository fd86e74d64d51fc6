package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "daybook/internal/errors"
	"daybook/internal/models"
)

// handleHolidays lists public holidays of the caller's country for ?year=,
// defaulting to the current year.
func (s *Server) handleHolidays(c *gin.Context) {
	year := s.now().Year()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(c, apperrors.NewValidationError("year must be a number", err))
			return
		}
		year = y
	}

	if s.holidays == nil {
		respondSuccess(c, http.StatusOK, []models.Holiday{})
		return
	}

	list, err := s.holidays.ListHolidays(c.Request.Context(), year, currentClaims(c).Country)
	if err != nil {
		if _, ok := apperrors.AsAppError(err); !ok {
			s.logger.Error("holiday lookup failed", slog.Int("year", year), slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "holiday provider unavailable", "code": "UPSTREAM_ERROR"})
			return
		}
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, list)
}

// holidaysFor collects holidays for every year in the list. A failing
// provider degrades to no holidays so calendar views still render.
func (s *Server) holidaysFor(ctx context.Context, country string, years ...int) []models.Holiday {
	out := []models.Holiday{}
	if s.holidays == nil {
		return out
	}
	seen := map[int]bool{}
	for _, y := range years {
		if seen[y] {
			continue
		}
		seen[y] = true
		list, err := s.holidays.ListHolidays(ctx, y, country)
		if err != nil {
			s.logger.Warn("holiday lookup failed", slog.Int("year", y), slog.String("country", country), slog.String("error", err.Error()))
			continue
		}
		out = append(out, list...)
	}
	return out
}
