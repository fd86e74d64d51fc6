// Package holidays looks up public holidays for a year and country.
package holidays

import (
	"context"
	"strings"

	apperrors "daybook/internal/errors"
	"daybook/internal/models"
)

// Provider lists the public holidays of one country for one year.
type Provider interface {
	ListHolidays(ctx context.Context, year int, countryCode string) ([]models.Holiday, error)
}

// Recorder observes lookups. result is one of hit, miss or error.
type Recorder interface {
	HolidayLookup(source, result string)
}

type nopRecorder struct{}

func (nopRecorder) HolidayLookup(string, string) {}

func normalizeCountry(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return "", apperrors.NewValidationError("country must be a two-letter code", nil)
	}
	return code, nil
}

func validateYear(year int) error {
	if year < 1900 || year > 2200 {
		return apperrors.NewValidationError("year out of range", nil)
	}
	return nil
}
