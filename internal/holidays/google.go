package holidays

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"daybook/internal/models"
)

// GoogleProvider reads the public holiday calendars Google publishes per region.
type GoogleProvider struct {
	srv *calendar.Service
}

// NewGoogleProvider creates a provider authenticated with an API key. Extra
// options are appended, which tests use to point at a fake endpoint.
func NewGoogleProvider(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GoogleProvider, error) {
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return &GoogleProvider{srv: srv}, nil
}

// CalendarID returns the public holiday calendar for a country code.
func CalendarID(countryCode string) string {
	return fmt.Sprintf("en.%s.official#holiday@group.v.calendar.google.com", strings.ToLower(countryCode))
}

// ListHolidays implements Provider using all-day events of the regional calendar.
func (g *GoogleProvider) ListHolidays(ctx context.Context, year int, countryCode string) ([]models.Holiday, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	country, err := normalizeCountry(countryCode)
	if err != nil {
		return nil, err
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	call := g.srv.Events.List(CalendarID(country)).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(start.AddDate(1, 0, 0).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	out := []models.Holiday{}
	err = call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			if item.Start == nil || item.Start.Date == "" {
				continue
			}
			out = append(out, models.Holiday{
				Date:        item.Start.Date,
				LocalName:   item.Summary,
				Name:        item.Summary,
				CountryCode: country,
				Fixed:       false,
				Global:      true,
				Types:       []string{"Public"},
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list holiday events: %w", err)
	}
	return out, nil
}
