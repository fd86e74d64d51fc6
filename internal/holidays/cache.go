package holidays

import (
	"context"
	"fmt"
	"sync"
	"time"

	"daybook/internal/models"
)

type cacheKey struct {
	year    int
	country string
}

type cacheEntry struct {
	holidays []models.Holiday
	expires  time.Time
}

// Cache memoizes a Provider per (year, country) for a fixed TTL.
type Cache struct {
	source   string
	next     Provider
	ttl      time.Duration
	recorder Recorder
	now      func() time.Time

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

// NewCache wraps next. source labels lookups reported to recorder, which may be nil.
func NewCache(source string, next Provider, ttl time.Duration, recorder Recorder) *Cache {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Cache{
		source:   source,
		next:     next,
		ttl:      ttl,
		recorder: recorder,
		now:      time.Now,
		entries:  make(map[cacheKey]cacheEntry),
	}
}

// ListHolidays implements Provider. Failed lookups are not cached.
func (c *Cache) ListHolidays(ctx context.Context, year int, countryCode string) ([]models.Holiday, error) {
	country, err := normalizeCountry(countryCode)
	if err != nil {
		return nil, err
	}
	key := cacheKey{year: year, country: country}

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && c.now().Before(entry.expires) {
		c.recorder.HolidayLookup(c.source, "hit")
		return clone(entry.holidays), nil
	}

	list, err := c.next.ListHolidays(ctx, year, country)
	if err != nil {
		c.recorder.HolidayLookup(c.source, "error")
		return nil, fmt.Errorf("%s holidays %d/%s: %w", c.source, year, country, err)
	}
	c.recorder.HolidayLookup(c.source, "miss")

	c.mu.Lock()
	c.entries[key] = cacheEntry{holidays: clone(list), expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return list, nil
}

func clone(in []models.Holiday) []models.Holiday {
	return append([]models.Holiday{}, in...)
}
