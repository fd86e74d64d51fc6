package models

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the calendar day key format used for due dates and buckets.
const DayLayout = "2006-01-02"

// Category classifies a task.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryHoliday  Category = "holiday"
)

// ValidCategories enumerates the categories a task may carry.
var ValidCategories = map[Category]struct{}{
	CategoryPersonal: {},
	CategoryWork:     {},
	CategoryHoliday:  {},
}

// Task is a single calendar entry owned by one user.
type Task struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     string    `json:"dueDate"`
	Completed   bool      `json:"completed"`
	Order       int       `json:"order"`
	Category    Category  `json:"category"`
	Tags        []string  `json:"tags"`
	Fixed       bool      `json:"fixed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskPatch carries the fields of a partial task update. Nil means unchanged.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
	Order       *int      `json:"order,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.Completed == nil && p.Order == nil && p.Category == nil && p.Tags == nil
}

// Apply returns a copy of t with the patch fields set.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.Category != nil {
		t.Category = *p.Category
		t.Fixed = t.Fixed || *p.Category == CategoryHoliday
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	return t
}

// User is an account owning tasks.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Country      string    `json:"country"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Holiday is a read-only public holiday entry. It is never stored as a Task.
type Holiday struct {
	Date        string   `json:"date"`
	LocalName   string   `json:"localName"`
	Name        string   `json:"name"`
	CountryCode string   `json:"countryCode"`
	Fixed       bool     `json:"fixed"`
	Global      bool     `json:"global"`
	Counties    []string `json:"counties"`
	LaunchYear  *int     `json:"launchYear"`
	Types       []string `json:"types"`
}

// ParseDay normalizes a date string to a day key. Both YYYY-MM-DD and RFC3339
// timestamps are accepted; a timestamp keeps only its calendar date.
func ParseDay(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t.Format(DayLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(DayLayout), nil
	}
	return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

// DayKey formats t as a day key.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}
