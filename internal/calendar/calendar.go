// Package calendar projects a flat task list into month and week views.
package calendar

import (
	"fmt"
	"time"

	"daybook/internal/models"
	"daybook/internal/reorder"
)

// Cell is one day slot of a view. Placeholder cells of a month grid have an
// empty Date and no entries.
type Cell struct {
	Date     string           `json:"date,omitempty"`
	Day      int              `json:"day,omitempty"`
	Past     bool             `json:"past"`
	Today    bool             `json:"today"`
	Tasks    []models.Task    `json:"tasks"`
	Holidays []models.Holiday `json:"holidays"`
}

// Placeholder reports whether the cell lies outside the projected month.
func (c Cell) Placeholder() bool {
	return c.Date == ""
}

// MonthView is a Sunday-first grid whose length is a multiple of seven.
type MonthView struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Offset int    `json:"offset"`
	Days   int    `json:"days"`
	Cells  []Cell `json:"cells"`
}

// WeekView is seven consecutive days starting at Start.
type WeekView struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Cells []Cell `json:"cells"`
}

// GridSize returns the number of cells needed for a month of days starting
// offset cells into the first week.
func GridSize(days, offset int) int {
	return (days + offset + 6) / 7 * 7
}

// Month projects tasks and holidays into the grid of year/month. today is a
// day key; dates before it are marked past.
func Month(year int, month time.Month, tasks []models.Task, holidays []models.Holiday, today string) (MonthView, error) {
	if month < time.January || month > time.December {
		return MonthView{}, fmt.Errorf("invalid month %d", month)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	offset := int(first.Weekday())

	b := newBuckets(tasks, holidays)
	cells := make([]Cell, GridSize(days, offset))
	for i := range cells {
		day := i - offset + 1
		if day < 1 || day > days {
			cells[i] = Cell{Tasks: []models.Task{}, Holidays: []models.Holiday{}}
			continue
		}
		cells[i] = b.cell(first.AddDate(0, 0, day-1), today)
	}

	return MonthView{Year: year, Month: int(month), Offset: offset, Days: days, Cells: cells}, nil
}

// Week projects the seven days starting at start (a day key).
func Week(start string, tasks []models.Task, holidays []models.Holiday, today string) (WeekView, error) {
	first, err := time.Parse(models.DayLayout, start)
	if err != nil {
		return WeekView{}, fmt.Errorf("invalid week start %q: %w", start, err)
	}

	b := newBuckets(tasks, holidays)
	cells := make([]Cell, 7)
	for i := range cells {
		cells[i] = b.cell(first.AddDate(0, 0, i), today)
	}
	return WeekView{Start: start, End: models.DayKey(first.AddDate(0, 0, 6)), Cells: cells}, nil
}

// MonthRange returns the first and last day keys of a month.
func MonthRange(year int, month time.Month) (string, string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return models.DayKey(first), models.DayKey(first.AddDate(0, 1, -1))
}

// WeekRange returns the first and last day keys of the week starting at start.
func WeekRange(start string) (string, string, error) {
	first, err := time.Parse(models.DayLayout, start)
	if err != nil {
		return "", "", fmt.Errorf("invalid week start %q: %w", start, err)
	}
	return start, models.DayKey(first.AddDate(0, 0, 6)), nil
}

type buckets struct {
	tasks    map[string][]models.Task
	holidays map[string][]models.Holiday
}

func newBuckets(tasks []models.Task, holidays []models.Holiday) buckets {
	b := buckets{
		tasks:    make(map[string][]models.Task),
		holidays: make(map[string][]models.Holiday),
	}
	for _, t := range tasks {
		b.tasks[t.DueDate] = append(b.tasks[t.DueDate], t)
	}
	for _, list := range b.tasks {
		reorder.SortDay(list)
	}
	for _, h := range holidays {
		b.holidays[h.Date] = append(b.holidays[h.Date], h)
	}
	return b
}

func (b buckets) cell(date time.Time, today string) Cell {
	key := models.DayKey(date)
	tasks := append([]models.Task{}, b.tasks[key]...)
	holidays := append([]models.Holiday{}, b.holidays[key]...)
	return Cell{
		Date:     key,
		Day:      date.Day(),
		Past:     today != "" && key < today,
		Today:    key == today,
		Tasks:    tasks,
		Holidays: holidays,
	}
}
