package client

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"daybook/internal/calendar"
	"daybook/internal/models"
	"daybook/internal/reorder"
)

// SearchDebounce is the quiet period before a search query is sent.
const SearchDebounce = 300 * time.Millisecond

// API is the part of the server a Session needs.
type API interface {
	ListTasks(ctx context.Context, start, end string) ([]models.Task, error)
	SearchTasks(ctx context.Context, query string) ([]models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	Holidays(ctx context.Context, year int) ([]models.Holiday, error)
}

// SearchResult is delivered after a debounced search completes.
type SearchResult struct {
	Query string
	Tasks []models.Task
	Err   error
}

// Session holds one user's task index between fetches. Moves are applied to
// the view optimistically and planned against the last synced state.
type Session struct {
	api      API
	logger   *slog.Logger
	debounce time.Duration
	onSearch func(SearchResult)

	mu       sync.Mutex
	synced   reorder.Index
	view     reorder.Index
	start    string
	end      string
	stale    bool
	fetchSeq uint64
	applied  uint64
	holidays map[int][]models.Holiday

	searchGen   uint64
	searchTimer *time.Timer
	searchQuery string
	results     []models.Task
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDebounce overrides SearchDebounce.
func WithDebounce(d time.Duration) SessionOption {
	return func(s *Session) { s.debounce = d }
}

// WithSearchListener receives the result of every search that was not superseded.
func WithSearchListener(fn func(SearchResult)) SessionOption {
	return func(s *Session) { s.onSearch = fn }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession creates an empty session over api.
func NewSession(api API, opts ...SessionOption) *Session {
	s := &Session{
		api:      api,
		logger:   slog.Default(),
		debounce: SearchDebounce,
		synced:   reorder.Index{},
		view:     reorder.Index{},
		holidays: map[int][]models.Holiday{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load sets the visible range and fetches it.
func (s *Session) Load(ctx context.Context, start, end string) error {
	s.mu.Lock()
	s.start, s.end = start, end
	s.mu.Unlock()
	return s.Reconcile(ctx)
}

// Reconcile replaces the index with an authoritative fetch of the visible
// range. When fetches overlap, the one issued last wins.
func (s *Session) Reconcile(ctx context.Context) error {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	start, end := s.start, s.end
	s.mu.Unlock()

	tasks, err := s.api.ListTasks(ctx, start, end)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		s.logger.Debug("dropping superseded fetch", slog.Uint64("seq", seq))
		return nil
	}
	s.applied = seq
	s.synced = reorder.NewIndex(tasks)
	s.view = s.synced.Clone()
	s.stale = false
	return nil
}

// LoadHolidays fetches and keeps the holidays of year.
func (s *Session) LoadHolidays(ctx context.Context, year int) error {
	list, err := s.api.Holidays(ctx, year)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.holidays[year] = list
	s.mu.Unlock()
	return nil
}

// Move plans m against the synced index, shows it immediately and writes
// the batch. On a partial failure the session is marked stale and the
// *reorder.BatchError is returned; call Reconcile to resync.
func (s *Session) Move(ctx context.Context, m reorder.Move) (reorder.Batch, error) {
	s.mu.Lock()
	batch, err := reorder.Plan(s.synced, m)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.view.Apply(batch)
	s.syncResults()
	s.mu.Unlock()

	if len(batch) == 0 {
		return batch, nil
	}

	tasks, err := reorder.Submit(ctx, s.api, batch)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		s.synced[t.ID] = t
		s.view[t.ID] = t
	}
	s.syncResults()
	if err != nil {
		s.stale = true
		var be *reorder.BatchError
		if errors.As(err, &be) {
			s.logger.Warn("move partially saved", slog.Any("failed", be.Failed))
		}
		return batch, err
	}
	return batch, nil
}

// Stale reports whether the view may differ from the server.
func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// Day returns the view's tasks of one day in display order.
func (s *Session) Day(day string) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Day(day)
}

// Tasks returns the tasks currently shown: the search results while a query
// is active, otherwise the whole view.
func (s *Session) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchQuery != "" && s.results != nil {
		return append([]models.Task(nil), s.results...)
	}
	return s.view.Tasks()
}

// Search schedules a title search after the debounce period. A newer call
// supersedes an older one; results of superseded queries are dropped. A
// blank query clears the filter at once.
func (s *Session) Search(ctx context.Context, query string) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchGen++
	gen := s.searchGen
	if s.searchTimer != nil {
		s.searchTimer.Stop()
		s.searchTimer = nil
	}
	s.searchQuery = query
	if query == "" {
		s.results = nil
		return
	}

	s.searchTimer = time.AfterFunc(s.debounce, func() {
		tasks, err := s.api.SearchTasks(ctx, query)

		s.mu.Lock()
		if gen != s.searchGen {
			s.mu.Unlock()
			return
		}
		if err == nil {
			s.results = append([]models.Task{}, tasks...)
		}
		listener := s.onSearch
		s.mu.Unlock()

		if listener != nil {
			listener(SearchResult{Query: query, Tasks: tasks, Err: err})
		}
	})
}

// syncResults refreshes the active search results from the view. Callers
// hold s.mu.
func (s *Session) syncResults() {
	for i, t := range s.results {
		if v, ok := s.view[t.ID]; ok {
			s.results[i] = v
		}
	}
	reorder.SortDay(s.results)
	sort.SliceStable(s.results, func(i, j int) bool { return s.results[i].DueDate < s.results[j].DueDate })
}

// Close stops a pending search.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchGen++
	if s.searchTimer != nil {
		s.searchTimer.Stop()
	}
}

// Month projects the shown tasks into a month grid.
func (s *Session) Month(year int, month time.Month, today string) (calendar.MonthView, error) {
	tasks := s.Tasks()
	return calendar.Month(year, month, tasks, s.holidaysOf(year), today)
}

// Week projects the shown tasks into the week starting at start.
func (s *Session) Week(start, today string) (calendar.WeekView, error) {
	first, last, err := calendar.WeekRange(start)
	if err != nil {
		return calendar.WeekView{}, err
	}
	t1, _ := time.Parse(models.DayLayout, first)
	t2, _ := time.Parse(models.DayLayout, last)
	hols := s.holidaysOf(t1.Year())
	if t2.Year() != t1.Year() {
		hols = append(hols, s.holidaysOf(t2.Year())...)
	}
	return calendar.Week(first, s.Tasks(), hols, today)
}

func (s *Session) holidaysOf(year int) []models.Holiday {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Holiday(nil), s.holidays[year]...)
}
