package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	apperrors "daybook/internal/errors"
	"daybook/internal/models"
	"daybook/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// driverName is go-sqlite3 with a Unicode-aware fold() SQL function; the
// built-in LIKE only ignores case for ASCII letters.
const driverName = "sqlite3_daybook"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}

// Store wraps access to the SQLite database and exposes high level helpers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL UNIQUE COLLATE NOCASE,
            name TEXT NOT NULL,
            country TEXT NOT NULL,
            password_hash TEXT NOT NULL,
            created_at DATETIME NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            due_date TEXT NOT NULL,
            completed INTEGER NOT NULL DEFAULT 0,
            sort_order INTEGER NOT NULL DEFAULT 0,
            category TEXT NOT NULL DEFAULT 'personal',
            tags TEXT NOT NULL DEFAULT '[]',
            fixed INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_due ON tasks(user_id, due_date, sort_order);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

const taskColumns = `id, user_id, title, description, due_date, completed, sort_order, category, tags, fixed, created_at, updated_at`

// CreateUser stores a new account. A reused email yields a conflict error.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = s.now()

	_, err := s.db.ExecContext(ctx, `INSERT INTO users(id, email, name, country, password_hash, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Country, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, apperrors.NewConflictError("user with this email already exists")
		}
		return models.User{}, apperrors.NewDatabaseError("insert user", err)
	}
	return u, nil
}

// GetUser fetches an account by id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, email, name, country, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row, id)
}

// GetUserByEmail fetches an account by its (case-insensitive) email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.db.QueryRowContext(ctx, `SELECT id, email, name, country, password_hash, created_at FROM users WHERE email = ?`, email)
	return scanUser(row, email)
}

func scanUser(row *sql.Row, ident string) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Country, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperrors.NewNotFoundError("user", ident)
	}
	if err != nil {
		return models.User{}, apperrors.NewDatabaseError("get user", err)
	}
	return u, nil
}

// ListTasks returns the owner's tasks within the range ordered by day and order.
func (s *Store) ListTasks(ctx context.Context, ownerID string, r storage.DateRange) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	args := []any{ownerID}
	if r.Start != "" {
		query += ` AND due_date >= ?`
		args = append(args, r.Start)
	}
	if r.End != "" {
		query += ` AND due_date <= ?`
		args = append(args, r.End)
	}
	query += ` ORDER BY due_date, sort_order, created_at, id`
	return s.queryTasks(ctx, "list tasks", query, args...)
}

// SearchTasks matches the owner's task titles case-insensitively.
func (s *Store) SearchTasks(ctx context.Context, ownerID, text string) ([]models.Task, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(text))) + "%"
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? AND fold(title) LIKE ? ESCAPE '\'
        ORDER BY due_date, sort_order, created_at, id`
	return s.queryTasks(ctx, "search tasks", query, ownerID, pattern)
}

func (s *Store) queryTasks(ctx context.Context, op, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseError(op, err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(op, err)
	}
	return tasks, nil
}

// CreateTask inserts a new task at the end of its owner's day list.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return models.Task{}, apperrors.NewValidationError("task title must not be empty", nil)
	}
	if _, ok := models.ValidCategories[t.Category]; !ok {
		t.Category = models.CategoryPersonal
	}

	pos, err := s.nextOrder(ctx, t.OwnerID, t.DueDate)
	if err != nil {
		return models.Task{}, err
	}

	tags, err := encodeTags(t.Tags)
	if err != nil {
		return models.Task{}, err
	}

	now := s.now()
	t.ID = uuid.NewString()
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	t.Order = pos
	t.Fixed = t.Fixed || t.Category == models.CategoryHoliday
	t.CreatedAt, t.UpdatedAt = now, now

	_, err = s.db.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Title, t.Description, t.DueDate, t.Completed, t.Order, string(t.Category), tags, t.Fixed, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return models.Task{}, apperrors.NewDatabaseError("insert task", err)
	}
	return s.GetTask(ctx, t.ID)
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, apperrors.NewNotFoundError("task", id)
	}
	if err != nil {
		return models.Task{}, apperrors.NewDatabaseError("get task", err)
	}
	return t, nil
}

// UpdateTask applies a partial update. A task moved to another day without an
// explicit order is appended to the end of that day.
func (s *Store) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}

	next := patch.Apply(current)
	next.Title = strings.TrimSpace(next.Title)
	if next.Title == "" {
		return models.Task{}, apperrors.NewValidationError("task title must not be empty", nil)
	}

	if next.DueDate != current.DueDate && patch.Order == nil {
		pos, err := s.nextOrder(ctx, current.OwnerID, next.DueDate)
		if err != nil {
			return models.Task{}, err
		}
		next.Order = pos
	}

	tags, err := encodeTags(next.Tags)
	if err != nil {
		return models.Task{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Task{}, apperrors.NewDatabaseError("update task", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, due_date = ?, completed = ?, sort_order = ?, category = ?, tags = ?, fixed = ?, updated_at = ? WHERE id = ?`,
		next.Title, next.Description, next.DueDate, next.Completed, next.Order, string(next.Category), tags, next.Fixed, s.now(), id)
	if err != nil {
		return models.Task{}, apperrors.NewDatabaseError("update task", err)
	}
	// Reorder batches carry explicit orders for both days; only a bare day
	// change leaves a hole behind.
	if next.DueDate != current.DueDate && patch.Order == nil {
		if err := closeGap(ctx, tx, current.OwnerID, current.DueDate, current.Order); err != nil {
			return models.Task{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Task{}, apperrors.NewDatabaseError("update task", err)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task by id and returns what was removed.
func (s *Store) DeleteTask(ctx context.Context, id string) (models.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Task{}, apperrors.NewDatabaseError("delete task", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return models.Task{}, apperrors.NewDatabaseError("delete task", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Task{}, apperrors.NewDatabaseError("delete task", err)
	}
	if affected == 0 {
		return models.Task{}, apperrors.NewNotFoundError("task", id)
	}
	if err := closeGap(ctx, tx, current.OwnerID, current.DueDate, current.Order); err != nil {
		return models.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Task{}, apperrors.NewDatabaseError("delete task", err)
	}
	return current, nil
}

// closeGap shifts the tasks after a vacated order up by one.
func closeGap(ctx context.Context, tx *sql.Tx, ownerID, dueDate string, order int) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET sort_order = sort_order - 1 WHERE user_id = ? AND due_date = ? AND sort_order > ?`,
		ownerID, dueDate, order)
	if err != nil {
		return apperrors.NewDatabaseError("compact order", err)
	}
	return nil
}

func (s *Store) nextOrder(ctx context.Context, ownerID, dueDate string) (int, error) {
	var position sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM tasks WHERE user_id = ? AND due_date = ?`, ownerID, dueDate).Scan(&position)
	if err != nil {
		return 0, apperrors.NewDatabaseError("select order", err)
	}
	if position.Valid {
		return int(position.Int64) + 1, nil
	}
	return 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (models.Task, error) {
	var (
		t        models.Task
		category string
		tags     string
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.DueDate, &t.Completed, &t.Order, &category, &tags, &t.Fixed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	t.Category = models.Category(category)
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return models.Task{}, fmt.Errorf("decode tags: %w", err)
	}
	return t, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", apperrors.NewValidationError("invalid tags", err)
	}
	return string(b), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
