// Package storage declares the persistence contracts shared by the sqlite and
// mongo backends.
package storage

import (
	"context"

	"daybook/internal/models"
)

// DateRange bounds a task listing by due day. Both ends are inclusive day keys;
// an empty end leaves that side open.
type DateRange struct {
	Start string
	End   string
}

// TaskStore is the durable source of truth for tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, t models.Task) (models.Task, error)
	ListTasks(ctx context.Context, ownerID string, r DateRange) ([]models.Task, error)
	SearchTasks(ctx context.Context, ownerID, text string) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id string) (models.Task, error)
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// Store is a complete backend.
type Store interface {
	TaskStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}
