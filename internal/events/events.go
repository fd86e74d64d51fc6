// Package events publishes task change notifications.
package events

import (
	"context"
	"time"

	"daybook/internal/models"
)

// Type names a change.
type Type string

const (
	TaskCreated Type = "task.created"
	TaskUpdated Type = "task.updated"
	TaskDeleted Type = "task.deleted"
)

// Event is one task change.
type Event struct {
	Type Type        `json:"type"`
	Task models.Task `json:"task"`
	At   time.Time   `json:"at"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close()                               {}
