package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationLevel controls how a notification is styled.
type NotificationLevel int

const (
	LevelInfo NotificationLevel = iota
	LevelSuccess
	LevelError
)

// Notification is a transient message surfaced to the user after a
// board operation.
type Notification struct {
	ID      string
	Level   NotificationLevel
	Message string

	// UndoTaskID is set when the notification offers to restore a
	// just-deleted task.
	UndoTaskID string

	CreatedAt time.Time
}

// NewNotification stamps a notification with a fresh ID.
func NewNotification(level NotificationLevel, msg string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   msg,
		CreatedAt: time.Now(),
	}
}

// HasUndo reports whether the notification carries an undo action.
func (n Notification) HasUndo() bool {
	return n.UndoTaskID != ""
}
