package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError reports a task field that failed client-side checks.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err (or any error in its chain) is a
// ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateTask checks the fields a task must carry before it is sent to
// the server. now is the reference for "in the past".
func ValidateTask(t Task, now time.Time) error {
	if strings.TrimSpace(t.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if t.DueDate.IsZero() {
		return &ValidationError{Field: "dueDate", Message: "due date is required"}
	}
	if !t.Status.Valid() {
		return &ValidationError{Field: "status", Message: "unknown status"}
	}
	if !t.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: "unknown priority"}
	}
	if !t.ReminderEnabled {
		return nil
	}
	if t.ReminderTime == nil {
		return &ValidationError{Field: "reminderTime", Message: "reminder time is required"}
	}
	if t.ReminderTime.Before(now) {
		return &ValidationError{Field: "reminderTime", Message: "reminder time is in the past"}
	}
	if t.ReminderTime.After(t.DueDate) {
		return &ValidationError{Field: "reminderTime", Message: "reminder time is after the due date"}
	}
	return nil
}
