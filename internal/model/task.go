package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the column a task lives in.
type Status uint8

const (
	StatusTodo Status = iota
	StatusDoing
	StatusDone
)

// Columns returns the board columns in display order.
func Columns() []Status {
	return []Status{StatusTodo, StatusDoing, StatusDone}
}

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusTodo:
		return "TODO"
	case StatusDoing:
		return "DOING"
	case StatusDone:
		return "DONE"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Label returns the column heading shown on the board.
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusDoing:
		return "Doing"
	case StatusDone:
		return "Done"
	default:
		return s.String()
	}
}

// Next cycles TODO -> DOING -> DONE -> TODO.
func (s Status) Next() Status {
	switch s {
	case StatusTodo:
		return StatusDoing
	case StatusDoing:
		return StatusDone
	default:
		return StatusTodo
	}
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return s <= StatusDone
}

// ParseStatus converts a wire name (case-insensitive) into a Status.
func ParseStatus(v string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "TODO":
		return StatusTodo, nil
	case "DOING":
		return StatusDoing, nil
	case "DONE":
		return StatusDone, nil
	}
	return 0, fmt.Errorf("unknown status %q", v)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Priority is the user-assigned urgency of a task.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// Priorities returns all priorities from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("Priority(%d)", uint8(p))
	}
}

// Weight is the sort weight of a priority; higher sorts first.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Next cycles LOW -> MEDIUM -> HIGH -> LOW.
func (p Priority) Next() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return PriorityLow
	}
}

func (p Priority) Valid() bool {
	return p <= PriorityHigh
}

// ParsePriority converts a wire name (case-insensitive) into a Priority.
func ParsePriority(v string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "LOW":
		return PriorityLow, nil
	case "MEDIUM":
		return PriorityMedium, nil
	case "HIGH":
		return PriorityHigh, nil
	}
	return 0, fmt.Errorf("unknown priority %q", v)
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid priority %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Subtask is a checklist entry owned by a task.
type Subtask struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Activity is a server-authored audit entry. Read-only on the client.
type Activity struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Task is a card on the board.
type Task struct {
	// ID is assigned by the server on create and never changes.
	ID string `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// Status decides the column the task is shown under.
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`

	// DueDate is required. A date-only value is stored as EndOfDay.
	DueDate time.Time `json:"dueDate"`

	// Important is a star flag independent of Priority.
	Important bool `json:"important"`

	ReminderEnabled bool       `json:"reminderEnabled"`
	ReminderTime    *time.Time `json:"reminderTime,omitempty"`

	Subtasks   []Subtask  `json:"subtasks,omitempty"`
	Activities []Activity `json:"activities,omitempty"`

	// Server computed.
	Overdue     bool       `json:"overdue"`
	Progress    float64    `json:"progress"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Clone returns a deep copy so callers can mutate slices freely.
func (t Task) Clone() Task {
	c := t
	if t.Subtasks != nil {
		c.Subtasks = append([]Subtask(nil), t.Subtasks...)
	}
	if t.Activities != nil {
		c.Activities = append([]Activity(nil), t.Activities...)
	}
	if t.ReminderTime != nil {
		rt := *t.ReminderTime
		c.ReminderTime = &rt
	}
	if t.CompletedAt != nil {
		ca := *t.CompletedAt
		c.CompletedAt = &ca
	}
	return c
}

// CompletedSubtasks counts the checked checklist entries.
func (t Task) CompletedSubtasks() int {
	n := 0
	for _, s := range t.Subtasks {
		if s.Completed {
			n++
		}
	}
	return n
}

// EndOfDay returns 23:59:59 of the day of t, the sentinel used for
// date-only due dates.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// IsDateOnly reports whether t carries the date-only sentinel time.
func IsDateOnly(t time.Time) bool {
	return t.Hour() == 23 && t.Minute() == 59 && t.Second() == 59
}
