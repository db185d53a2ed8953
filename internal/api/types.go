package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nhle/taskboard/internal/model"
)

// wireLayout is how timestamps are sent: an ISO local date-time without
// zone, as the service expects.
const wireLayout = "2006-01-02T15:04:05"

// acceptedLayouts are tried in order when decoding timestamps.
var acceptedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	wireLayout,
	"2006-01-02T15:04",
	"2006-01-02",
}

// localTime is a timestamp in the service's wire format.
type localTime struct {
	time.Time
}

func (t localTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.In(time.Local).Format(wireLayout))
}

func (t *localTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decoding timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range acceptedLayouts {
		if v, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			if layout == "2006-01-02" {
				return model.EndOfDay(v), nil
			}
			return v, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// clearableTime is a patch timestamp. A non-nil value with no time
// encodes as null, which clears the field on the server.
type clearableTime struct {
	t *localTime
}

func (c clearableTime) MarshalJSON() ([]byte, error) {
	if c.t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c.t)
}

func wireTime(t *time.Time) *localTime {
	if t == nil || t.IsZero() {
		return nil
	}
	return &localTime{Time: *t}
}

func fromWire(t *localTime) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

func valueOf(t *localTime) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}

type subtaskDTO struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type activityDTO struct {
	ID        string     `json:"id"`
	Message   string     `json:"message"`
	Timestamp *localTime `json:"timestamp,omitempty"`
}

// taskDTO is the task JSON shape exchanged with the service.
type taskDTO struct {
	ID              string         `json:"id,omitempty"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Status          model.Status   `json:"status"`
	Priority        model.Priority `json:"priority"`
	DueDate         *localTime     `json:"dueDate,omitempty"`
	Important       bool           `json:"important"`
	ReminderEnabled bool           `json:"reminderEnabled"`
	ReminderTime    *localTime     `json:"reminderTime,omitempty"`
	Overdue         bool           `json:"overdue,omitempty"`
	Progress        float64        `json:"progress,omitempty"`
	CreatedAt       *localTime     `json:"createdAt,omitempty"`
	CompletedAt     *localTime     `json:"completedAt,omitempty"`
	Subtasks        []subtaskDTO   `json:"subtasks,omitempty"`
	Activities      []activityDTO  `json:"activities,omitempty"`
}

// patchDTO is the body of a partial update; only set fields are sent.
type patchDTO struct {
	Title           *string         `json:"title,omitempty"`
	Description     *string         `json:"description,omitempty"`
	Status          *model.Status   `json:"status,omitempty"`
	Priority        *model.Priority `json:"priority,omitempty"`
	DueDate         *localTime      `json:"dueDate,omitempty"`
	Important       *bool           `json:"important,omitempty"`
	ReminderEnabled *bool           `json:"reminderEnabled,omitempty"`
	ReminderTime    *clearableTime  `json:"reminderTime,omitempty"`
	Subtasks        *[]subtaskDTO   `json:"subtasks,omitempty"`
}

// pageDTO is a page of the paginated task list.
type pageDTO struct {
	Content       []taskDTO `json:"content"`
	TotalPages    int       `json:"totalPages"`
	TotalElements int       `json:"totalElements"`
	Size          int       `json:"size"`
	Number        int       `json:"number"`
}

// Page is one page of tasks returned by List.
type Page struct {
	Tasks         []model.Task
	TotalPages    int
	TotalElements int
	Size          int
	Number        int
}

// HasNext reports whether another page follows.
func (p Page) HasNext() bool {
	return p.Number+1 < p.TotalPages
}

func toTask(d taskDTO) model.Task {
	t := model.Task{
		ID:              d.ID,
		Title:           d.Title,
		Description:     d.Description,
		Status:          d.Status,
		Priority:        d.Priority,
		DueDate:         valueOf(d.DueDate),
		Important:       d.Important,
		ReminderEnabled: d.ReminderEnabled,
		ReminderTime:    fromWire(d.ReminderTime),
		Overdue:         d.Overdue,
		Progress:        d.Progress,
		CreatedAt:       valueOf(d.CreatedAt),
		CompletedAt:     fromWire(d.CompletedAt),
	}
	for _, s := range d.Subtasks {
		t.Subtasks = append(t.Subtasks, model.Subtask{ID: s.ID, Title: s.Title, Completed: s.Completed})
	}
	for _, a := range d.Activities {
		t.Activities = append(t.Activities, model.Activity{
			ID:        a.ID,
			Message:   a.Message,
			Timestamp: valueOf(a.Timestamp),
		})
	}
	return t
}

func toTasks(ds []taskDTO) []model.Task {
	out := make([]model.Task, 0, len(ds))
	for _, d := range ds {
		out = append(out, toTask(d))
	}
	return out
}

func subtasksToWire(subs []model.Subtask) []subtaskDTO {
	out := make([]subtaskDTO, 0, len(subs))
	for _, s := range subs {
		out = append(out, subtaskDTO{ID: s.ID, Title: s.Title, Completed: s.Completed})
	}
	return out
}

// fromTask builds a create body. Server-owned fields are left out.
func fromTask(t model.Task) taskDTO {
	d := taskDTO{
		Title:           t.Title,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		DueDate:         wireTime(&t.DueDate),
		Important:       t.Important,
		ReminderEnabled: t.ReminderEnabled,
		ReminderTime:    wireTime(t.ReminderTime),
	}
	if len(t.Subtasks) > 0 {
		d.Subtasks = subtasksToWire(t.Subtasks)
	}
	return d
}

func fromPatch(p model.TaskPatch) patchDTO {
	d := patchDTO{
		Title:           p.Title,
		Description:     p.Description,
		Status:          p.Status,
		Priority:        p.Priority,
		DueDate:         wireTime(p.DueDate),
		Important:       p.Important,
		ReminderEnabled: p.ReminderEnabled,
	}
	switch {
	case p.ReminderTime != nil:
		d.ReminderTime = &clearableTime{t: wireTime(p.ReminderTime)}
	case p.ReminderEnabled != nil && !*p.ReminderEnabled:
		d.ReminderTime = &clearableTime{}
	}
	if p.SetSubtasks {
		subs := subtasksToWire(p.Subtasks)
		d.Subtasks = &subs
	}
	return d
}
