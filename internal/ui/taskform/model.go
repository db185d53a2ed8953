package taskform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// Accepted date input layouts. A bare date means the end of that day.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// TaskCreatedMsg is dispatched when the form is submitted in create mode.
type TaskCreatedMsg struct {
	Task model.Task
}

// TaskUpdatedMsg is dispatched when the form is submitted in edit mode.
// Patch holds only the fields that changed.
type TaskUpdatedMsg struct {
	ID    string
	Patch model.TaskPatch
}

// FormCancelMsg is dispatched when the user cancels the form.
type FormCancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title           string
	description     string
	status          model.Status
	priority        model.Priority
	dueDate         string
	important       bool
	reminderEnabled bool
	reminderTime    string
	subtasks        string
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	editMode bool
	original model.Task
	err      error
	now      func() time.Time
	width    int
	height   int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{status: model.StatusTodo, priority: model.PriorityMedium},
		now:    time.Now,
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new task in the given column.
func (m *Model) StartCreate(status model.Status) tea.Cmd {
	m.editMode = false
	m.original = model.Task{}
	m.err = nil
	*m.fb = formBindings{
		status:   status,
		priority: model.PriorityMedium,
		dueDate:  m.now().Format(dateLayout),
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form with an existing task.
func (m *Model) StartEdit(task model.Task) tea.Cmd {
	m.editMode = true
	m.original = task.Clone()
	m.err = nil
	*m.fb = formBindings{
		title:           task.Title,
		description:     task.Description,
		status:          task.Status,
		priority:        task.Priority,
		dueDate:         formatDate(task.DueDate),
		important:       task.Important,
		reminderEnabled: task.ReminderEnabled,
		subtasks:        formatSubtasks(task.Subtasks),
	}
	if task.ReminderTime != nil {
		m.fb.reminderTime = task.ReminderTime.Format(dateTimeLayout)
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return FormCancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n"
	if m.err != nil {
		content += theme.OverdueStyle.Render(m.err.Error()) + "\n\n"
	}
	content += m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	statusOpts := make([]huh.Option[model.Status], 0, 3)
	for _, s := range model.Columns() {
		statusOpts = append(statusOpts, huh.NewOption(s.Label(), s))
	}
	priorityOpts := make([]huh.Option[model.Priority], 0, 3)
	for _, p := range model.Priorities() {
		priorityOpts = append(priorityOpts, huh.NewOption(p.String(), p))
	}

	main := huh.NewGroup(
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Description").
			Placeholder("Optional details...").
			Value(&m.fb.description),
		huh.NewSelect[model.Status]().
			Title("Status").
			Options(statusOpts...).
			Value(&m.fb.status),
		huh.NewSelect[model.Priority]().
			Title("Priority").
			Options(priorityOpts...).
			Value(&m.fb.priority),
		huh.NewInput().
			Title("Due Date").
			Placeholder("YYYY-MM-DD or YYYY-MM-DD HH:MM").
			Value(&m.fb.dueDate).
			Validate(validateDate(true)),
		huh.NewConfirm().
			Title("Important?").
			Value(&m.fb.important),
	)

	extra := huh.NewGroup(
		huh.NewConfirm().
			Title("Reminder?").
			Value(&m.fb.reminderEnabled),
		huh.NewInput().
			Title("Reminder Time").
			Placeholder("YYYY-MM-DD HH:MM").
			Value(&m.fb.reminderTime).
			Validate(validateDate(false)),
		huh.NewText().
			Title("Subtasks").
			Placeholder("One per line, prefix with [x] when done").
			Value(&m.fb.subtasks),
	)

	return huh.NewForm(main, extra).
		WithWidth(m.formWidth()).
		WithHeight(m.formHeight())
}

// handleSubmit builds the task, runs the cross-field checks and either
// emits the result or reopens the form with the error shown.
func (m Model) handleSubmit() (Model, tea.Cmd) {
	task, err := m.buildTask()
	if err == nil {
		err = model.ValidateTask(task, m.now())
	}
	if err != nil {
		m.err = err
		m.form = m.buildForm()
		return m, m.form.Init()
	}

	if m.editMode {
		id := m.original.ID
		patch := model.Diff(m.original, task)
		return m, func() tea.Msg { return TaskUpdatedMsg{ID: id, Patch: patch} }
	}
	return m, func() tea.Msg { return TaskCreatedMsg{Task: task} }
}

func (m Model) buildTask() (model.Task, error) {
	task := m.original.Clone()
	task.Title = strings.TrimSpace(m.fb.title)
	task.Description = m.fb.description
	task.Status = m.fb.status
	task.Priority = m.fb.priority
	task.Important = m.fb.important
	task.ReminderEnabled = m.fb.reminderEnabled
	task.Subtasks = parseSubtasks(m.fb.subtasks, m.original.Subtasks)

	due, err := parseDate(m.fb.dueDate)
	if err != nil {
		return model.Task{}, &model.ValidationError{Field: "dueDate", Message: err.Error()}
	}
	task.DueDate = due

	task.ReminderTime = nil
	if task.ReminderEnabled && strings.TrimSpace(m.fb.reminderTime) != "" {
		rt, err := parseDate(m.fb.reminderTime)
		if err != nil {
			return model.Task{}, &model.ValidationError{Field: "reminderTime", Message: err.Error()}
		}
		task.ReminderTime = &rt
	}
	return task, nil
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 6
	if h < 10 {
		h = 10
	}
	return h
}

// parseDate accepts a bare date (end of that day) or a date and time, in
// local time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(dateTimeLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD or YYYY-MM-DD HH:MM", s)
	}
	return model.EndOfDay(t), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if model.IsDateOnly(t) {
		return t.Format(dateLayout)
	}
	return t.Format(dateTimeLayout)
}

// parseSubtasks reads one subtask per line. Lines matching an existing
// title keep that subtask's id.
func parseSubtasks(text string, existing []model.Subtask) []model.Subtask {
	byTitle := make(map[string]model.Subtask, len(existing))
	for _, s := range existing {
		byTitle[s.Title] = s
	}

	var out []model.Subtask
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		done := false
		switch {
		case strings.HasPrefix(line, "[x]"), strings.HasPrefix(line, "[X]"):
			done = true
			line = strings.TrimSpace(line[3:])
		case strings.HasPrefix(line, "[ ]"):
			line = strings.TrimSpace(line[3:])
		}
		if line == "" {
			continue
		}
		sub := model.Subtask{Title: line, Completed: done}
		if prev, ok := byTitle[line]; ok {
			sub.ID = prev.ID
		}
		out = append(out, sub)
	}
	if len(out) == 0 && len(existing) == 0 {
		return existing
	}
	return out
}

func formatSubtasks(subs []model.Subtask) string {
	lines := make([]string, len(subs))
	for i, s := range subs {
		mark := "[ ]"
		if s.Completed {
			mark = "[x]"
		}
		lines[i] = mark + " " + s.Title
	}
	return strings.Join(lines, "\n")
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateDate(required bool) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			if required {
				return fmt.Errorf("due date is required")
			}
			return nil
		}
		_, err := parseDate(s)
		return err
	}
}
