package model

import "time"

// TaskPatch carries the fields of a partial update. Nil fields are left
// untouched.
type TaskPatch struct {
	Title           *string
	Description     *string
	Status          *Status
	Priority        *Priority
	DueDate         *time.Time
	Important       *bool
	ReminderEnabled *bool
	ReminderTime    *time.Time
	Subtasks        []Subtask
	// SetSubtasks distinguishes "replace with empty list" from "unchanged".
	SetSubtasks bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.DueDate == nil && p.Important == nil &&
		p.ReminderEnabled == nil && p.ReminderTime == nil && !p.SetSubtasks
}

// Apply returns t with the patch shallow-merged in.
func (p TaskPatch) Apply(t Task) Task {
	out := t.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.DueDate != nil {
		out.DueDate = *p.DueDate
	}
	if p.Important != nil {
		out.Important = *p.Important
	}
	if p.ReminderEnabled != nil {
		out.ReminderEnabled = *p.ReminderEnabled
	}
	switch {
	case p.ReminderTime != nil:
		rt := *p.ReminderTime
		out.ReminderTime = &rt
	case p.ReminderEnabled != nil && !*p.ReminderEnabled:
		out.ReminderTime = nil
	}
	if p.SetSubtasks {
		out.Subtasks = append([]Subtask(nil), p.Subtasks...)
	}
	return out
}

// StatusPatch is the patch a drop persists.
func StatusPatch(s Status) TaskPatch {
	return TaskPatch{Status: &s}
}

// SubtasksPatch replaces the checklist.
func SubtasksPatch(subtasks []Subtask) TaskPatch {
	return TaskPatch{Subtasks: subtasks, SetSubtasks: true}
}

// PatchFromTask builds a patch that sets every client-editable field of t.
func PatchFromTask(t Task) TaskPatch {
	p := TaskPatch{
		Title:           &t.Title,
		Description:     &t.Description,
		Status:          &t.Status,
		Priority:        &t.Priority,
		DueDate:         &t.DueDate,
		Important:       &t.Important,
		ReminderEnabled: &t.ReminderEnabled,
		Subtasks:        append([]Subtask(nil), t.Subtasks...),
		SetSubtasks:     true,
	}
	if t.ReminderTime != nil {
		rt := *t.ReminderTime
		p.ReminderTime = &rt
	}
	return p
}

// NeedsValidation reports whether the patch touches a field checked by
// ValidateTask. Single-field board edits (status, priority, star,
// checklist) skip validation so a lapsed reminder cannot block them.
func (p TaskPatch) NeedsValidation() bool {
	return p.Title != nil || p.DueDate != nil || p.ReminderEnabled != nil || p.ReminderTime != nil
}

// Diff returns the patch that turns from into to, covering only
// client-editable fields that differ.
func Diff(from, to Task) TaskPatch {
	var p TaskPatch
	if from.Title != to.Title {
		p.Title = &to.Title
	}
	if from.Description != to.Description {
		p.Description = &to.Description
	}
	if from.Status != to.Status {
		p.Status = &to.Status
	}
	if from.Priority != to.Priority {
		p.Priority = &to.Priority
	}
	if !from.DueDate.Equal(to.DueDate) {
		p.DueDate = &to.DueDate
	}
	if from.Important != to.Important {
		p.Important = &to.Important
	}
	if from.ReminderEnabled != to.ReminderEnabled {
		p.ReminderEnabled = &to.ReminderEnabled
	}
	if to.ReminderTime != nil && (from.ReminderTime == nil || !from.ReminderTime.Equal(*to.ReminderTime)) {
		rt := *to.ReminderTime
		p.ReminderTime = &rt
	}
	if !sameSubtasks(from.Subtasks, to.Subtasks) {
		p.Subtasks = append([]Subtask(nil), to.Subtasks...)
		p.SetSubtasks = true
	}
	return p
}

func sameSubtasks(a, b []Subtask) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
