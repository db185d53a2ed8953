package board

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nhle/taskboard/internal/model"
)

// SortMode selects how a column is ordered for display.
type SortMode int

const (
	// SortManual keeps the stored order. Dragging is only possible here.
	SortManual SortMode = iota
	SortPriority
	SortDueDate
	SortCreated
	SortTitle
)

// SortModes lists the modes in the order the UI cycles through them.
func SortModes() []SortMode {
	return []SortMode{SortManual, SortPriority, SortDueDate, SortCreated, SortTitle}
}

func (m SortMode) String() string {
	switch m {
	case SortManual:
		return "manual"
	case SortPriority:
		return "priority"
	case SortDueDate:
		return "due"
	case SortCreated:
		return "created"
	case SortTitle:
		return "title"
	default:
		return fmt.Sprintf("SortMode(%d)", int(m))
	}
}

// Next cycles to the following sort mode.
func (m SortMode) Next() SortMode {
	modes := SortModes()
	for i, mode := range modes {
		if mode == m {
			return modes[(i+1)%len(modes)]
		}
	}
	return SortManual
}

// ParseSortMode converts a config value into a SortMode.
func ParseSortMode(v string) (SortMode, error) {
	for _, m := range SortModes() {
		if strings.EqualFold(v, m.String()) {
			return m, nil
		}
	}
	return SortManual, fmt.Errorf("unknown sort mode %q", v)
}

// Sort returns a sorted copy of tasks. The input is never modified and
// ties keep their stored order.
func Sort(tasks []model.Task, mode SortMode) []model.Task {
	out := cloneAll(tasks)
	var less func(a, b model.Task) bool

	switch mode {
	case SortManual:
		return out
	case SortPriority:
		less = func(a, b model.Task) bool {
			if a.Priority.Weight() != b.Priority.Weight() {
				return a.Priority.Weight() > b.Priority.Weight()
			}
			return a.Important && !b.Important
		}
	case SortDueDate:
		less = func(a, b model.Task) bool { return a.DueDate.Before(b.DueDate) }
	case SortCreated:
		less = func(a, b model.Task) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortTitle:
		less = func(a, b model.Task) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
