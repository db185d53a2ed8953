package board

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/nhle/taskboard/internal/model"
)

// searchSource adapts a task slice to fuzzy.Source.
type searchSource []model.Task

func (s searchSource) String(i int) string {
	return s[i].Title + " " + s[i].Description
}

func (s searchSource) Len() int { return len(s) }

// Search returns the tasks matching query in their stored order. An
// empty query matches everything.
func Search(tasks []model.Task, query string) []model.Task {
	query = strings.TrimSpace(query)
	if query == "" {
		return cloneAll(tasks)
	}

	matches := fuzzy.FindFrom(query, searchSource(tasks))
	idx := make([]int, len(matches))
	for i, m := range matches {
		idx[i] = m.Index
	}
	// fuzzy ranks by score; the board keeps its own order.
	sort.Ints(idx)

	out := make([]model.Task, len(idx))
	for i, j := range idx {
		out[i] = tasks[j].Clone()
	}
	return out
}
