package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(m Model, s string) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: k})
}

func TestEnterEmitsTrimmedCommand(t *testing.T) {
	m := New(80, 20)
	m = typeText(m, "  sort due ")

	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg("sort due"), cmd())
	assert.Empty(t, m.input.Value())
}

func TestEnterOnBlankDoesNothing(t *testing.T) {
	m := New(80, 20)
	_, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
}

func TestTabCompletesUniquePrefix(t *testing.T) {
	m := New(80, 20)
	m = typeText(m, "cl")
	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, "clear-done ", m.input.Value())

	m.input.SetValue("")
	m = typeText(m, "h")
	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, "h", m.input.Value(), "history and help are both candidates")
}

func TestSuggestions(t *testing.T) {
	assert.Len(t, Suggestions(""), len(Commands))

	names := func(specs []Spec) []string {
		var out []string
		for _, s := range specs {
			out = append(out, s.Name)
		}
		return out
	}
	assert.Equal(t, []string{"history", "help"}, names(Suggestions("h")))
	assert.Equal(t, []string{"sort"}, names(Suggestions("sort pri")))
	assert.Empty(t, Suggestions("zzz"))
}

func TestUpRecallsPreviousLines(t *testing.T) {
	m := New(80, 20)
	for _, line := range []string{"refresh", "sort due"} {
		m = typeText(m, line)
		m, _ = press(m, tea.KeyEnter)
	}

	m, _ = press(m, tea.KeyUp)
	assert.Equal(t, "sort due", m.input.Value())
	m, _ = press(m, tea.KeyUp)
	assert.Equal(t, "refresh", m.input.Value())
	m, _ = press(m, tea.KeyUp)
	assert.Equal(t, "refresh", m.input.Value())

	m, _ = press(m, tea.KeyDown)
	m, _ = press(m, tea.KeyDown)
	assert.Empty(t, m.input.Value())
}

func TestViewListsMatchingCommands(t *testing.T) {
	m := New(100, 20)
	m = typeText(m, "so")

	v := m.View()
	assert.Contains(t, v, "set or cycle the sort")
	assert.NotContains(t, v, "restore the last deleted task")
}
