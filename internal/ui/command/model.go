package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/theme"
)

// CommandMsg is emitted when the user executes a command.
type CommandMsg string

// Spec describes one palette command.
type Spec struct {
	Name  string
	Args  string
	Usage string
}

// Commands lists what the palette understands, in suggestion order.
var Commands = []Spec{
	{Name: "refresh", Usage: "reload the board from the server"},
	{Name: "new", Args: "[todo|doing|done]", Usage: "create a task"},
	{Name: "sort", Args: "[manual|priority|due|created|title]", Usage: "set or cycle the sort"},
	{Name: "clear-done", Usage: "move every Done task to history"},
	{Name: "undo", Usage: "restore the last deleted task"},
	{Name: "history", Usage: "open deleted tasks"},
	{Name: "list", Usage: "show all tasks as a list"},
	{Name: "board", Usage: "back to the board"},
	{Name: "config", Usage: "edit settings"},
	{Name: "help", Usage: "keyboard shortcuts"},
	{Name: "quit", Usage: "exit"},
}

// maxHistory bounds the recalled command lines.
const maxHistory = 20

// Model is the command palette view.
type Model struct {
	input   textinput.Model
	history []string
	// recall indexes history while browsing with up/down; len(history)
	// means the fresh line.
	recall int
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command, tab completes"
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			m.remember(line)
			return m, func() tea.Msg { return CommandMsg(line) }
		case "tab":
			if name, ok := complete(m.input.Value()); ok {
				m.input.SetValue(name + " ")
				m.input.CursorEnd()
			}
			return m, nil
		case "up":
			if m.recall > 0 {
				m.recall--
				m.input.SetValue(m.history[m.recall])
				m.input.CursorEnd()
			}
			return m, nil
		case "down":
			if m.recall < len(m.history) {
				m.recall++
				if m.recall == len(m.history) {
					m.input.SetValue("")
				} else {
					m.input.SetValue(m.history[m.recall])
				}
				m.input.CursorEnd()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) remember(line string) {
	if n := len(m.history); n == 0 || m.history[n-1] != line {
		m.history = append(m.history, line)
	}
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.recall = len(m.history)
}

// Suggestions returns the commands whose name starts with the first word
// typed so far.
func Suggestions(input string) []Spec {
	word := strings.ToLower(strings.TrimSpace(input))
	if i := strings.IndexByte(word, ' '); i >= 0 {
		word = word[:i]
	}
	var out []Spec
	for _, c := range Commands {
		if strings.HasPrefix(c.Name, word) {
			out = append(out, c)
		}
	}
	return out
}

// complete returns the single command the input can only be a prefix of.
func complete(input string) (string, bool) {
	if strings.Contains(strings.TrimSpace(input), " ") {
		return "", false
	}
	s := Suggestions(input)
	if len(s) != 1 {
		return "", false
	}
	return s[0].Name, true
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	nameStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue)
	usageStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	lines := []string{titleStyle.Render("Command Palette"), m.input.View(), ""}
	for _, c := range Suggestions(m.input.Value()) {
		name := c.Name
		if c.Args != "" {
			name += " " + c.Args
		}
		lines = append(lines, nameStyle.Render(name)+"  "+usageStyle.Render(c.Usage))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	m.recall = len(m.history)
	return m.input.Focus()
}
