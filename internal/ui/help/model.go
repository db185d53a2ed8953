package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/ui/command"
)

// section is one titled group of bindings.
type section struct {
	title    string
	bindings []key.Binding
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) sections() []section {
	k := m.keys
	return []section{
		{"Move", []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Select, k.Back}},
		{"Drag", []key.Binding{k.Grab, k.Drop, k.CycleSort}},
		{"Tasks", []key.Binding{k.New, k.Edit, k.Delete, k.Advance, k.Star, k.Priority, k.Undo}},
		{"Board", []key.Binding{k.Search, k.Refresh, k.ClearDone, k.ListView, k.Settings, k.Command, k.Help, k.Quit}},
		{"History", []key.Binding{k.History, k.Restore, k.RestoreAll, k.HardDelete, k.ClearAll, k.ToggleOrder}},
	}
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	headStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	colStyle := lipgloss.NewStyle().MarginRight(4)

	// One column per section; ShortHelpView renders a single group inline,
	// so each binding gets its own line instead.
	var cols []string
	for _, s := range m.sections() {
		lines := []string{headStyle.Render(s.title)}
		for _, b := range s.bindings {
			if !b.Enabled() {
				continue
			}
			lines = append(lines, m.help.ShortHelpView([]key.Binding{b}))
		}
		cols = append(cols, colStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	keysBlock := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	if lipgloss.Width(keysBlock) > m.width-6 {
		keysBlock = lipgloss.JoinVertical(lipgloss.Left, cols...)
	}

	cmdLines := []string{"", headStyle.Render("Commands (:)")}
	for _, c := range command.Commands {
		name := c.Name
		if c.Args != "" {
			name += " " + c.Args
		}
		cmdLines = append(cmdLines, m.help.ShortHelpView([]key.Binding{
			key.NewBinding(key.WithKeys(c.Name), key.WithHelp(name, c.Usage)),
		}))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		keysBlock,
		lipgloss.JoinVertical(lipgloss.Left, cmdLines...),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
