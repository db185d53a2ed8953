package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/credential"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// checkTimeout bounds the connection test.
const checkTimeout = 15 * time.Second

// ConfigMode represents the current mode of the settings view.
type ConfigMode int

const (
	ModeForm ConfigMode = iota
	ModeValidating
	ModeValidateResult
)

// ConfigDoneMsg is sent when the user leaves the settings view.
type ConfigDoneMsg struct {
	// Saved is set when a new config was written.
	Saved bool
}

// ConnChecker checks that a server is reachable with a token and returns the
// number of live tasks it reports.
type ConnChecker func(ctx context.Context, baseURL, token string) (int, error)

type validateResultMsg struct {
	tasks int
	err   error
}

type savedMsg struct {
	err error
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	baseURL       string
	token         string
	timeoutSec    string
	pageSize      string
	restoreStatus model.Status
	pollInterval  string
	defaultSort   board.SortMode
	theme         string
}

// Model is the settings view: a form over the connection and board
// settings, a connection test, then a save.
type Model struct {
	mode      ConfigMode
	path      string
	cfg       model.AppConfig
	fb        *formBindings
	form      *huh.Form
	spinner   spinner.Model
	check     ConnChecker
	saveToken func(string) error

	validTasks int
	validError error
	verified   bool
	saveError  error
	saved      bool

	keys          *keys.KeyMap
	width, height int
}

// New creates a settings view editing cfg, saved to path.
func New(path string, cfg *model.AppConfig, check ConnChecker, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:    ModeForm,
		path:    path,
		cfg:     *cfg,
		fb:      &formBindings{},
		spinner: sp,
		check:   check,
		saveToken: func(token string) error {
			return credential.Set(credential.TokenKey, token)
		},
		keys:   k,
		width:  width,
		height: height,
	}
}

// Open fills the form from the current config.
func (m *Model) Open() tea.Cmd {
	c := m.cfg
	*m.fb = formBindings{
		baseURL:       c.API.BaseURL,
		timeoutSec:    strconv.Itoa(c.API.TimeoutSec),
		pageSize:      strconv.Itoa(c.API.PageSize),
		restoreStatus: c.RestoreStatusValue(),
		pollInterval:  strconv.Itoa(c.Board.PollIntervalSec),
		theme:         c.Display.Theme,
	}
	if mode, err := board.ParseSortMode(c.Board.DefaultSort); err == nil {
		m.fb.defaultSort = mode
	}
	if m.fb.theme == "" {
		m.fb.theme = theme.ThemeDefault
	}
	m.mode = ModeForm
	m.validError = nil
	m.saveError = nil
	m.saved = false
	m.verified = false
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case validateResultMsg:
		m.validTasks = msg.tasks
		m.validError = msg.err
		m.verified = msg.err == nil
		if msg.err != nil {
			m.mode = ModeValidateResult
			return m, nil
		}
		return m, m.save()

	case savedMsg:
		m.mode = ModeValidateResult
		m.saveError = msg.err
		m.saved = msg.err == nil
		if m.saved {
			m.validError = nil
		}
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeValidating:
			if key.Matches(msg, m.keys.Back) {
				m.mode = ModeForm
				m.form = m.buildForm()
				return m, m.form.Init()
			}
			return m, nil
		case ModeValidateResult:
			return m.handleResultKeys(msg)
		case ModeForm:
			if key.Matches(msg, m.keys.Back) {
				return m, func() tea.Msg { return ConfigDoneMsg{} }
			}
		}
	}

	return m.updateForm(msg)
}

func (m Model) handleResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		if m.validError != nil {
			return m.startValidation()
		}
	case "s":
		// Save without a reachable server.
		if m.validError != nil {
			return m, m.save()
		}
	case "e":
		m.mode = ModeForm
		m.form = m.buildForm()
		return m, m.form.Init()
	case "enter", "esc":
		saved := m.saved
		return m, func() tea.Msg { return ConfigDoneMsg{Saved: saved} }
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.startValidation()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return ConfigDoneMsg{} }
	}

	return m, cmd
}

func (m *Model) buildForm() *huh.Form {
	statuses := make([]huh.Option[model.Status], 0, 3)
	for _, s := range model.Columns() {
		statuses = append(statuses, huh.NewOption(s.Label(), s))
	}
	sorts := make([]huh.Option[board.SortMode], 0, len(board.SortModes()))
	for _, s := range board.SortModes() {
		sorts = append(sorts, huh.NewOption(s.String(), s))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("Task service base URL (e.g., http://localhost:8080)").
				Value(&m.fb.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("API token").
				Description("Leave empty to keep the stored token").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.token),
			huh.NewInput().
				Title("Request timeout (seconds)").
				Value(&m.fb.timeoutSec).
				Validate(validatePositive("Timeout")),
			huh.NewInput().
				Title("Page size").
				Value(&m.fb.pageSize).
				Validate(validatePositive("Page size")),
		),
		huh.NewGroup(
			huh.NewSelect[model.Status]().
				Title("Restore into").
				Description("Column a task reopens in when restored from history").
				Options(statuses...).
				Value(&m.fb.restoreStatus),
			huh.NewInput().
				Title("Refresh every (seconds)").
				Value(&m.fb.pollInterval).
				Validate(validatePositive("Refresh interval")),
			huh.NewSelect[board.SortMode]().
				Title("Default sort").
				Options(sorts...).
				Value(&m.fb.defaultSort),
			huh.NewSelect[string]().
				Title("Theme").
				Options(
					huh.NewOption("Default", theme.ThemeDefault),
					huh.NewOption("Plain (no color)", theme.ThemePlain),
				).
				Value(&m.fb.theme),
		),
	).WithWidth(m.formWidth())
}

func (m Model) startValidation() (Model, tea.Cmd) {
	m.mode = ModeValidating
	m.validError = nil
	return m, tea.Batch(m.spinner.Tick, m.validate())
}

// validate tests the connection with the entered URL and token. An empty
// token field tests with the stored token.
func (m Model) validate() tea.Cmd {
	check := m.check
	baseURL := strings.TrimRight(strings.TrimSpace(m.fb.baseURL), "/")
	token := strings.TrimSpace(m.fb.token)
	return func() tea.Msg {
		if check == nil {
			return validateResultMsg{}
		}
		if token == "" {
			stored, err := credential.Token()
			if err == nil {
				token = stored
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		n, err := check(ctx, baseURL, token)
		return validateResultMsg{tasks: n, err: err}
	}
}

// save writes the config file and, when one was entered, the token.
func (m Model) save() tea.Cmd {
	cfg := m.Config()
	path := m.path
	token := strings.TrimSpace(m.fb.token)
	saveToken := m.saveToken
	return func() tea.Msg {
		if err := model.SaveConfig(path, &cfg); err != nil {
			return savedMsg{err: err}
		}
		if token != "" {
			if err := saveToken(token); err != nil {
				return savedMsg{err: fmt.Errorf("config saved but token was not: %w", err)}
			}
		}
		return savedMsg{}
	}
}

// Config returns the config as edited in the form.
func (m Model) Config() model.AppConfig {
	cfg := m.cfg
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(m.fb.baseURL), "/")
	cfg.API.TimeoutSec = atoiOr(m.fb.timeoutSec, cfg.API.TimeoutSec)
	cfg.API.PageSize = atoiOr(m.fb.pageSize, cfg.API.PageSize)
	cfg.Board.RestoreStatus = m.fb.restoreStatus.String()
	cfg.Board.PollIntervalSec = atoiOr(m.fb.pollInterval, cfg.Board.PollIntervalSec)
	cfg.Board.DefaultSort = m.fb.defaultSort.String()
	cfg.Display.Theme = m.fb.theme
	return cfg
}

// --- View ---

// View renders the settings UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeForm:
		return m.viewForm()
	case ModeValidating:
		return m.viewValidating()
	case ModeValidateResult:
		return m.viewValidateResult()
	default:
		return ""
	}
}

func (m Model) viewForm() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Settings"),
		m.form.View(),
	)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m Model) viewValidating() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	content := fmt.Sprintf(
		"%s Testing connection to %s...\n\nPress esc to cancel.",
		m.spinner.View(), m.fb.baseURL,
	)

	return style.Render(content)
}

func (m Model) viewValidateResult() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)
	hint := lipgloss.NewStyle().Foreground(theme.ColorGray)
	errStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed)
	okStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen)

	var content string
	switch {
	case m.validError != nil:
		content = errStyle.Render("Connection failed") + "\n\n" +
			m.validError.Error() + "\n\n" +
			hint.Render("r retry | s save anyway | e edit | esc discard")
	case m.saveError != nil:
		content = errStyle.Render("Could not save settings") + "\n\n" +
			m.saveError.Error() + "\n\n" +
			hint.Render("e edit | esc back")
	default:
		reach := "Connection not verified."
		if m.verified {
			reach = fmt.Sprintf("Server reports %d tasks.", m.validTasks)
		}
		content = okStyle.Render("Settings saved") + "\n\n" +
			reach + "\n" +
			fmt.Sprintf("Written to %s. Restart taskboard to apply.", m.path) + "\n\n" +
			hint.Render("enter/esc back")
	}

	return style.Render(content)
}

// --- Helpers ---

// Mode returns the current mode.
func (m Model) Mode() ConfigMode { return m.mode }

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
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

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// --- Validators ---

func validatePositive(fieldName string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive number", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., http://localhost:8080)")
	}
	return nil
}
