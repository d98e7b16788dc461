package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/theme"
)

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeForm   Mode = iota // Editing
	ModeSaving             // Writing the file
	ModeResult             // Showing the save outcome
)

// DoneMsg signals the settings view should close.
type DoneMsg struct{}

// SavedMsg reports that the configuration was written to disk.
type SavedMsg struct {
	Config model.AppConfig
}

// saveResultMsg is sent after the file write.
type saveResultMsg struct {
	cfg model.AppConfig
	err error
}

// SaveFunc persists the configuration.
type SaveFunc func(path string, cfg *model.AppConfig) error

// formBindings holds the values huh writes into. It lives on the heap
// so copies of Model share it.
type formBindings struct {
	baseURL      string
	timeout      string
	pollInterval string
	clientID     string
	authority    string
	logLevel     string
}

// Model is the Bubble Tea model for the settings editor. Saved values
// take effect on the next start.
type Model struct {
	mode    Mode
	path    string
	current model.AppConfig
	save    SaveFunc
	form    *huh.Form
	fb      *formBindings
	spinner spinner.Model
	err     error

	width, height int
}

// New creates a settings editor for the configuration stored at path.
func New(path string, current model.AppConfig, save SaveFunc, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	if save == nil {
		save = model.SaveConfig
	}

	return Model{
		path:    path,
		current: current,
		save:    save,
		fb:      &formBindings{},
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Open shows the form filled with the current configuration.
func (m *Model) Open() tea.Cmd {
	*m.fb = formBindings{
		baseURL:      m.current.API.BaseURL,
		timeout:      strconv.Itoa(m.current.API.TimeoutSec),
		pollInterval: strconv.Itoa(m.current.Notifications.PollIntervalSec),
		clientID:     m.current.Microsoft.ClientID,
		authority:    m.current.Microsoft.Authority,
		logLevel:     m.current.Log.Level,
	}
	m.err = nil
	m.mode = ModeForm
	m.form = m.buildForm()
	return m.form.Init()
}

// Mode returns the current state of the view.
func (m Model) Mode() Mode {
	return m.mode
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case saveResultMsg:
		m.mode = ModeResult
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.current = msg.cfg
		cfg := msg.cfg
		return m, func() tea.Msg { return SavedMsg{Config: cfg} }

	case spinner.TickMsg:
		if m.mode == ModeSaving {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeSaving:
			return m, nil
		case ModeResult:
			switch msg.String() {
			case "r":
				if m.err != nil {
					return m, m.Open()
				}
			case "enter", "esc":
				return m, done
			}
			return m, nil
		}
		if msg.String() == "esc" {
			return m, done
		}
	}

	return m.updateForm(msg)
}

func done() tea.Msg { return DoneMsg{} }

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.mode != ModeForm {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		cfg, err := m.apply()
		if err != nil {
			m.mode = ModeResult
			m.err = err
			return m, nil
		}
		m.mode = ModeSaving
		return m, tea.Batch(m.spinner.Tick, m.write(cfg))
	}
	if m.form.State == huh.StateAborted {
		return m, done
	}

	return m, cmd
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API base URL").
				Description("Root of the leave management REST API").
				Placeholder("http://localhost:8080/api").
				Value(&m.fb.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Request timeout").
				Description("Seconds before a backend call is abandoned").
				Value(&m.fb.timeout).
				Validate(validatePositive("Timeout")),
			huh.NewInput().
				Title("Notification poll interval").
				Description("Seconds between notification refreshes").
				Value(&m.fb.pollInterval).
				Validate(validatePositive("Poll interval")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Microsoft client ID").
				Description("Leave empty to disable Microsoft sign-in").
				Value(&m.fb.clientID),
			huh.NewInput().
				Title("Microsoft authority").
				Placeholder("https://login.microsoftonline.com/common").
				Value(&m.fb.authority).
				Validate(validateOptionalURL),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&m.fb.logLevel),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
}

// apply copies the form values over the current configuration.
func (m Model) apply() (model.AppConfig, error) {
	cfg := m.current
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(m.fb.baseURL), "/")
	cfg.Microsoft.ClientID = strings.TrimSpace(m.fb.clientID)
	cfg.Microsoft.Authority = strings.TrimSpace(m.fb.authority)
	cfg.Log.Level = m.fb.logLevel

	timeout, err := strconv.Atoi(strings.TrimSpace(m.fb.timeout))
	if err != nil {
		return cfg, fmt.Errorf("timeout: %w", err)
	}
	poll, err := strconv.Atoi(strings.TrimSpace(m.fb.pollInterval))
	if err != nil {
		return cfg, fmt.Errorf("poll interval: %w", err)
	}
	cfg.API.TimeoutSec = timeout
	cfg.Notifications.PollIntervalSec = poll
	return cfg, nil
}

func (m Model) write(cfg model.AppConfig) tea.Cmd {
	save, path := m.save, m.path
	return func() tea.Msg {
		return saveResultMsg{cfg: cfg, err: save(path, &cfg)}
	}
}

// View renders the settings editor.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	hint := lipgloss.NewStyle().Foreground(theme.ColorGray)

	switch m.mode {
	case ModeSaving:
		return style.Render(fmt.Sprintf("%s Saving settings...", m.spinner.View()))

	case ModeResult:
		if m.err != nil {
			errStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed)
			return style.Render(errStyle.Render("Could not save settings") + "\n\n" +
				m.err.Error() + "\n\n" +
				hint.Render("r retry | enter/esc back"))
		}
		okStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen)
		return style.Render(okStyle.Render("Settings saved") + "\n\n" +
			fmt.Sprintf("Written to %s.\nChanges take effect after restart.", m.path) + "\n\n" +
			hint.Render("enter/esc back"))
	}

	if m.form == nil {
		return ""
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1).
		Render("Settings")
	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.form.View(),
		hint.Render("enter next | shift+tab back | esc close"),
	))
}

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

func validatePositive(fieldName string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive number of seconds", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}

func validateOptionalURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return validateURL(s)
}
