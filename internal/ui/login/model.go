// Package login renders the sign-in, registration and Microsoft
// device-code screens.
package login

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leave-management/internal/api"
	"github.com/nhle/leave-management/internal/auth"
	"github.com/nhle/leave-management/internal/identity"
	"github.com/nhle/leave-management/internal/keys"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/theme"
)

// requestTimeout bounds a password sign-in or registration.
const requestTimeout = 30 * time.Second

// Authenticator signs in with email and password and registers accounts.
type Authenticator interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, req model.RegisterRequest) (string, error)
}

// MicrosoftSignIn runs the Microsoft device-code sign-in.
type MicrosoftSignIn interface {
	Login(ctx context.Context) error
	IsInitialized() bool
}

// DeviceCodeMsg shows the code the user must enter at the
// verification page. It is sent from the identity prompt callback.
type DeviceCodeMsg identity.DeviceCode

type loginDoneMsg struct{ err error }

type registerDoneMsg struct {
	message string
	err     error
}

type microsoftDoneMsg struct{ err error }

type mode int

const (
	modeSignIn mode = iota
	modeRegister
	modeMicrosoft
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	email           string
	password        string
	firstName       string
	lastName        string
	confirmPassword string
}

// Model is the login screen.
type Model struct {
	auth      Authenticator
	microsoft MicrosoftSignIn
	keys      *keys.KeyMap
	mode      mode
	form      *huh.Form
	fb        *formBindings
	busy      bool
	errText   string
	infoText  string
	code      *identity.DeviceCode
	cancel    *context.CancelFunc
	width     int
	height    int
}

// New creates the login screen. microsoft may be nil when Microsoft
// sign-in is not configured.
func New(a Authenticator, microsoft MicrosoftSignIn, k *keys.KeyMap, width, height int) Model {
	return Model{
		auth:      a,
		microsoft: microsoft,
		keys:      k,
		fb:        &formBindings{},
		cancel:    new(context.CancelFunc),
		width:     width,
		height:    height,
	}
}

// Init shows an empty sign-in form.
func (m *Model) Init() tea.Cmd {
	return m.showSignIn()
}

// Reset returns to an empty sign-in form, keeping the email.
func (m *Model) Reset() tea.Cmd {
	m.stopMicrosoft()
	m.busy = false
	m.errText = ""
	return m.showSignIn()
}

// Handles reports whether msg is a result produced by the login screen.
func Handles(msg tea.Msg) bool {
	switch msg.(type) {
	case loginDoneMsg, registerDoneMsg, microsoftDoneMsg, DeviceCodeMsg:
		return true
	}
	return false
}

// Capturing reports whether the screen owns every key, so global
// shortcuts must not fire.
func (m Model) Capturing() bool {
	return m.form != nil || m.mode == modeMicrosoft
}

func (m *Model) showSignIn() tea.Cmd {
	m.mode = modeSignIn
	m.code = nil
	m.fb.password = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email address").
				Value(&m.fb.email).
				Validate(validateRequired("Email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
	return m.form.Init()
}

func (m *Model) showRegister() tea.Cmd {
	m.mode = modeRegister
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("First name").
				Value(&m.fb.firstName).
				Validate(validateRequired("First name")),
			huh.NewInput().
				Title("Last name").
				Value(&m.fb.lastName).
				Validate(validateRequired("Last name")),
			huh.NewInput().
				Title("Email address").
				Value(&m.fb.email).
				Validate(validateRequired("Email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(validateRequired("Password")),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.confirmPassword),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
	return m.form.Init()
}

// Update handles messages for the login screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loginDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.errText = loginErrorText(msg.err)
			return m, m.showSignIn()
		}
		m.errText = ""
		return m, nil

	case registerDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.errText = registerErrorText(msg.err)
			return m, m.showRegister()
		}
		m.errText = ""
		m.infoText = msg.message
		return m, m.showSignIn()

	case DeviceCodeMsg:
		code := identity.DeviceCode(msg)
		m.code = &code
		return m, nil

	case microsoftDoneMsg:
		m.stopMicrosoft()
		m.busy = false
		return m, m.showSignIn()

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		return m, m.submit()
	case huh.StateAborted:
		return m, m.showSignIn()
	}
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case m.mode == modeMicrosoft && msg.String() == "esc":
		m.stopMicrosoft()
		return nil, true

	case m.mode == modeMicrosoft:
		return nil, true

	case m.busy:
		return nil, true

	case m.mode == modeRegister && msg.String() == "esc":
		m.errText = ""
		return m.showSignIn(), true

	case m.mode == modeSignIn && key.Matches(msg, m.keys.Register):
		m.infoText = ""
		m.errText = ""
		*m.fb = formBindings{email: m.fb.email}
		return m.showRegister(), true

	case m.mode == modeSignIn && key.Matches(msg, m.keys.Microsoft):
		return m.startMicrosoft(), true
	}
	return nil, false
}

func (m *Model) submit() tea.Cmd {
	m.errText = ""
	switch m.mode {
	case modeRegister:
		if m.fb.password != m.fb.confirmPassword {
			m.errText = "Passwords do not match"
			return m.showRegister()
		}
		m.busy = true
		a := m.auth
		req := model.RegisterRequest{
			FirstName: strings.TrimSpace(m.fb.firstName),
			LastName:  strings.TrimSpace(m.fb.lastName),
			Email:     strings.TrimSpace(m.fb.email),
			Password:  m.fb.password,
		}
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			msg, err := a.Register(ctx, req)
			return registerDoneMsg{message: msg, err: err}
		}

	default:
		m.busy = true
		m.infoText = ""
		a, email, password := m.auth, m.fb.email, m.fb.password
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return loginDoneMsg{err: a.Login(ctx, email, password)}
		}
	}
}

func (m *Model) startMicrosoft() tea.Cmd {
	if m.microsoft == nil || !m.microsoft.IsInitialized() {
		m.errText = identity.UserMessage(identity.ErrNotConfigured)
		return nil
	}

	m.errText = ""
	m.infoText = ""
	m.mode = modeMicrosoft
	m.form = nil
	m.code = nil
	m.busy = true

	ctx, cancel := context.WithCancel(context.Background())
	*m.cancel = cancel
	ms := m.microsoft
	return func() tea.Msg {
		return microsoftDoneMsg{err: ms.Login(ctx)}
	}
}

func (m *Model) stopMicrosoft() {
	if *m.cancel != nil {
		(*m.cancel)()
		*m.cancel = nil
	}
}

// View renders the login screen.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var title, body, hints string
	switch m.mode {
	case modeMicrosoft:
		title = "Sign in with Microsoft"
		body = m.renderDeviceCode()
		hints = "esc cancel"
	case modeRegister:
		title = "Create a new account"
		hints = "enter next | esc back to sign in"
	default:
		title = "Sign in to your account"
		hints = "enter next | ctrl+n register | ctrl+o sign in with Microsoft"
	}

	if m.form != nil {
		body = m.form.View()
	}
	if m.busy && m.mode != modeMicrosoft {
		body = lipgloss.NewStyle().Foreground(theme.ColorGray).Render("Please wait...")
	}

	sections := []string{titleStyle.Render(title)}
	if m.infoText != "" {
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorGreen).Render(m.infoText))
	}
	if m.errText != "" {
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.errText))
	}
	sections = append(sections, body, theme.HelpStyle.Render(hints))

	panel := theme.DetailPanelStyle.
		Width(m.formWidth() + 6).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

func (m Model) renderDeviceCode() string {
	if m.code == nil {
		return lipgloss.NewStyle().Foreground(theme.ColorGray).Render("Contacting Microsoft...")
	}

	code := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorYellow).
		Render(m.code.UserCode)

	lines := []string{
		"Open " + lipgloss.NewStyle().Underline(true).Render(m.code.VerificationURI),
		"and enter the code " + code,
	}
	if !m.code.ExpiresAt.IsZero() {
		lines = append(lines, theme.HelpStyle.Render(
			fmt.Sprintf("The code expires at %s.", m.code.ExpiresAt.Format("15:04")),
		))
	}
	return strings.Join(lines, "\n")
}

// SetSize updates the screen dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 10
	if w < 30 {
		w = 30
	}
	if w > 60 {
		w = 60
	}
	return w
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

// loginErrorText turns a sign-in failure into the inline message.
func loginErrorText(err error) string {
	var (
		authErr *api.AuthError
		apiErr  *api.APIError
		urlErr  *url.Error
	)
	switch {
	case errors.Is(err, auth.ErrCredentialsRequired):
		return "Email and password are required"
	case errors.As(err, &authErr):
		if authErr.Message != "" {
			return authErr.Message
		}
		return "Invalid email or password"
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("Server error: %d", apiErr.StatusCode)
	case errors.As(err, &urlErr):
		return "No response from server. Please try again later."
	default:
		return "An error occurred during login. Please try again."
	}
}

// registerErrorText turns a registration failure into the inline message.
func registerErrorText(err error) string {
	var (
		apiErr *api.APIError
		urlErr *url.Error
	)
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("Server error: %d", apiErr.StatusCode)
	case errors.As(err, &urlErr):
		return "No response from server. Please try again later."
	default:
		return "An error occurred during registration. Please try again."
	}
}
