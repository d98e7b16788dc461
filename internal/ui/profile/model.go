// Package profile edits the signed-in user's name and profile picture.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leave-management/internal/events"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/theme"
)

const requestTimeout = 30 * time.Second

// Updater writes profile changes to the backend.
type Updater interface {
	UpdateProfile(ctx context.Context, userID int64, req model.UpdateProfileRequest) (model.Profile, error)
}

// Applier stores a changed profile in the session and republishes the
// signed-in user.
type Applier interface {
	ApplyProfile(p model.Profile) error
}

// Deps groups the collaborators of the profile editor.
type Deps struct {
	Users    Updater
	Session  Applier
	Notifier events.Notifier
}

// DoneMsg signals the profile view should close.
type DoneMsg struct{}

// savedMsg is sent once the backend and the session were updated.
type savedMsg struct{ err error }

// Mode is the state of the profile view.
type Mode int

const (
	ModeForm Mode = iota
	ModeSaving
)

type formBindings struct {
	firstName string
	lastName  string
	picture   string
}

// Model is the profile editor.
type Model struct {
	deps    Deps
	mode    Mode
	user    model.User
	form    *huh.Form
	fb      *formBindings
	spinner spinner.Model

	width, height int
}

// New creates the profile editor.
func New(deps Deps, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		deps:    deps,
		fb:      &formBindings{},
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Open shows the form filled with u's current profile.
func (m *Model) Open(u model.User) tea.Cmd {
	m.user = u
	*m.fb = formBindings{
		firstName: u.FirstName,
		lastName:  u.LastName,
		picture:   u.ProfilePictureURL,
	}
	m.mode = ModeForm
	m.form = m.buildForm()
	return m.form.Init()
}

// Mode returns the current state of the view.
func (m Model) Mode() Mode {
	return m.mode
}

// Update handles messages for the profile editor.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case savedMsg:
		if msg.err != nil {
			m.mode = ModeForm
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		return m, done

	case spinner.TickMsg:
		if m.mode == ModeSaving {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.mode == ModeSaving {
			return m, nil
		}
		if msg.String() == "esc" {
			return m, done
		}
	}

	if m.form == nil || m.mode != ModeForm {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		m.mode = ModeSaving
		return m, tea.Batch(m.spinner.Tick, m.save(m.request()))
	case huh.StateAborted:
		return m, done
	}
	return m, cmd
}

func done() tea.Msg { return DoneMsg{} }

func (m Model) request() model.UpdateProfileRequest {
	return model.UpdateProfileRequest{
		FirstName:         strings.TrimSpace(m.fb.firstName),
		LastName:          strings.TrimSpace(m.fb.lastName),
		ProfilePictureURL: strings.TrimSpace(m.fb.picture),
	}
}

func (m Model) save(req model.UpdateProfileRequest) tea.Cmd {
	deps, userID := m.deps, m.user.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		p, err := deps.Users.UpdateProfile(ctx, userID, req)
		if err != nil {
			deps.Notifier.Error("Failed to update profile")
			return savedMsg{err: err}
		}
		if p.ID == 0 {
			p = model.Profile{
				ID:                userID,
				FirstName:         req.FirstName,
				LastName:          req.LastName,
				ProfilePictureURL: req.ProfilePictureURL,
			}
		}
		if err := deps.Session.ApplyProfile(p); err != nil {
			deps.Notifier.Error("Failed to update profile")
			return savedMsg{err: err}
		}
		deps.Notifier.Success("Profile updated successfully")
		return savedMsg{}
	}
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("First name").
				Value(&m.fb.firstName).
				Validate(required("First name")),
			huh.NewInput().
				Title("Last name").
				Value(&m.fb.lastName).
				Validate(required("Last name")),
			huh.NewInput().
				Title("Profile picture URL").
				Description("Optional").
				Value(&m.fb.picture).
				Validate(validatePicture),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
}

// View renders the profile editor.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	if m.mode == ModeSaving {
		return style.Render(fmt.Sprintf("%s Saving profile...", m.spinner.View()))
	}
	if m.form == nil {
		return ""
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1).
		Render("My Profile")
	email := lipgloss.NewStyle().Foreground(theme.ColorGray).MarginBottom(1).
		Render(m.user.Email)
	hint := lipgloss.NewStyle().Foreground(theme.ColorGray).
		Render("enter next | shift+tab back | esc close")
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, title, email, m.form.View(), hint))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(100, max(40, m.width-4))
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validatePicture(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "data:image/") {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("picture must be an http(s) URL")
	}
	return nil
}
