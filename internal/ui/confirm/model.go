// Package confirm renders the confirmation dialog requested through
// the confirm controller.
package confirm

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leave-management/internal/confirm"
	"github.com/nhle/leave-management/internal/theme"
)

// Resolver answers a pending confirmation request.
type Resolver interface {
	Resolve(id string, ok bool) bool
}

// ClosedMsg is emitted once the dialog has been answered.
type ClosedMsg struct {
	ID        string
	Confirmed bool
}

// formBindings keeps huh's Value pointer valid across model copies.
type formBindings struct {
	answer bool
}

// Model is the dialog overlay. It is active while a request is shown.
type Model struct {
	resolver Resolver
	request  confirm.Request
	active   bool
	form     *huh.Form
	fb       *formBindings
	width    int
	height   int
}

// New creates an inactive dialog bound to resolver.
func New(resolver Resolver, width, height int) Model {
	return Model{
		resolver: resolver,
		fb:       &formBindings{},
		width:    width,
		height:   height,
	}
}

// Active reports whether a request is on screen.
func (m Model) Active() bool {
	return m.active
}

// Request returns the request on screen.
func (m Model) Request() confirm.Request {
	return m.request
}

// Show puts req on screen. The focus starts on the cancel button for
// danger requests.
func (m *Model) Show(req confirm.Request) tea.Cmd {
	m.request = req
	m.active = true
	m.fb.answer = req.Severity != confirm.SeverityDanger
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(req.Title).
				Description(req.Message).
				Affirmative(req.ConfirmText).
				Negative(req.CancelText).
				Value(&m.fb.answer),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
	return m.form.Init()
}

// Dismiss clears the dialog if it still shows the request with id,
// without answering it. It is used when the request was resolved
// elsewhere.
func (m *Model) Dismiss(id string) {
	if m.active && m.request.ID == id {
		m.active = false
		m.form = nil
	}
}

// Update handles messages for the dialog.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.active || m.form == nil {
		return m, nil
	}

	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		return m.finish(false)
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.finish(m.fb.answer)
	case huh.StateAborted:
		return m.finish(false)
	}

	return m, cmd
}

func (m Model) finish(ok bool) (Model, tea.Cmd) {
	id := m.request.ID
	m.resolver.Resolve(id, ok)
	m.active = false
	m.form = nil
	return m, func() tea.Msg { return ClosedMsg{ID: id, Confirmed: ok} }
}

// View renders the dialog.
func (m Model) View() string {
	if !m.active || m.form == nil {
		return ""
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		Render(string(m.request.Severity))

	return theme.SeverityStyle(string(m.request.Severity)).
		Width(m.formWidth() + 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, m.form.View()))
}

// SetSize updates the dialog dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width / 2
	if w < 40 {
		w = 40
	}
	if w > 72 {
		w = 72
	}
	return w
}
