package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leave-management/internal/keys"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/theme"
	"github.com/nhle/leave-management/internal/ui"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Model is the leave application detail view.
type Model struct {
	app      *model.LeaveApplication
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		return m, func() tea.Msg {
			return BackMsg{}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.app == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No leave application selected")
	}
	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.app == nil {
		return ""
	}

	app := m.app
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	title := app.LeaveType.Name
	if title == "" {
		title = "Leave"
	}
	sections = append(sections, titleStyle.Render(fmt.Sprintf("%s #%d", title, app.ID)))
	sections = append(sections, theme.LeaveStatusStyle(string(app.Status)).Render(string(app.Status)))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(12)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, metaStyle.Render(label+":")+" "+valStyle.Render(value))
	}

	row("Applicant", personName(&app.User))
	row("Period", ui.DateRange(app.StartDate, app.EndDate))
	row("Duration", ui.DaysLabel(app.TotalDays))
	if !app.CreatedAt.IsZero() {
		row("Applied", app.CreatedAt.Format("2006-01-02 15:04")+" ("+ui.RelativeTime(app.CreatedAt.Time)+")")
	}
	if !app.UpdatedAt.IsZero() && !app.UpdatedAt.Equal(app.CreatedAt.Time) {
		row("Updated", app.UpdatedAt.Format("2006-01-02 15:04"))
	}
	row("Decided by", personName(app.ApprovedBy))

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)

	section := func(heading, body string) {
		sections = append(sections, "", separator, "", headerStyle.Render(heading), body)
	}

	reason := app.Reason
	if reason == "" {
		reason = lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true).Render("No reason given")
	}
	section("Reason", reason)

	if app.RejectionReason != "" {
		section("Rejection reason", app.RejectionReason)
	}
	if app.CancellationReason != "" {
		section("Cancellation reason", app.CancellationReason)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func personName(u *model.User) string {
	if u == nil {
		return ""
	}
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Email
}

// SetApplication updates the application being displayed and re-renders
// the content.
func (m *Model) SetApplication(app model.LeaveApplication) {
	m.app = &app
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Clear drops the displayed application.
func (m *Model) Clear() {
	m.app = nil
	m.viewport.SetContent("")
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
