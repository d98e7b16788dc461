// Package balances shows the signed-in user's leave entitlements for the
// current and the previous year.
package balances

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leave-management/internal/api"
	"github.com/nhle/leave-management/internal/keys"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/theme"
)

const requestTimeout = 30 * time.Second

// Service lists leave balances.
type Service interface {
	ListByUserAndYear(ctx context.Context, userID int64, year int) ([]model.LeaveBalance, error)
}

// LoadedMsg carries the balances of one user and year.
type LoadedMsg struct {
	UserID   int64
	Year     int
	Balances []model.LeaveBalance
	Err      error
}

// Handles reports whether msg is a result produced by this view.
func Handles(msg tea.Msg) bool {
	_, ok := msg.(LoadedMsg)
	return ok
}

// Model is the leave balances screen. Tab switches between the current
// year and the one before.
type Model struct {
	svc      Service
	keys     *keys.KeyMap
	table    table.Model
	bar      progress.Model
	now      func() time.Time
	userID   int64
	year     int
	balances []model.LeaveBalance
	loading  bool
	err      error
	width    int
	height   int
}

// New creates the balances view.
func New(svc Service, k *keys.KeyMap, width, height int) Model {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(theme.ColorWhite).
		Background(theme.ColorSubtle).
		Bold(false)

	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithStyles(styles),
	)

	m := Model{
		svc:    svc,
		keys:   k,
		table:  t,
		bar:    progress.New(progress.WithSolidFill(theme.ColorBlue.Dark), progress.WithWidth(30)),
		now:    time.Now,
		width:  width,
		height: height,
	}
	m.SetSize(width, height)
	return m
}

func columns(width int) []table.Column {
	// Fixed columns take 46 cells plus one cell of padding on each side
	// of all six columns.
	name := max(14, width-46-12)
	return []table.Column{
		{Title: "Leave Type", Width: name},
		{Title: "Total", Width: 8},
		{Title: "Used", Width: 8},
		{Title: "Remaining", Width: 10},
		{Title: "Carried", Width: 8},
		{Title: "Expires", Width: 12},
	}
}

// Year returns the year on screen.
func (m Model) Year() int {
	return m.year
}

func (m Model) currentYear() int {
	return m.now().Year()
}

// Load fetches the balances of userID for the selected year, defaulting
// to the current one.
func (m *Model) Load(userID int64) tea.Cmd {
	if userID != m.userID {
		m.balances = nil
		m.table.SetRows(nil)
		m.year = 0
	}
	if m.year == 0 {
		m.year = m.currentYear()
	}
	m.userID = userID
	m.loading = true
	m.err = nil
	return m.fetch()
}

// Reset clears the view on sign-out.
func (m *Model) Reset() {
	m.userID = 0
	m.year = 0
	m.balances = nil
	m.loading = false
	m.err = nil
	m.table.SetRows(nil)
}

func (m Model) fetch() tea.Cmd {
	svc, userID, year := m.svc, m.userID, m.year
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		list, err := svc.ListByUserAndYear(ctx, userID, year)
		return LoadedMsg{UserID: userID, Year: year, Balances: list, Err: err}
	}
}

// Update handles messages for the balances view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.UserID != m.userID || msg.Year != m.year {
			return m, nil
		}
		m.loading = false
		m.err = msg.Err
		if msg.Err != nil {
			return m, nil
		}
		m.balances = msg.Balances
		m.table.SetRows(rows(msg.Balances))
		m.table.SetCursor(0)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Refresh):
			if m.userID == 0 {
				return m, nil
			}
			m.loading = true
			return m, m.fetch()
		case key.Matches(msg, m.keys.Year):
			if m.userID == 0 {
				return m, nil
			}
			if m.year == m.currentYear() {
				m.year--
			} else {
				m.year = m.currentYear()
			}
			m.balances = nil
			m.table.SetRows(nil)
			m.loading = true
			m.err = nil
			return m, m.fetch()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func rows(list []model.LeaveBalance) []table.Row {
	out := make([]table.Row, len(list))
	for i, b := range list {
		expires := "-"
		if !b.ExpiryDate.IsZero() {
			expires = b.ExpiryDate.String()
		}
		out[i] = table.Row{
			b.LeaveType.Name,
			days(b.TotalDays),
			days(b.UsedDays),
			days(b.RemainingDays),
			days(b.CarriedOverDays),
			expires,
		}
	}
	return out
}

func days(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// View renders the year tabs and the balance table.
func (m Model) View() string {
	header := theme.HeaderStyle.Render("Leave Balances") + "  " + m.tabs()

	body := lipgloss.NewStyle().
		Width(m.width).
		Height(max(0, m.height-3)).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading && len(m.balances) == 0:
		return header + "\n\n" + body.Render("Loading...")
	case m.err != nil:
		return header + "\n\n" + body.Render("Could not load leave balances.\n"+api.Message(m.err)+"\n\nPress R to retry.")
	case len(m.balances) == 0:
		return header + "\n\n" + body.Render(fmt.Sprintf("You don't have any leave balances for the year %d.", m.year))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		m.table.View(),
		"",
		m.usage(),
	)
}

func (m Model) tabs() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Underline(true)
	inactive := lipgloss.NewStyle().Foreground(theme.ColorGray)

	current := m.currentYear()
	var out string
	for i, y := range []int{current, current - 1} {
		if i > 0 {
			out += "  "
		}
		style := inactive
		if y == m.year {
			style = active
		}
		out += style.Render(strconv.Itoa(y))
	}
	return out
}

// usage renders the share of the selected balance already taken.
func (m Model) usage() string {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.balances) {
		return ""
	}
	b := m.balances[i]
	label := lipgloss.NewStyle().Foreground(theme.ColorGray).
		Render(fmt.Sprintf("%s usage %s of %s  ", b.LeaveType.Name, days(b.UsedDays), days(b.TotalDays)))
	return label + m.bar.ViewAs(b.UsedPercent()/100)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetWidth(width)
	m.table.SetHeight(max(3, height-6))
}
