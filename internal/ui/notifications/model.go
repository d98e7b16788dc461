// Package notifications renders the notification list and forwards the
// user's read and delete actions to the notification center.
package notifications

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leave-management/internal/keys"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/notification"
	"github.com/nhle/leave-management/internal/theme"
	"github.com/nhle/leave-management/internal/ui"
)

// Actions is the part of the notification center the view drives.
type Actions interface {
	MarkAsRead(ctx context.Context, id int64) error
	MarkAllAsRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id int64) error
	Refresh()
}

// ActionDoneMsg reports the outcome of a read or delete action. The
// center has already posted a notice for it.
type ActionDoneMsg struct {
	Err error
}

// Item wraps a model.Notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Notification.Title }

// Model is the notification list view.
type Model struct {
	list    list.Model
	actions Actions
	keys    *keys.KeyMap
	state   notification.State
	width   int
	height  int
}

// New creates a new notification list view.
func New(actions Actions, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, itemDelegate{}, width, height)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:    l,
		actions: actions,
		keys:    k,
		width:   width,
		height:  height,
	}
}

// SetState replaces the rendered list with the center's latest state.
func (m *Model) SetState(s notification.State) tea.Cmd {
	m.state = s
	items := make([]list.Item, len(s.Notifications))
	for i, n := range s.Notifications {
		items[i] = Item{Notification: n}
	}
	m.list.Title = fmt.Sprintf("Notifications (%d unread)", s.UnreadCount)
	return m.list.SetItems(items)
}

// Selected returns the notification under the cursor.
func (m Model) Selected() (model.Notification, bool) {
	item, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return item.Notification, true
}

// Update handles messages for the notification list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.MarkRead):
			n, ok := m.Selected()
			if !ok || n.Read {
				return m, nil
			}
			return m, m.run(func(ctx context.Context) error {
				return m.actions.MarkAsRead(ctx, n.ID)
			})

		case key.Matches(msg, m.keys.MarkAllRead):
			if m.state.UnreadCount == 0 {
				return m, nil
			}
			return m, m.run(m.actions.MarkAllAsRead)

		case key.Matches(msg, m.keys.Delete):
			n, ok := m.Selected()
			if !ok {
				return m, nil
			}
			return m, m.run(func(ctx context.Context) error {
				return m.actions.DeleteNotification(ctx, n.ID)
			})

		case key.Matches(msg, m.keys.Refresh):
			m.actions.Refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// run executes a center action off the UI goroutine.
func (m Model) run(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{Err: fn(context.Background())}
	}
}

// View renders the notification list.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.state.Loading {
		return style.Render("Loading notifications...")
	}
	return style.Render("No notifications yet.\nYou're all caught up!")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}

// typeIcon returns the glyph shown for a notification type.
func typeIcon(t model.NotificationType) string {
	switch t {
	case model.NotificationLeaveRequest:
		return "✉"
	case model.NotificationLeaveApproval:
		return "✓"
	case model.NotificationLeaveRejection:
		return "✗"
	case model.NotificationLeaveCancellation:
		return "⊘"
	case model.NotificationBalanceUpdate:
		return "Σ"
	default:
		return "•"
	}
}

// itemDelegate implements list.ItemDelegate for notifications.
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 2 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a notification as a title line and a message line.
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	n := it.Notification

	marker := " "
	if !n.Read {
		marker = lipgloss.NewStyle().Foreground(theme.ColorRed).Render("●")
	}
	icon := theme.NotificationTypeStyle(string(n.Type)).Render(typeIcon(n.Type))

	title := n.Title
	if !n.Read {
		title = lipgloss.NewStyle().Bold(true).Render(title)
	}

	when := lipgloss.NewStyle().Foreground(theme.ColorGray).Render(ui.RelativeTime(n.CreatedAt.Time))
	first := strings.Join([]string{marker, icon, title, when}, " ")
	second := "    " + lipgloss.NewStyle().Foreground(theme.ColorGray).Render(n.Message)

	style := theme.ListItemStyle
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}

	fmt.Fprint(w, style.Render(first+"\n"+second))
}
