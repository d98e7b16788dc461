package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// purgeTimeout bounds clearing the offline cache on sign-out.
const purgeTimeout = 5 * time.Second

// logoutDoneMsg is sent after the session was cleared.
type logoutDoneMsg struct{ err error }

// cachePurgedMsg is sent after the offline cache was cleared.
type cachePurgedMsg struct{ err error }

// logout clears the session. The auth manager publishes the resulting
// auth change, notice and route on the bus.
func (m Model) logout() tea.Cmd {
	if m.user == nil {
		return nil
	}
	s := m.deps.Session
	log := m.deps.Log
	return func() tea.Msg {
		err := s.Logout()
		if err != nil {
			log.Warn().Err(err).Msg("logout left session fields behind")
		}
		return logoutDoneMsg{err: err}
	}
}

// purgeCache drops every cached list so the next user starts clean.
func (m Model) purgeCache() tea.Cmd {
	c := m.deps.Cache
	if c == nil {
		return nil
	}
	log := m.deps.Log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()
		err := c.Purge(ctx)
		if err != nil {
			log.Error().Err(err).Msg("purging offline cache")
		}
		return cachePurgedMsg{err: err}
	}
}

// refresh refetches notifications and the visible leave lists.
func (m *Model) refresh() tea.Cmd {
	if m.user == nil {
		return nil
	}
	m.deps.Notifications.Refresh()
	return m.loadLeaves()
}

// markAllRead marks every notification as read when any is unread.
func (m Model) markAllRead() tea.Cmd {
	if m.user == nil || m.unread == 0 {
		return nil
	}
	n := m.deps.Notifications
	log := m.deps.Log
	return func() tea.Msg {
		err := n.MarkAllAsRead(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("marking all notifications as read")
		}
		return nil
	}
}

// executeCommand runs a palette command.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	if cmd == "quit" {
		m.deps.Notifications.Stop()
		return tea.Quit
	}
	if cmd == "help" {
		m.helpView.SetScreen(m.screenName(), m.keyHints())
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil
	}

	// Everything else needs a signed-in user.
	if m.user == nil {
		return nil
	}

	switch cmd {
	case "settings":
		return m.openSettings()
	case "notifications":
		m.currentView = ViewNotifications
	case "leaves":
		m.currentView = ViewLeaves
	case "approvals":
		if m.canApprove() {
			m.currentView = ViewApprovals
		}
	case "balances":
		if m.deps.Balances != nil {
			m.currentView = ViewBalances
		}
	case "profile":
		return m.openProfile()
	case "apply":
		m.currentView = ViewLeaves
		return m.leavesView.StartApply()
	case "refresh":
		return m.refresh()
	case "read all":
		return m.markAllRead()
	case "logout":
		return m.logout()
	default:
		m.deps.Log.Debug().Str("command", cmd).Msg("unknown command")
	}
	return nil
}

// openProfile shows the profile editor for the signed-in user.
func (m *Model) openProfile() tea.Cmd {
	if m.user == nil || m.currentView == ViewProfile || m.deps.Profile.Users == nil {
		return nil
	}
	m.previousView = m.currentView
	m.currentView = ViewProfile
	return m.profileView.Open(*m.user)
}

// openSettings shows the settings editor over the current screen.
func (m *Model) openSettings() tea.Cmd {
	if m.currentView == ViewSettings {
		return nil
	}
	m.previousView = m.currentView
	m.currentView = ViewSettings
	return m.settingsView.Open()
}
