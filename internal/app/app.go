package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/leave-management/internal/confirm"
	"github.com/nhle/leave-management/internal/events"
	"github.com/nhle/leave-management/internal/keys"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/notification"
	"github.com/nhle/leave-management/internal/store"
	"github.com/nhle/leave-management/internal/ui"
	"github.com/nhle/leave-management/internal/ui/balances"
	"github.com/nhle/leave-management/internal/ui/command"
	settingsview "github.com/nhle/leave-management/internal/ui/config"
	confirmview "github.com/nhle/leave-management/internal/ui/confirm"
	"github.com/nhle/leave-management/internal/ui/detail"
	helpview "github.com/nhle/leave-management/internal/ui/help"
	"github.com/nhle/leave-management/internal/ui/leaves"
	"github.com/nhle/leave-management/internal/ui/login"
	"github.com/nhle/leave-management/internal/ui/notifications"
	profileview "github.com/nhle/leave-management/internal/ui/profile"
)

// noticeTimeout is how long a notice stays in the status bar.
const noticeTimeout = 5 * time.Second

// approverRoles may see the approvals screen.
var approverRoles = []string{model.RoleManager, model.RoleHR, model.RoleAdmin}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewNotifications
	ViewLeaves
	ViewApprovals
	ViewHelp
	ViewCommand
	ViewSettings
	ViewDetail
	ViewBalances
	ViewProfile
)

// Session is the auth manager as seen by the UI.
type Session interface {
	login.Authenticator
	User() *model.User
	HasAnyRole(roles ...string) bool
	Logout() error
}

// NotificationCenter is the notification center as seen by the UI.
type NotificationCenter interface {
	notifications.Actions
	Snapshot() notification.State
	Stop()
}

// Purger clears the offline cache.
type Purger interface {
	Purge(ctx context.Context) error
}

// Deps groups the services the root model drives.
type Deps struct {
	Session       Session
	Notifications NotificationCenter
	Confirm       confirmview.Resolver
	Microsoft     login.MicrosoftSignIn
	Leaves        leaves.Deps
	Balances      balances.Service
	Profile       profileview.Deps
	Cache         Purger
	Log           zerolog.Logger

	// ConfigPath and Config feed the settings editor.
	ConfigPath string
	Config     model.AppConfig
}

type noticeExpiredMsg struct{ seq int }

// Model is the root Bubble Tea model that manages view routing,
// layout, and the signed-in session.
type Model struct {
	currentView       ViewState
	previousView      ViewState
	detailParent      ViewState
	layout            ui.Layout
	deps              Deps
	keys              *keys.KeyMap
	loginView         login.Model
	notificationsView notifications.Model
	leavesView        leaves.Model
	approvalsView     leaves.Model
	helpView          helpview.Model
	commandView       command.Model
	confirmView       confirmview.Model
	settingsView      settingsview.Model
	detailView        detail.Model
	balancesView      balances.Model
	profileView       profileview.Model
	user              *model.User
	unread            int
	notice            *events.Notice
	noticeSeq         int
	initCmd           tea.Cmd
	ready             bool
}

// New creates the root model. The initial screen follows the session
// already restored by the auth manager.
func New(deps Deps) Model {
	k := keys.DefaultKeyMap()

	m := Model{
		currentView:       ViewLogin,
		deps:              deps,
		keys:              k,
		loginView:         login.New(deps.Session, deps.Microsoft, k, 80, 24),
		notificationsView: notifications.New(deps.Notifications, k, 80, 24),
		leavesView:        leaves.New(store.LeaveListMine, deps.Leaves, k, 80, 24),
		approvalsView:     leaves.New(store.LeaveListApprovals, deps.Leaves, k, 80, 24),
		helpView:          helpview.New(k, 80, 24),
		commandView:       command.New(80, 24),
		confirmView:       confirmview.New(deps.Confirm, 80, 24),
		settingsView:      settingsview.New(deps.ConfigPath, deps.Config, nil, 80, 24),
		detailView:        detail.New(k, 80, 24),
		balancesView:      balances.New(deps.Balances, k, 80, 24),
		profileView:       profileview.New(deps.Profile, 80, 24),
	}

	cmds := []tea.Cmd{m.loginView.Init()}
	if u := deps.Session.User(); u != nil {
		m.user = u
		m.currentView = ViewNotifications
		cmds = append(cmds, m.loadLeaves())
	}
	s := deps.Notifications.Snapshot()
	m.unread = s.UnreadCount
	cmds = append(cmds, m.notificationsView.SetState(s))
	m.initCmd = tea.Batch(cmds...)
	return m
}

// Init shows the login form or loads the signed-in user's lists.
func (m Model) Init() tea.Cmd {
	return m.initCmd
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.loginView.SetSize(contentWidth, contentHeight)
		m.notificationsView.SetSize(contentWidth, contentHeight)
		m.leavesView.SetSize(contentWidth, contentHeight)
		m.approvalsView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.confirmView.SetSize(contentWidth, contentHeight)
		m.settingsView.SetSize(contentWidth, contentHeight)
		m.detailView.SetSize(contentWidth, contentHeight)
		m.balancesView.SetSize(contentWidth, contentHeight)
		m.profileView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case AuthChangedMsg:
		return m.handleAuthChanged(msg.User)

	case RouteMsg:
		return m.handleRoute(events.Route(msg))

	case NoticeMsg:
		n := events.Notice(msg)
		m.notice = &n
		m.noticeSeq++
		seq := m.noticeSeq
		return m, tea.Tick(noticeTimeout, func(time.Time) tea.Msg {
			return noticeExpiredMsg{seq: seq}
		})

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case NotificationsMsg:
		s := notification.State(msg)
		m.unread = s.UnreadCount
		return m, m.notificationsView.SetState(s)

	case ConfirmRequestedMsg:
		req := confirm.Request(msg)
		if m.user == nil {
			// Signed out: nothing may be confirmed on behalf of the old session.
			m.deps.Confirm.Resolve(req.ID, false)
			return m, nil
		}
		return m, m.confirmView.Show(req)

	case ConfirmResolvedMsg:
		m.confirmView.Dismiss(string(msg))
		return m, nil

	case notifications.ActionDoneMsg:
		if msg.Err != nil {
			m.deps.Log.Error().Err(msg.Err).Msg("notification action failed")
		}
		return m, nil

	case confirmview.ClosedMsg, logoutDoneMsg, cachePurgedMsg:
		return m, nil

	case leaves.OpenMsg:
		if m.currentView != ViewLeaves && m.currentView != ViewApprovals {
			return m, nil
		}
		m.detailView.SetApplication(msg.App)
		m.detailParent = m.currentView
		m.currentView = ViewDetail
		return m, nil

	case detail.BackMsg:
		if m.currentView == ViewDetail {
			m.currentView = m.detailParent
		}
		return m, nil

	case settingsview.DoneMsg:
		if m.currentView == ViewSettings {
			m.currentView = m.previousView
		}
		return m, nil

	case profileview.DoneMsg:
		if m.currentView == ViewProfile {
			m.currentView = m.previousView
		}
		return m, nil

	case settingsview.SavedMsg:
		m.deps.Log.Info().Str("path", m.deps.ConfigPath).Msg("settings saved")
		return m, nil

	case command.CommandMsg:
		m.closePalette()
		return m, m.executeCommand(string(msg))

	case command.CloseMsg:
		m.closePalette()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if leaves.Handles(msg) {
		var c1, c2 tea.Cmd
		m.leavesView, c1 = m.leavesView.Update(msg)
		m.approvalsView, c2 = m.approvalsView.Update(msg)
		return m, tea.Batch(c1, c2)
	}
	if balances.Handles(msg) {
		var cmd tea.Cmd
		m.balancesView, cmd = m.balancesView.Update(msg)
		return m, cmd
	}
	if login.Handles(msg) {
		var cmd tea.Cmd
		m.loginView, cmd = m.loginView.Update(msg)
		return m, cmd
	}

	// The dialog's huh form advances through its own messages.
	if m.confirmView.Active() {
		var cmd tea.Cmd
		m.confirmView, cmd = m.confirmView.Update(msg)
		next, viewCmd := m.updateActiveView(msg)
		return next, tea.Batch(cmd, viewCmd)
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.deps.Notifications.Stop()
		return m, tea.Quit
	}

	// The dialog and text inputs own the keyboard while shown.
	if m.confirmView.Active() {
		var cmd tea.Cmd
		m.confirmView, cmd = m.confirmView.Update(msg)
		return m, cmd
	}
	switch m.currentView {
	case ViewLogin, ViewCommand, ViewSettings, ViewProfile:
		return m.updateActiveView(msg)
	}
	if m.leavesView.Editing() {
		return m.updateActiveView(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.deps.Notifications.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}
		m.helpView.SetScreen(m.screenName(), m.keyHints())
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus()

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}

	case key.Matches(msg, m.keys.Settings):
		return m, m.openSettings()

	case key.Matches(msg, m.keys.Notifications):
		return m.switchTo(ViewNotifications)

	case key.Matches(msg, m.keys.Leaves):
		return m.switchTo(ViewLeaves)

	case key.Matches(msg, m.keys.Approvals):
		return m.switchTo(ViewApprovals)

	case key.Matches(msg, m.keys.Balances):
		return m.switchTo(ViewBalances)

	case key.Matches(msg, m.keys.Profile):
		return m, m.openProfile()

	case key.Matches(msg, m.keys.Logout):
		return m, m.logout()
	}

	return m.updateActiveView(msg)
}

func (m *Model) closePalette() {
	if m.currentView == ViewCommand {
		m.currentView = m.previousView
	}
}

// canApprove reports whether the signed-in user may act on approvals.
func (m Model) canApprove() bool {
	return m.user != nil && m.deps.Session.HasAnyRole(approverRoles...)
}

// switchTo changes the dashboard screen. The approvals screen is only
// reachable for approvers.
func (m Model) switchTo(view ViewState) (tea.Model, tea.Cmd) {
	if m.user == nil {
		return m, nil
	}
	if view == ViewApprovals && !m.canApprove() {
		m.deps.Log.Debug().Msg("approvals requested without approver role")
		return m, nil
	}
	if view == ViewBalances && m.deps.Balances == nil {
		return m, nil
	}
	m.currentView = view
	return m, nil
}

func (m Model) handleAuthChanged(u *model.User) (tea.Model, tea.Cmd) {
	prev := m.user
	m.user = u

	if u == nil {
		if prev == nil {
			return m, nil
		}
		if m.confirmView.Active() {
			m.deps.Confirm.Resolve(m.confirmView.Request().ID, false)
			m.confirmView.Dismiss(m.confirmView.Request().ID)
		}
		m.unread = 0
		m.leavesView.Reset()
		m.approvalsView.Reset()
		m.balancesView.Reset()
		m.detailView.Clear()
		m.currentView = ViewLogin
		return m, tea.Batch(m.loginView.Reset(), m.purgeCache())
	}

	if prev == nil || prev.ID != u.ID {
		if m.currentView == ViewLogin {
			m.currentView = ViewNotifications
		}
		return m, m.loadLeaves()
	}
	return m, nil
}

func (m Model) handleRoute(route events.Route) (tea.Model, tea.Cmd) {
	switch route {
	case events.RouteLogin:
		if m.currentView != ViewLogin {
			m.currentView = ViewLogin
			return m, m.loginView.Reset()
		}
	case events.RouteDashboard:
		if m.user != nil {
			m.currentView = ViewNotifications
		}
	}
	return m, nil
}

// loadLeaves fetches the user's leave lists and balances. The
// approvals list is only fetched for approvers.
func (m *Model) loadLeaves() tea.Cmd {
	if m.user == nil {
		return nil
	}
	cmds := []tea.Cmd{m.leavesView.Load(m.user.ID)}
	if m.deps.Balances != nil {
		cmds = append(cmds, m.balancesView.Load(m.user.ID))
	}
	if m.canApprove() {
		cmds = append(cmds, m.approvalsView.Load(m.user.ID))
	}
	return tea.Batch(cmds...)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewNotifications:
		m.notificationsView, cmd = m.notificationsView.Update(msg)
	case ViewLeaves:
		m.leavesView, cmd = m.leavesView.Update(msg)
	case ViewApprovals:
		m.approvalsView, cmd = m.approvalsView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewBalances:
		m.balancesView, cmd = m.balancesView.Update(msg)
	case ViewProfile:
		m.profileView, cmd = m.profileView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	userName := ""
	if m.user != nil {
		userName = m.user.FullName()
		if userName == "" {
			userName = m.user.Email
		}
	}
	header := m.layout.RenderHeader("leavedesk", userName, m.unread)

	content := m.renderContent()
	if m.confirmView.Active() {
		content = m.layout.RenderOverlay(m.confirmView.View())
	}

	var noticeText, noticeLevel string
	if m.notice != nil {
		noticeText = m.notice.Text
		noticeLevel = m.notice.Level.String()
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints(), noticeText, noticeLevel)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewNotifications:
		return m.notificationsView.View()
	case ViewLeaves:
		return m.leavesView.View()
	case ViewApprovals:
		return m.approvalsView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewSettings:
		return m.settingsView.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewBalances:
		return m.balancesView.View()
	case ViewProfile:
		return m.profileView.View()
	default:
		return ""
	}
}

func (m Model) screenName() string {
	switch m.currentView {
	case ViewNotifications:
		return "Notifications"
	case ViewLeaves:
		return "My Leave Applications"
	case ViewApprovals:
		return "Pending Approvals"
	case ViewBalances:
		return "Leave Balances"
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.confirmView.Active() {
		return "←/→ choose | enter answer | esc dismiss"
	}

	switch m.currentView {
	case ViewLogin:
		return "enter next | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewSettings, ViewProfile:
		return "enter next | esc close"
	case ViewDetail:
		return "j/k scroll | esc back"
	case ViewNotifications:
		return "r read | A read all | d delete | R refresh | 2 leaves | 4 balances | p profile | : command | ? help"
	case ViewLeaves:
		if m.leavesView.Editing() {
			return "enter next | esc cancel"
		}
		return "enter details | n apply | c cancel | R refresh | 1 notifications | : command | ? help"
	case ViewApprovals:
		return "enter details | a approve | x reject | R refresh | 1 notifications | : command | ? help"
	case ViewBalances:
		return "tab switch year | j/k select | R refresh | 1 notifications | p profile | : command | ? help"
	default:
		return "q quit | ? help"
	}
}
