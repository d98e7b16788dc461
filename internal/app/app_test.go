package app

import (
	"context"
	"slices"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leave-management/internal/confirm"
	"github.com/nhle/leave-management/internal/events"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/notification"
	"github.com/nhle/leave-management/internal/ui/balances"
	"github.com/nhle/leave-management/internal/ui/command"
	settingsview "github.com/nhle/leave-management/internal/ui/config"
	"github.com/nhle/leave-management/internal/ui/leaves"
	profileview "github.com/nhle/leave-management/internal/ui/profile"
)

type fakeSession struct {
	mu      sync.Mutex
	user    *model.User
	logouts int
}

func (f *fakeSession) Login(context.Context, string, string) error { return nil }

func (f *fakeSession) Register(context.Context, model.RegisterRequest) (string, error) {
	return "", nil
}

func (f *fakeSession) User() *model.User { return f.user }

func (f *fakeSession) HasAnyRole(roles ...string) bool {
	if f.user == nil {
		return false
	}
	for _, r := range roles {
		if slices.Contains(f.user.Roles, r) {
			return true
		}
	}
	return false
}

func (f *fakeSession) Logout() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return nil
}

type fakeCenter struct {
	state   notification.State
	refresh int
	readAll int
	stopped bool
}

func (f *fakeCenter) MarkAsRead(context.Context, int64) error         { return nil }
func (f *fakeCenter) MarkAllAsRead(context.Context) error             { f.readAll++; return nil }
func (f *fakeCenter) DeleteNotification(context.Context, int64) error { return nil }
func (f *fakeCenter) Refresh()                                        { f.refresh++ }
func (f *fakeCenter) Snapshot() notification.State                    { return f.state }
func (f *fakeCenter) Stop()                                           { f.stopped = true }

type fakeResolver struct {
	resolved map[string]bool
}

func (f *fakeResolver) Resolve(id string, ok bool) bool {
	if f.resolved == nil {
		f.resolved = map[string]bool{}
	}
	f.resolved[id] = ok
	return true
}

type fakeBalances struct {
	years []int
}

func (f *fakeBalances) ListByUserAndYear(_ context.Context, _ int64, year int) ([]model.LeaveBalance, error) {
	f.years = append(f.years, year)
	return []model.LeaveBalance{{ID: 1, LeaveType: model.LeaveType{Name: "Annual"}, Year: year, TotalDays: 20, RemainingDays: 20}}, nil
}

type fakeUsers struct{}

func (fakeUsers) UpdateProfile(_ context.Context, id int64, req model.UpdateProfileRequest) (model.Profile, error) {
	return model.Profile{ID: id, FirstName: req.FirstName, LastName: req.LastName}, nil
}

type fakeApplier struct{}

func (fakeApplier) ApplyProfile(model.Profile) error { return nil }

type fakePurger struct {
	purged int
}

func (f *fakePurger) Purge(context.Context) error {
	f.purged++
	return nil
}

type harness struct {
	session  *fakeSession
	center   *fakeCenter
	resolver *fakeResolver
	purger   *fakePurger
	balances *fakeBalances
}

func newHarness(user *model.User) (Model, *harness) {
	h := &harness{
		session:  &fakeSession{user: user},
		center:   &fakeCenter{},
		resolver: &fakeResolver{},
		purger:   &fakePurger{},
		balances: &fakeBalances{},
	}
	m := New(Deps{
		Session:       h.session,
		Notifications: h.center,
		Confirm:       h.resolver,
		Balances:      h.balances,
		Profile:       profileview.Deps{Users: fakeUsers{}, Session: fakeApplier{}, Notifier: events.NewNotifier(events.NewBus())},
		Cache:         h.purger,
		Log:           zerolog.Nop(),
	})
	m = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, h
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func employee() *model.User {
	return &model.User{ID: 7, Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", Roles: []string{model.RoleEmployee}}
}

func manager() *model.User {
	return &model.User{ID: 9, Email: "grace@example.com", FirstName: "Grace", LastName: "Hopper", Roles: []string{model.RoleManager}}
}

func TestStartsOnLoginWhenSignedOut(t *testing.T) {
	m, _ := newHarness(nil)

	assert.Equal(t, ViewLogin, m.currentView)
	assert.Contains(t, m.View(), "Sign in to your account")
}

func TestStartsOnNotificationsWhenSignedIn(t *testing.T) {
	m, _ := newHarness(employee())

	assert.Equal(t, ViewNotifications, m.currentView)
	assert.Contains(t, m.View(), "Ada Lovelace")
}

func TestSignInSwitchesToDashboard(t *testing.T) {
	m, h := newHarness(nil)

	h.session.user = employee()
	m, cmd := updateCmd(m, AuthChangedMsg{User: h.session.user})
	assert.Equal(t, ViewNotifications, m.currentView)
	assert.NotNil(t, cmd, "signing in loads the leave lists")
}

func TestSignOutReturnsToLogin(t *testing.T) {
	m, _ := newHarness(employee())
	m = update(m, runes("2"))
	require.Equal(t, ViewLeaves, m.currentView)

	m, cmd := updateCmd(m, AuthChangedMsg{User: nil})
	assert.Equal(t, ViewLogin, m.currentView)
	assert.Nil(t, m.user)
	assert.Equal(t, 0, m.unread)
	assert.NotNil(t, cmd)

	// A repeated sign-out event is a no-op.
	m, cmd = updateCmd(m, AuthChangedMsg{User: nil})
	assert.Equal(t, ViewLogin, m.currentView)
	assert.Nil(t, cmd)
}

func TestPurgeCache(t *testing.T) {
	m, h := newHarness(employee())

	cmd := m.purgeCache()
	require.NotNil(t, cmd)
	assert.Equal(t, cachePurgedMsg{}, cmd())
	assert.Equal(t, 1, h.purger.purged)
}

func TestSignOutCancelsOpenDialog(t *testing.T) {
	m, h := newHarness(employee())
	m = update(m, ConfirmRequestedMsg(confirm.Request{ID: "c1", Options: confirm.Options{Title: "Cancel leave?"}}))
	require.True(t, m.confirmView.Active())

	m = update(m, AuthChangedMsg{User: nil})
	assert.False(t, m.confirmView.Active())
	ok, seen := h.resolver.resolved["c1"]
	assert.True(t, seen)
	assert.False(t, ok)
}

func TestConfirmAfterSignOutIsDeclined(t *testing.T) {
	m, h := newHarness(nil)

	m = update(m, ConfirmRequestedMsg(confirm.Request{ID: "late", Options: confirm.Options{Title: "Approve leave?"}}))

	assert.False(t, m.confirmView.Active())
	assert.Equal(t, ViewLogin, m.currentView)
	ok, seen := h.resolver.resolved["late"]
	assert.True(t, seen)
	assert.False(t, ok)
}

func TestBalancesScreen(t *testing.T) {
	m, _ := newHarness(employee())

	m = update(m, runes("4"))
	require.Equal(t, ViewBalances, m.currentView)

	year := m.balancesView.Year()
	m = update(m, balances.LoadedMsg{UserID: 7, Year: year, Balances: []model.LeaveBalance{
		{ID: 1, LeaveType: model.LeaveType{Name: "Sick"}, Year: year, TotalDays: 10, RemainingDays: 8, UsedDays: 2},
	}})
	view := m.View()
	assert.Contains(t, view, "Leave Balances")
	assert.Contains(t, view, "Sick")

	m = update(m, AuthChangedMsg{User: nil})
	assert.Equal(t, 0, m.balancesView.Year())
}

func TestProfileEditorOpensAndCloses(t *testing.T) {
	m, _ := newHarness(employee())

	m, cmd := updateCmd(m, runes("p"))
	require.Equal(t, ViewProfile, m.currentView)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "My Profile")

	// Typing goes to the form, not to the screen keys.
	m = update(m, runes("1"))
	assert.Equal(t, ViewProfile, m.currentView)

	m = update(m, profileview.DoneMsg{})
	assert.Equal(t, ViewNotifications, m.currentView)
}

func TestProfileRequiresUser(t *testing.T) {
	m, _ := newHarness(nil)
	m = update(m, command.CommandMsg("profile"))
	assert.Equal(t, ViewLogin, m.currentView)
}

func TestApprovalsRequireApproverRole(t *testing.T) {
	m, _ := newHarness(employee())
	m = update(m, runes("3"))
	assert.Equal(t, ViewNotifications, m.currentView)

	m, _ = newHarness(manager())
	m = update(m, runes("3"))
	assert.Equal(t, ViewApprovals, m.currentView)
	assert.Contains(t, m.View(), "Pending Approvals")
}

func TestScreenKeys(t *testing.T) {
	m, _ := newHarness(employee())

	m = update(m, runes("2"))
	assert.Equal(t, ViewLeaves, m.currentView)

	m = update(m, runes("1"))
	assert.Equal(t, ViewNotifications, m.currentView)
}

func TestHelpToggle(t *testing.T) {
	m, _ := newHarness(employee())

	m = update(m, runes("?"))
	assert.Equal(t, ViewHelp, m.currentView)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m = update(m, runes("?"))
	assert.Equal(t, ViewNotifications, m.currentView)
}

func TestRouteMessages(t *testing.T) {
	m, _ := newHarness(employee())

	m = update(m, RouteMsg(events.RouteLogin))
	assert.Equal(t, ViewLogin, m.currentView)

	m = update(m, RouteMsg(events.RouteDashboard))
	assert.Equal(t, ViewNotifications, m.currentView)
}

func TestDashboardRouteIgnoredWhenSignedOut(t *testing.T) {
	m, _ := newHarness(nil)

	m = update(m, RouteMsg(events.RouteDashboard))
	assert.Equal(t, ViewLogin, m.currentView)
}

func TestNoticeExpires(t *testing.T) {
	m, _ := newHarness(employee())

	m, cmd := updateCmd(m, NoticeMsg(events.Notice{Level: events.LevelSuccess, Text: "Login successful!"}))
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Login successful!")

	m = update(m, NoticeMsg(events.Notice{Level: events.LevelError, Text: "Failed to cancel leave application"}))

	// The first notice's timer must not clear the second.
	m = update(m, noticeExpiredMsg{seq: 1})
	require.NotNil(t, m.notice)
	assert.Equal(t, "Failed to cancel leave application", m.notice.Text)

	m = update(m, noticeExpiredMsg{seq: 2})
	assert.Nil(t, m.notice)
}

func TestNotificationsMessageUpdatesBadge(t *testing.T) {
	m, _ := newHarness(employee())

	m = update(m, NotificationsMsg(notification.State{
		Phase:       notification.PhaseReady,
		UnreadCount: 12,
		Notifications: []model.Notification{
			{ID: 1, Title: "Leave approved", Message: "Your leave was approved"},
		},
	}))
	assert.Equal(t, 12, m.unread)
	view := m.View()
	assert.Contains(t, view, "9+")
	assert.Contains(t, view, "Notifications (12 unread)")
}

func TestConfirmOverlay(t *testing.T) {
	m, _ := newHarness(employee())

	m = update(m, ConfirmRequestedMsg(confirm.Request{
		ID:      "c1",
		Options: confirm.Options{Title: "Approve leave?", Message: "Approve this request?"},
	}))
	require.True(t, m.confirmView.Active())
	assert.Contains(t, m.View(), "Approve leave?")

	// Screen keys are swallowed by the dialog.
	m = update(m, runes("2"))
	assert.Equal(t, ViewNotifications, m.currentView)

	m = update(m, ConfirmResolvedMsg("other"))
	assert.True(t, m.confirmView.Active())

	m = update(m, ConfirmResolvedMsg("c1"))
	assert.False(t, m.confirmView.Active())
}

func TestCommandPalette(t *testing.T) {
	m, h := newHarness(employee())

	m, cmd := updateCmd(m, runes(":"))
	assert.Equal(t, ViewCommand, m.currentView)
	assert.NotNil(t, cmd)

	m = update(m, runes("2"))
	assert.Equal(t, ViewCommand, m.currentView, "palette owns the keyboard")

	m = update(m, command.CommandMsg("leaves"))
	assert.Equal(t, ViewLeaves, m.currentView)

	m = update(m, command.CommandMsg("approvals"))
	assert.Equal(t, ViewLeaves, m.currentView)

	m = update(m, command.CommandMsg("refresh"))
	assert.Equal(t, 1, h.center.refresh)
}

func TestReadAllCommand(t *testing.T) {
	m, h := newHarness(employee())

	_, cmd := updateCmd(m, command.CommandMsg("read all"))
	assert.Nil(t, cmd, "nothing unread")

	m = update(m, NotificationsMsg(notification.State{UnreadCount: 2}))
	_, cmd = updateCmd(m, command.CommandMsg("read all"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, h.center.readAll)
}

func TestLogoutKey(t *testing.T) {
	m, h := newHarness(employee())

	_, cmd := updateCmd(m, runes("L"))
	require.NotNil(t, cmd)
	assert.Equal(t, logoutDoneMsg{}, cmd())
	assert.Equal(t, 1, h.session.logouts)
}

func TestQuitStopsPolling(t *testing.T) {
	m, h := newHarness(employee())

	_, cmd := updateCmd(m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.True(t, h.center.stopped)
}

func TestQuitKeyTypesIntoLoginForm(t *testing.T) {
	m, h := newHarness(nil)

	m = update(m, runes("q"))
	assert.Equal(t, ViewLogin, m.currentView)
	assert.False(t, h.center.stopped)
}

func TestSettingsOpenAndClose(t *testing.T) {
	m, _ := newHarness(employee())

	m, cmd := updateCmd(m, runes(","))
	assert.Equal(t, ViewSettings, m.currentView)
	assert.NotNil(t, cmd)

	// The form owns the keyboard.
	m = update(m, runes("2"))
	assert.Equal(t, ViewSettings, m.currentView)

	m = update(m, settingsview.DoneMsg{})
	assert.Equal(t, ViewNotifications, m.currentView)
}

func TestLeaveDetailOpenAndBack(t *testing.T) {
	m, _ := newHarness(employee())
	m = update(m, runes("2"))

	m = update(m, leaves.OpenMsg{App: model.LeaveApplication{
		ID:        5,
		LeaveType: model.LeaveType{Name: "Annual"},
		Status:    model.LeaveStatusPending,
		Reason:    "Family trip",
	}})
	assert.Equal(t, ViewDetail, m.currentView)
	assert.Contains(t, m.View(), "Family trip")

	m, cmd := updateCmd(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	m = update(m, cmd())
	assert.Equal(t, ViewLeaves, m.currentView)
}
