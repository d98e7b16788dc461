// Package leaves renders the user's own leave applications and the
// applications waiting for their approval.
package leaves

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leave-management/internal/api"
	"github.com/nhle/leave-management/internal/confirm"
	"github.com/nhle/leave-management/internal/events"
	"github.com/nhle/leave-management/internal/keys"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/store"
	"github.com/nhle/leave-management/internal/theme"
	"github.com/nhle/leave-management/internal/ui"
)

// requestTimeout bounds a single backend call made by the view.
const requestTimeout = 30 * time.Second

// Service is the leave backend used by the view.
type Service interface {
	ListByUser(ctx context.Context, userID int64) ([]model.LeaveApplication, error)
	PendingApprovals(ctx context.Context, approverID int64) ([]model.LeaveApplication, error)
	Create(ctx context.Context, req model.LeaveApplicationRequest) (model.LeaveApplication, error)
	Cancel(ctx context.Context, id int64, reason string) (model.LeaveApplication, error)
	Approve(ctx context.Context, id int64, comment string) (model.LeaveApplication, error)
	Reject(ctx context.Context, id int64, comment string) (model.LeaveApplication, error)
	CalculateBusinessDays(ctx context.Context, start, end model.Date) (float64, error)
	CheckBalance(ctx context.Context, userID, leaveTypeID int64, start, end model.Date) (bool, error)
}

// TypeLister lists the leave types offered in the apply form.
type TypeLister interface {
	List(ctx context.Context) ([]model.LeaveType, error)
}

// Cache keeps the last list per user for offline display.
type Cache interface {
	SaveLeaveApplications(ctx context.Context, ownerID int64, list store.LeaveList, apps []model.LeaveApplication) error
	LoadLeaveApplications(ctx context.Context, ownerID int64, list store.LeaveList) ([]model.LeaveApplication, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, opts confirm.Options) (bool, error)
}

// Deps groups the collaborators of a leave view.
type Deps struct {
	Service   Service
	Types     TypeLister
	Cache     Cache
	Confirmer Confirmer
	Notifier  events.Notifier
}

// LoadedMsg carries a list fetched from the backend or the cache.
type LoadedMsg struct {
	List      store.LeaveList
	UserID    int64
	Apps      []model.LeaveApplication
	FromCache bool
	Err       error
}

// OpenMsg asks the parent to show the details of App.
type OpenMsg struct {
	App model.LeaveApplication
}

// ChangedMsg is emitted after an application was created, cancelled,
// approved or rejected.
type ChangedMsg struct {
	List store.LeaveList
}

// Item wraps a model.LeaveApplication so it can be used in a bubbles/list.
type Item struct {
	App model.LeaveApplication
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.App.LeaveType.Name }

// Model is a list of leave applications, either the user's own
// (store.LeaveListMine) or those awaiting their decision
// (store.LeaveListApprovals).
type Model struct {
	kind    store.LeaveList
	deps    Deps
	keys    *keys.KeyMap
	list    list.Model
	form    applyForm
	userID  int64
	fresh   bool
	loading bool
	err     error
	width   int
	height  int
}

// New creates a leave view of the given kind.
func New(kind store.LeaveList, deps Deps, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, itemDelegate{kind: kind}, width, height)
	l.Title = title(kind)
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		kind:   kind,
		deps:   deps,
		keys:   k,
		list:   l,
		form:   newApplyForm(width, height),
		width:  width,
		height: height,
	}
}

func title(kind store.LeaveList) string {
	if kind == store.LeaveListApprovals {
		return "Pending Approvals"
	}
	return "My Leave Applications"
}

// Kind returns which list the view shows.
func (m Model) Kind() store.LeaveList {
	return m.kind
}

// Editing reports whether the apply form has focus.
func (m Model) Editing() bool {
	return m.form.active()
}

// Load fetches the list for userID. A cached copy is shown until the
// backend answers.
func (m *Model) Load(userID int64) tea.Cmd {
	if userID != m.userID {
		m.list.SetItems(nil)
	}
	m.userID = userID
	m.fresh = false
	m.loading = true
	m.err = nil
	return tea.Batch(m.loadCached(userID), m.fetch(userID))
}

// Reset clears the view on sign-out.
func (m *Model) Reset() {
	m.userID = 0
	m.fresh = false
	m.loading = false
	m.err = nil
	m.form.close()
	m.list.SetItems(nil)
}

func (m Model) loadCached(userID int64) tea.Cmd {
	cache, kind := m.deps.Cache, m.kind
	if cache == nil {
		return nil
	}
	return func() tea.Msg {
		apps, err := cache.LoadLeaveApplications(context.Background(), userID, kind)
		if err != nil || len(apps) == 0 {
			return nil
		}
		return LoadedMsg{List: kind, UserID: userID, Apps: apps, FromCache: true}
	}
}

func (m Model) fetch(userID int64) tea.Cmd {
	svc, cache, kind := m.deps.Service, m.deps.Cache, m.kind
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var (
			apps []model.LeaveApplication
			err  error
		)
		if kind == store.LeaveListApprovals {
			apps, err = svc.PendingApprovals(ctx, userID)
		} else {
			apps, err = svc.ListByUser(ctx, userID)
		}
		if err != nil {
			return LoadedMsg{List: kind, UserID: userID, Err: err}
		}
		if cache != nil {
			_ = cache.SaveLeaveApplications(ctx, userID, kind, apps)
		}
		return LoadedMsg{List: kind, UserID: userID, Apps: apps}
	}
}

// StartApply opens the apply form. It does nothing on the approvals list.
func (m Model) StartApply() tea.Cmd {
	if m.kind != store.LeaveListMine || m.form.active() {
		return nil
	}
	return m.loadTypes()
}

// Handles reports whether msg is a result produced by a leave view.
// Such results must reach the views even when another screen is active.
func Handles(msg tea.Msg) bool {
	switch msg.(type) {
	case LoadedMsg, ChangedMsg, typesLoadedMsg, applyCheckedMsg:
		return true
	}
	return false
}

// Selected returns the application under the cursor.
func (m Model) Selected() (model.LeaveApplication, bool) {
	item, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.LeaveApplication{}, false
	}
	return item.App, true
}

// Update handles messages for the leave view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.List != m.kind || msg.UserID != m.userID {
			return m, nil
		}
		if msg.FromCache && m.fresh {
			return m, nil
		}
		if msg.Err != nil {
			m.loading = false
			m.err = msg.Err
			return m, nil
		}
		if !msg.FromCache {
			m.fresh = true
			m.loading = false
			m.err = nil
		}
		items := make([]list.Item, len(msg.Apps))
		for i, app := range msg.Apps {
			items[i] = Item{App: app}
		}
		return m, m.list.SetItems(items)

	case ChangedMsg:
		if msg.List != m.kind {
			return m, nil
		}
		return m, m.Load(m.userID)

	case typesLoadedMsg:
		if m.kind != store.LeaveListMine {
			return m, nil
		}
		if msg.err != nil {
			m.deps.Notifier.Error("Failed to load leave types")
			return m, nil
		}
		return m, m.form.open(msg.types)

	case applyCheckedMsg:
		if m.kind != store.LeaveListMine {
			return m, nil
		}
		return m, m.submit(msg)
	}

	if m.form.active() {
		var (
			cmd  tea.Cmd
			done *applyInput
		)
		m.form, cmd, done = m.form.update(msg)
		if done != nil {
			return m, m.check(*done)
		}
		return m, cmd
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m.fetch(m.userID), true

	case key.Matches(msg, m.keys.Select):
		app, ok := m.Selected()
		if !ok {
			return nil, true
		}
		return func() tea.Msg { return OpenMsg{App: app} }, true

	case m.kind == store.LeaveListMine && key.Matches(msg, m.keys.Apply):
		return m.StartApply(), true

	case m.kind == store.LeaveListMine && key.Matches(msg, m.keys.Cancel):
		app, ok := m.Selected()
		if !ok || !cancellable(app) {
			return nil, true
		}
		return m.cancel(app), true

	case m.kind == store.LeaveListApprovals && key.Matches(msg, m.keys.Approve):
		app, ok := m.Selected()
		if !ok {
			return nil, true
		}
		return m.decide(app, true), true

	case m.kind == store.LeaveListApprovals && key.Matches(msg, m.keys.Reject):
		app, ok := m.Selected()
		if !ok {
			return nil, true
		}
		return m.decide(app, false), true
	}
	return nil, false
}

// cancellable reports whether the applicant may still withdraw app.
func cancellable(app model.LeaveApplication) bool {
	return app.Status == model.LeaveStatusPending || app.Status == model.LeaveStatusApproved
}

func (m Model) cancel(app model.LeaveApplication) tea.Cmd {
	deps, kind := m.deps, m.kind
	return func() tea.Msg {
		ok, err := deps.Confirmer.Confirm(context.Background(), confirm.Options{
			Title: "Cancel leave application?",
			Message: fmt.Sprintf("%s, %s. This cannot be undone.",
				app.LeaveType.Name, ui.DateRange(app.StartDate, app.EndDate)),
			ConfirmText: "Cancel leave",
			CancelText:  "Keep",
			Severity:    confirm.SeverityDanger,
		})
		if err != nil || !ok {
			return nil
		}

		ctx, done := context.WithTimeout(context.Background(), requestTimeout)
		defer done()
		if _, err := deps.Service.Cancel(ctx, app.ID, "Cancelled by employee"); err != nil {
			deps.Notifier.Error("Failed to cancel leave application")
			return nil
		}
		deps.Notifier.Success("Leave application cancelled successfully!")
		return ChangedMsg{List: kind}
	}
}

func (m Model) decide(app model.LeaveApplication, approve bool) tea.Cmd {
	deps, kind := m.deps, m.kind
	return func() tea.Msg {
		opts := confirm.Options{
			Title: "Approve leave application?",
			Message: fmt.Sprintf("%s requests %s of %s, %s.",
				app.User.FullName(), ui.DaysLabel(app.TotalDays),
				app.LeaveType.Name, ui.DateRange(app.StartDate, app.EndDate)),
			ConfirmText: "Approve",
			Severity:    confirm.SeverityInfo,
		}
		if !approve {
			opts.Title = "Reject leave application?"
			opts.ConfirmText = "Reject"
			opts.Severity = confirm.SeverityDanger
		}

		ok, err := deps.Confirmer.Confirm(context.Background(), opts)
		if err != nil || !ok {
			return nil
		}

		ctx, done := context.WithTimeout(context.Background(), requestTimeout)
		defer done()
		if approve {
			_, err = deps.Service.Approve(ctx, app.ID, "")
		} else {
			_, err = deps.Service.Reject(ctx, app.ID, "")
		}
		switch {
		case err != nil && approve:
			deps.Notifier.Error("Failed to approve leave application")
			return nil
		case err != nil:
			deps.Notifier.Error("Failed to reject leave application")
			return nil
		case approve:
			deps.Notifier.Success("Leave application approved successfully")
		default:
			deps.Notifier.Success("Leave application rejected")
		}
		return ChangedMsg{List: kind}
	}
}

// View renders the leave list, or the apply form while it is open.
func (m Model) View() string {
	if m.form.active() {
		return m.form.view()
	}
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState keeps the screen title visible above the loading,
// error and empty messages.
func (m Model) renderEmptyState() string {
	header := m.list.Styles.Title.Render(title(m.kind))
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(max(0, m.height-lipgloss.Height(header)-1)).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	var body string
	switch {
	case m.loading:
		body = "Loading..."
	case m.err != nil:
		body = "Could not load leave applications.\n" + api.Message(m.err) + "\n\nPress R to retry."
	case m.kind == store.LeaveListApprovals:
		body = "Nothing waiting for your approval."
	default:
		body = "No leave applications yet.\n\nPress n to apply for leave."
	}
	return header + "\n\n" + style.Render(body)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
	m.form.setSize(width, height)
}

// itemDelegate implements list.ItemDelegate for leave applications.
type itemDelegate struct {
	kind store.LeaveList
}

func (d itemDelegate) Height() int                             { return 2 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws an application as a summary line and a reason line.
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	app := it.App

	status := theme.LeaveStatusStyle(string(app.Status)).Render(string(app.Status))
	first := fmt.Sprintf("%s %s · %s · %s",
		status, app.LeaveType.Name,
		ui.DateRange(app.StartDate, app.EndDate), ui.DaysLabel(app.TotalDays))
	if d.kind == store.LeaveListApprovals {
		first = app.User.FullName() + "  " + first
	}

	reason := app.Reason
	switch app.Status {
	case model.LeaveStatusRejected:
		if app.RejectionReason != "" {
			reason = "Rejected: " + app.RejectionReason
		}
	case model.LeaveStatusCancelled:
		if app.CancellationReason != "" {
			reason = "Cancelled: " + app.CancellationReason
		}
	}
	second := "    " + lipgloss.NewStyle().Foreground(theme.ColorGray).Render(reason)

	style := theme.ListItemStyle
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}

	fmt.Fprint(w, style.Render(first+"\n"+second))
}
