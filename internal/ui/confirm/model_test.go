package confirm

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leave-management/internal/confirm"
	"github.com/nhle/leave-management/internal/events"
)

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type resolution struct {
	id string
	ok bool
}

type fakeResolver struct {
	calls []resolution
}

func (f *fakeResolver) Resolve(id string, ok bool) bool {
	f.calls = append(f.calls, resolution{id: id, ok: ok})
	return true
}

func request(severity confirm.Severity) confirm.Request {
	return confirm.Request{
		ID: "req-1",
		Options: confirm.Options{
			Title:       "Cancel leave?",
			Message:     "This cannot be undone.",
			ConfirmText: "Yes, cancel",
			CancelText:  "Keep",
			Severity:    severity,
		},
	}
}

func TestInactiveDialogIgnoresInput(t *testing.T) {
	r := &fakeResolver{}
	m := New(r, 80, 24)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.False(t, m.Active())
	assert.Empty(t, m.View())
	assert.Empty(t, r.calls)
}

func TestShowRendersRequest(t *testing.T) {
	m := New(&fakeResolver{}, 80, 24)
	m.Show(request(confirm.SeverityDanger))

	require.True(t, m.Active())
	assert.Equal(t, "req-1", m.Request().ID)
	assert.False(t, m.fb.answer, "danger requests start on cancel")

	view := m.View()
	assert.Contains(t, view, "Cancel leave?")
	assert.Contains(t, view, "Yes, cancel")
}

func TestWarningStartsOnConfirm(t *testing.T) {
	m := New(&fakeResolver{}, 80, 24)
	m.Show(request(confirm.SeverityWarning))

	assert.True(t, m.fb.answer)
}

func TestEscResolvesAsDismissed(t *testing.T) {
	r := &fakeResolver{}
	m := New(r, 80, 24)
	m.Show(request(confirm.SeverityInfo))

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, ClosedMsg{ID: "req-1", Confirmed: false}, cmd())
	assert.False(t, m.Active())
	assert.Equal(t, []resolution{{id: "req-1", ok: false}}, r.calls)
}

func TestDismissOnlyMatchingRequest(t *testing.T) {
	m := New(&fakeResolver{}, 80, 24)
	m.Show(request(confirm.SeverityInfo))

	m.Dismiss("other")
	assert.True(t, m.Active())

	m.Dismiss("req-1")
	assert.False(t, m.Active())
}

func TestDialogResolvesController(t *testing.T) {
	ctrl := confirm.NewController(events.Discard)
	done := make(chan bool, 1)
	go func() {
		ok, _ := ctrl.Confirm(t.Context(), confirm.Options{Title: "Proceed?"})
		done <- ok
	}()

	var req confirm.Request
	require.Eventually(t, func() bool {
		var ok bool
		req, ok = ctrl.Pending()
		return ok
	}, timeout, tick)

	m := New(ctrl, 80, 24)
	m.Show(req)
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, <-done)
	_, pending := ctrl.Pending()
	assert.False(t, pending)
}
