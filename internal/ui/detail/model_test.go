package detail

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leave-management/internal/keys"
	"github.com/nhle/leave-management/internal/model"
)

func application() model.LeaveApplication {
	return model.LeaveApplication{
		ID:         12,
		User:       model.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		LeaveType:  model.LeaveType{Name: "Annual"},
		StartDate:  model.NewDate(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)),
		EndDate:    model.NewDate(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)),
		TotalDays:  3,
		Reason:     "Family trip",
		Status:     model.LeaveStatusRejected,
		ApprovedBy: &model.User{Email: "boss@example.com"},

		RejectionReason: "Release week",
	}
}

func TestEmptyDetail(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	assert.Contains(t, m.View(), "No leave application selected")
}

func TestRenderApplication(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	m.SetApplication(application())

	view := m.View()
	assert.Contains(t, view, "Annual #12")
	assert.Contains(t, view, "REJECTED")
	assert.Contains(t, view, "Ada Lovelace")
	assert.Contains(t, view, "Mar 4 – Mar 6, 2024")
	assert.Contains(t, view, "3 days")
	assert.Contains(t, view, "boss@example.com")
	assert.Contains(t, view, "Family trip")
	assert.Contains(t, view, "Release week")
	assert.NotContains(t, view, "Cancellation reason")
}

func TestMissingReason(t *testing.T) {
	app := application()
	app.Reason = ""

	m := New(keys.DefaultKeyMap(), 100, 30)
	m.SetApplication(app)
	assert.Contains(t, m.View(), "No reason given")
}

func TestBackKey(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	m.SetApplication(application())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}

func TestClear(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	m.SetApplication(application())
	m.Clear()
	assert.Contains(t, m.View(), "No leave application selected")
}
