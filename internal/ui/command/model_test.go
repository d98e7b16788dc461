package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "read all", Normalize("  Read   ALL "))
	assert.Equal(t, "", Normalize("   "))
}

func TestEnterEmitsCommand(t *testing.T) {
	m := typeText(New(80, 24), "Logout")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg("logout"), cmd())
}

func TestEnterOnEmptyInputCloses(t *testing.T) {
	_, cmd := New(80, 24).Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}

func TestEscCloses(t *testing.T) {
	m := typeText(New(80, 24), "ref")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}
