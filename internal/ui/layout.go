package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leave-management/internal/theme"
)

// maxBadgeCount is the largest unread count shown verbatim.
const maxBadgeCount = 9

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// BadgeText formats an unread count the way the header bell shows it:
// empty for zero, the number up to nine, "9+" above.
func BadgeText(count int) string {
	switch {
	case count <= 0:
		return ""
	case count > maxBadgeCount:
		return fmt.Sprintf("%d+", maxBadgeCount)
	default:
		return fmt.Sprintf("%d", count)
	}
}

// RenderHeader renders the top header bar with a title on the left and
// the signed-in user plus unread badge on the right.
func (l Layout) RenderHeader(title, user string, unread int) string {
	titleRendered := theme.HeaderStyle.Render(title)

	right := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(user)
	if badge := BadgeText(unread); badge != "" {
		right = lipgloss.JoinHorizontal(
			lipgloss.Top,
			right,
			theme.UnreadBadgeStyle.Render("● "+badge),
		)
	}

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		right,
	)
}

// RenderStatusBar renders the bottom status bar. A non-empty notice
// replaces the keyboard hints and is colored by its level.
func (l Layout) RenderStatusBar(hints, notice, level string) string {
	var rendered string
	if notice != "" {
		rendered = theme.NoticeStyle(level).Render(notice)
	} else {
		rendered = theme.StatusBarStyle.Render(hints)
	}

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderOverlay centers a dialog inside the content area.
func (l Layout) RenderOverlay(dialog string) string {
	return lipgloss.Place(
		l.ContentWidth(),
		l.ContentHeight(),
		lipgloss.Center,
		lipgloss.Center,
		dialog,
	)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
