package ui

import (
	"fmt"
	"time"

	"github.com/nhle/leave-management/internal/model"
)

// RelativeTime returns a human-friendly relative time string.
func RelativeTime(t time.Time) string {
	return relativeTime(time.Now(), t)
}

func relativeTime(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	default:
		return t.Format("Jan 2, 2006")
	}
}

// DateRange renders an inclusive leave period, collapsing single days.
func DateRange(start, end model.Date) string {
	if start.Equal(end.Time) || end.IsZero() {
		return start.Format("Mon Jan 2, 2006")
	}
	if start.Year() == end.Year() {
		return start.Format("Jan 2") + " – " + end.Format("Jan 2, 2006")
	}
	return start.Format("Jan 2, 2006") + " – " + end.Format("Jan 2, 2006")
}

// DaysLabel formats a business-day count, e.g. "1 day" or "2.5 days".
func DaysLabel(days float64) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%g days", days)
}
