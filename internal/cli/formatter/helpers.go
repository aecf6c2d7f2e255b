package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		titleRendered := StyleHeader.Render(strings.ToUpper(title))
		return boxStyle.Render(titleRendered + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// Money renders cents with a currency symbol, e.g. "$60.00".
func Money(currency string, cents int64) string {
	s := domain.FormatCents(cents)
	if strings.HasPrefix(s, "-") {
		return "-" + currency + s[1:]
	}
	return currency + s
}

// Rate renders an hourly rate, e.g. "$60.00/h". A zero rate reads "unpaid".
func Rate(currency string, cents int64) string {
	if cents == 0 {
		return Dim("unpaid")
	}
	return Money(currency, cents) + "/h"
}

// Clock renders a duration as H:MM:SS for the live timer display.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// FormatSeconds converts whole seconds into a compact form like "1h 5m".
// Durations under a minute are shown in seconds.
func FormatSeconds(secs int64) string {
	if secs <= 0 {
		return "0m"
	}
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	min := secs / 60
	h := min / 60
	m := min % 60
	if h > 0 && m > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if h > 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dm", m)
}

// HumanDate returns "Today", "Yesterday" or an absolute date relative to now.
func HumanDate(t, now time.Time) string {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := t.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return "Today"
	}
	y3, m3, d3 := now.AddDate(0, 0, -1).Date()
	if y2 == y3 && m2 == m3 && d2 == d3 {
		return "Yesterday"
	}
	return t.Format("Jan 2, 2006")
}

// HumanTimestamp returns a relative timestamp such as "5m ago".
func HumanTimestamp(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < 0:
		return HumanDate(t, now)
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return HumanDate(t, now)
	}
}

// PeriodLabel capitalizes a reporting period name.
func PeriodLabel(p domain.Period) string {
	switch p {
	case domain.PeriodToday:
		return "Today"
	case domain.PeriodWeek:
		return "This week"
	case domain.PeriodMonth:
		return "This month"
	case domain.PeriodTotal:
		return "All time"
	default:
		return string(p)
	}
}

// Streak renders a day count as "3 days", dimmed when zero.
func Streak(days int) string {
	switch days {
	case 0:
		return Dim("0 days")
	case 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", days)
	}
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}
