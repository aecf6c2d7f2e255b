package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// TimerStateLabel returns a colored indicator such as "● Running".
func TimerStateLabel(state domain.TimerState) string {
	switch state {
	case domain.TimerRunning:
		return StyleGreen.Render("● Running")
	case domain.TimerPaused:
		return StyleYellow.Render("○ Paused")
	case domain.TimerStopped:
		return StyleBlue.Render("■ Stopped")
	case domain.TimerIdle:
		return StyleDim.Render("· Idle")
	default:
		return StyleDim.Render(string(state))
	}
}

// SyncIndicator renders the persistence state of a live session. A failed
// write shows its attempt count so the user can tell a stuck save from a
// transient one.
func SyncIndicator(state domain.SyncState, attempts int) string {
	switch state {
	case domain.SyncSynced:
		return StyleGreen.Render("✔ saved")
	case domain.SyncPending:
		return StyleYellow.Render("… saving")
	case domain.SyncFailed:
		if attempts > 1 {
			return StyleRed.Render(fmt.Sprintf("✖ save failed (%d tries)", attempts))
		}
		return StyleRed.Render("✖ save failed")
	default:
		return StyleDim.Render("–")
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
