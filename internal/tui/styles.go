package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/ewego/fleet/internal/fleet"
)

// Color palette for the fleet dashboard
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - online
	ErrorColor   = lipgloss.Color("#FF5555") // Red - offline
	WarningColor = lipgloss.Color("#FFA500") // Orange - error status
	MutedColor   = lipgloss.Color("#626262") // Gray - unknown, secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

var (
	// TitleStyle is for the dashboard header
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(PrimaryColor).
			Bold(true).
			Padding(0, 2)

	// CountStyle is for the device-count line under the header
	CountStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2)

	// ScanningStyle is for the manual-rescan indicator
	ScanningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			PaddingLeft(2)

	// EmptyStyle is for the no-devices placeholder
	EmptyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Padding(1, 2)

	statusStyles = map[fleet.Status]lipgloss.Style{
		fleet.StatusOnline:  lipgloss.NewStyle().Foreground(SuccessColor).Bold(true),
		fleet.StatusOffline: lipgloss.NewStyle().Foreground(ErrorColor).Bold(true),
		fleet.StatusError:   lipgloss.NewStyle().Foreground(WarningColor).Bold(true),
		fleet.StatusUnknown: lipgloss.NewStyle().Foreground(MutedColor),
	}
)

// statusBadge renders a status as a colored marker plus its name.
func statusBadge(status fleet.Status) string {
	marker := "●"
	if status == fleet.StatusUnknown {
		marker = "·"
	}
	style, ok := statusStyles[status]
	if !ok {
		style = statusStyles[fleet.StatusUnknown]
	}
	return style.Render(marker + " " + status.String())
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}
