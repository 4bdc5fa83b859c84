// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Palette shared by all CLI output, tuned for dark terminals.
const (
	// ColorPrimary is red, for titles.
	ColorPrimary = lipgloss.Color("#DC322F")
	// ColorMuted is gray, for secondary text.
	ColorMuted = lipgloss.Color("#6B7280")
	// ColorSuccess is green.
	ColorSuccess = lipgloss.Color("#10B981")
	// ColorError is red.
	ColorError = lipgloss.Color("#EF4444")
	// ColorWarning is amber.
	ColorWarning = lipgloss.Color("#F59E0B")
	// ColorHighlight is blue, for commands, paths and module names.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for primary headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle marks finished steps.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error headers.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// CmdStyle is for command names, paths and module names.
	CmdStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)

	// statusStyle pads the verb of a status line, as in "   Compiling main".
	statusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSuccess).
			Width(12).
			Align(lipgloss.Right)
)

// status renders a cargo-like status line.
func status(verb, format string, args ...any) string {
	return statusStyle.Render(verb) + " " + fmt.Sprintf(format, args...) + "\n"
}
