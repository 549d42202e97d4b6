// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output. Tuned for dark terminal backgrounds.
const (
	// ColorPrimary is purple: titles and headers.
	ColorPrimary = lipgloss.Color("#7C3AED")

	// ColorMuted is gray: secondary text and origins.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is green: accepted rules and checkmarks.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is red: error diagnostics.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is amber: warning diagnostics.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is blue: identifiers and commands.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary text.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// IDStyle is for block, item and tag identifiers.
	IDStyle = lipgloss.NewStyle().
		Foreground(ColorHighlight)

	// labelStyle is for the left column of summaries.
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(12)
)
