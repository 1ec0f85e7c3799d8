package cli

import (
	"github.com/charmbracelet/lipgloss"

	"svcore/internal/orchestrator"
)

// Semantic colors with light/dark terminal support.
var (
	ColorSuccess = lipgloss.AdaptiveColor{
		Light: "#059669",
		Dark:  "#10B981",
	}
	ColorError = lipgloss.AdaptiveColor{
		Light: "#DC2626",
		Dark:  "#EF4444",
	}
	ColorWarning = lipgloss.AdaptiveColor{
		Light: "#D97706",
		Dark:  "#F59E0B",
	}
	ColorInfo = lipgloss.AdaptiveColor{
		Light: "#2563EB",
		Dark:  "#3B82F6",
	}
	ColorTextTertiary = lipgloss.AdaptiveColor{
		Light: "#9CA3AF",
		Dark:  "#6B7280",
	}
)

var (
	TextSuccessStyle = lipgloss.NewStyle().
				Foreground(ColorSuccess)

	TextErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	TextWarningStyle = lipgloss.NewStyle().
				Foreground(ColorWarning)

	TextInfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	TextTertiaryStyle = lipgloss.NewStyle().
				Foreground(ColorTextTertiary)

	SummaryStyle = lipgloss.NewStyle().
			Bold(true)
)

// formatStatus adds an icon and color to a package status.
func formatStatus(status orchestrator.Status) string {
	switch status {
	case orchestrator.StatusCompleted:
		return TextSuccessStyle.Render("✅ " + string(status))
	case orchestrator.StatusFailed:
		return TextErrorStyle.Render("❌ " + string(status))
	case orchestrator.StatusSkipped:
		return TextWarningStyle.Render("⏭️  " + string(status))
	case orchestrator.StatusRunning:
		return TextInfoStyle.Render("⏳ " + string(status))
	default:
		return string(status)
	}
}

// formatState colors the overall run state.
func formatState(state orchestrator.State) string {
	switch state {
	case orchestrator.StateCompleted:
		return TextSuccessStyle.Render(string(state))
	case orchestrator.StateFailed:
		return TextErrorStyle.Render(string(state))
	default:
		return TextInfoStyle.Render(string(state))
	}
}
