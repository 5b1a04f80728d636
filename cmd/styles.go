package cmd

import "github.com/charmbracelet/lipgloss"

// Styles used across the CLI commands
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4F8B")). // Hot pink
			Bold(true).
			Padding(1, 0)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC")) // Light Gray

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7FDBFF"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6347")). // Tomato red
			Bold(true)

	statusStyles = map[string]lipgloss.Style{
		"Created":        lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")),
		"Active":         lipgloss.NewStyle().Foreground(lipgloss.Color("#7FDBFF")),
		"ProofSubmitted": lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")),
		"Completed":      lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC40")).Bold(true),
		"Rejected":       lipgloss.NewStyle().Foreground(lipgloss.Color("#FF851B")),
	}
)

func renderStatus(status string) string {
	if style, ok := statusStyles[status]; ok {
		return style.Render(status)
	}
	return warningStyle.Render(status)
}
