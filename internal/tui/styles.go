// Package tui provides the terminal host for the notes UI.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorBorder    = lipgloss.Color("#5c6370")
	colorFocus     = lipgloss.Color("#61afef")
	colorPrimary   = lipgloss.Color("#c678dd")
	colorSecondary = lipgloss.Color("#98c379")
	colorWarning   = lipgloss.Color("#e5c07b")
	colorText      = lipgloss.Color("#dcdfe4")
	colorTextDim   = lipgloss.Color("#7f848e")
)

var (
	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	focusedPanelStyle = panelStyle.
				BorderForeground(colorFocus)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	listItemStyle = lipgloss.NewStyle().
			Foreground(colorText)

	listActiveStyle = lipgloss.NewStyle().
			Foreground(colorFocus).
			Bold(true)

	listPreviewStyle = lipgloss.NewStyle().
				Foreground(colorTextDim)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	modalStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(colorPrimary).
			Padding(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	toastStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)
)
