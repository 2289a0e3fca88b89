// Package tui provides the interactive log viewer.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Theme represents terminal color theme.
type Theme int

const (
	ThemeDark Theme = iota
	ThemeLight
)

// ParseTheme maps a config value to a Theme. Unknown names fall back to dark.
func ParseTheme(name string) Theme {
	if strings.EqualFold(name, "light") {
		return ThemeLight
	}
	return ThemeDark
}

type themeStyles struct {
	title     lipgloss.Style
	statusBar lipgloss.Style
	statusKey lipgloss.Style
	follow    lipgloss.Style
	empty     lipgloss.Style
	errLine   lipgloss.Style
}

func darkStyles() themeStyles {
	bar := lipgloss.Color("#333333")
	return themeStyles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		statusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Background(bar).Padding(0, 1),
		statusKey: lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Background(bar).Bold(true).Padding(0, 1),
		follow:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Background(bar).Bold(true).Padding(0, 1),
		empty:     lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		errLine:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

func lightStyles() themeStyles {
	bar := lipgloss.Color("#DDDDDD")
	return themeStyles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5A3FC0")).
			Padding(0, 1),
		statusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(bar).Padding(0, 1),
		statusKey: lipgloss.NewStyle().Foreground(lipgloss.Color("#5A3FC0")).Background(bar).Bold(true).Padding(0, 1),
		follow:    lipgloss.NewStyle().Foreground(lipgloss.Color("28")).Background(bar).Bold(true).Padding(0, 1),
		empty:     lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		errLine:   lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
	}
}

func stylesFor(t Theme) themeStyles {
	if t == ThemeLight {
		return lightStyles()
	}
	return darkStyles()
}

// displayLine makes a raw log line safe to draw: escape sequences written by
// the logging process are dropped, tabs expanded and the result cut to width.
func displayLine(line string, width int) string {
	line = strings.ReplaceAll(ansi.Strip(line), "\t", "    ")
	if width > 0 && ansi.StringWidth(line) > width {
		return ansi.Truncate(line, width, "…")
	}
	return line
}
