package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

type styles struct {
	title  lipgloss.Style
	method lipgloss.Style
	value  lipgloss.Style
	typ    lipgloss.Style
	cost   lipgloss.Style
	err    lipgloss.Style
	help   lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		method: lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		value:  lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")),
		typ:    lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		cost:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		err:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		help:   lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

// colorEnabled reports whether f is a terminal and colour was not disabled.
func colorEnabled(f *os.File, disabled bool) bool {
	return !disabled && term.IsTerminal(int(f.Fd()))
}
