//go:build !wasip1

package program

import "github.com/charmbracelet/lipgloss"

var sayStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("11"))

func sayPrefix() string {
	return sayStyle.Render("Stylus says:")
}
