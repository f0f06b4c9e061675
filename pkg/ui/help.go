package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// helpMarkdown builds the help text from the key map so the overlay never
// drifts from the bindings.
func helpMarkdown(keys KeyMap) string {
	var sb strings.Builder
	sb.WriteString("# Cluster view\n\n")
	sb.WriteString("The title reads `base1 .* base2 ~ target1 .* target2`. ")
	sb.WriteString("Each query has one graph per distance threshold; 0.8 is shown first.\n\n")

	sections := []struct {
		title string
		rows  []int
	}{
		{"Threshold", []int{0}},
		{"Clusters", []int{1}},
		{"Query", []int{2}},
		{"General", []int{3}},
	}
	full := keys.FullHelp()
	for _, sec := range sections {
		fmt.Fprintf(&sb, "## %s\n\n| Key | Action |\n|---|---|\n", sec.title)
		for _, r := range sec.rows {
			for _, b := range full[r] {
				h := b.Help()
				fmt.Fprintf(&sb, "| `%s` | %s |\n", h.Key, h.Desc)
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("> A threshold the result has no graph for keeps the current one and shows a warning.\n")
	return sb.String()
}

// renderHelp renders the help markdown with glamour, falling back to the
// raw markdown when rendering fails.
func renderHelp(keys KeyMap, width int) string {
	wrap := clamp(width-8, 40, 80)
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	md := helpMarkdown(keys)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n ")
}

// renderHelpOverlay centers the rendered help in a bordered box.
func (m Model) renderHelpOverlay() string {
	t := m.theme
	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(0, 1).
		Render(m.helpText + "\n\n" + t.MutedText.Render("press ? or esc to close"))
	return lipgloss.Place(m.width, max(m.height-1, 1), lipgloss.Center, lipgloss.Center, box)
}
