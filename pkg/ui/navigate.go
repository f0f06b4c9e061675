package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/clusterview/pkg/query"
)

var navigateFields = []string{query.ParamBase1, query.ParamBase2, query.ParamTarget1, query.ParamTarget2}

// NavigateModal is the in-app location dialog: four inputs for the query
// key. A line pasted into the first field that looks like a location
// ("?base1=..." or a URL) fills all four.
type NavigateModal struct {
	inputs []textinput.Model
	focus  int
	submit bool
	cancel bool
	width  int
	theme  Theme
}

// NewNavigateModal opens the dialog pre-filled with key.
func NewNavigateModal(key query.Key, theme Theme) NavigateModal {
	values := []string{key.Base1, key.Base2, key.Target1, key.Target2}
	inputs := make([]textinput.Model, len(navigateFields))
	for i, name := range navigateFields {
		ti := textinput.New()
		ti.Prompt = padRight(name, 8) + " "
		ti.CharLimit = 200
		ti.Width = 36
		ti.SetValue(values[i])
		inputs[i] = ti
	}
	inputs[0].Focus()
	return NavigateModal{inputs: inputs, theme: theme}
}

// SetWidth updates the dialog width.
func (n *NavigateModal) SetWidth(w int) { n.width = w }

// Update handles focus movement, submit and cancel, and forwards everything
// else to the focused input.
func (n NavigateModal) Update(msg tea.Msg) (NavigateModal, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc":
			n.cancel = true
			return n, nil
		case "enter":
			if n.focus == len(n.inputs)-1 || n.pastedLocation() {
				n.submit = true
				return n, nil
			}
			return n.moveFocus(1), nil
		case "tab", "down":
			return n.moveFocus(1), nil
		case "shift+tab", "up":
			return n.moveFocus(-1), nil
		}
	}
	var cmd tea.Cmd
	n.inputs[n.focus], cmd = n.inputs[n.focus].Update(msg)
	return n, cmd
}

func (n NavigateModal) moveFocus(delta int) NavigateModal {
	n.inputs[n.focus].Blur()
	n.focus = (n.focus + delta + len(n.inputs)) % len(n.inputs)
	n.inputs[n.focus].Focus()
	return n
}

func (n NavigateModal) pastedLocation() bool {
	v := n.inputs[0].Value()
	return strings.Contains(v, query.ParamBase1+"=") || strings.Contains(v, query.ParamTarget1+"=")
}

// IsSubmitRequested reports whether enter confirmed the dialog.
func (n NavigateModal) IsSubmitRequested() bool { return n.submit }

// IsCancelRequested reports whether esc closed the dialog.
func (n NavigateModal) IsCancelRequested() bool { return n.cancel }

// Key returns the key the dialog describes.
func (n NavigateModal) Key() query.Key {
	if n.pastedLocation() {
		return query.Parse(n.inputs[0].Value())
	}
	return query.Key{
		Base1:   n.inputs[0].Value(),
		Base2:   n.inputs[1].Value(),
		Target1: n.inputs[2].Value(),
		Target2: n.inputs[3].Value(),
	}
}

// View renders the dialog box.
func (n NavigateModal) View() string {
	t := n.theme
	var lines []string
	lines = append(lines, t.Renderer.NewStyle().Bold(true).Foreground(t.Primary).Render("Open cluster query"), "")
	for _, in := range n.inputs {
		lines = append(lines, in.View())
	}
	lines = append(lines, "",
		RenderKeyHint(t, "tab", "next field")+"  "+RenderKeyHint(t, "enter", "open")+"  "+RenderKeyHint(t, "esc", "cancel"))

	return t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
}
