package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/clusterview/pkg/query"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// IsTerminal checks if stdin is connected to a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// formInput and formOutput replace stdin and stdout for forms when set.
var (
	formInput  io.Reader
	formOutput io.Writer
)

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if formInput != nil {
		form = form.WithInput(formInput).WithOutput(formOutput)
	}
	if formInput != nil || !IsTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// PromptKey asks for the four entity labels, pre-filled from initial.
func PromptKey(initial query.Key) (query.Key, error) {
	key := initial
	form := newForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Cluster query").
				Description("base1 .* base2 ~ target1 .* target2"),
			huh.NewInput().Title("base1").Value(&key.Base1),
			huh.NewInput().Title("base2").Value(&key.Base2),
			huh.NewInput().Title("target1").Value(&key.Target1),
			huh.NewInput().Title("target2").Value(&key.Target2),
		),
	)
	if err := form.Run(); err != nil {
		return initial, err
	}
	return key, nil
}

// ExportChoice is what the export wizard collects.
type ExportChoice struct {
	Dir       string
	Format    string
	Threshold string // "all" or a threshold such as "0.3"
}

// wizardFormats returns the formats written into a directory. SQLite writes
// a single database file and is only chosen with --format.
func wizardFormats() []huh.Option[string] {
	return []huh.Option[string]{
		huh.NewOption("SVG snapshots", "svg"),
		huh.NewOption("PNG snapshots", "png"),
		huh.NewOption("Graphviz DOT", string(GraphFormatDOT)),
		huh.NewOption("Mermaid", string(GraphFormatMermaid)),
		huh.NewOption("JSON adjacency", string(GraphFormatJSON)),
		huh.NewOption("Markdown report", "md"),
	}
}

// normalizeChoice puts format and threshold into the exact option values the
// selects offer. A select whose value matches no option falls back to its
// first option, which would silently replace what the user asked for.
func normalizeChoice(c ExportChoice) (ExportChoice, error) {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	switch c.Format {
	case "":
		c.Format = "svg"
	case "markdown":
		c.Format = "md"
	}
	known := false
	for _, opt := range wizardFormats() {
		if opt.Value == c.Format {
			known = true
			break
		}
	}
	if !known {
		return c, fmt.Errorf("unknown format %q (want svg, png, dot, mermaid, json or md)", c.Format)
	}

	c.Threshold = strings.ToLower(strings.TrimSpace(c.Threshold))
	if c.Threshold == "" || c.Threshold == "all" {
		c.Threshold = "all"
		return c, nil
	}
	th, err := threshold.Parse(c.Threshold)
	if err != nil {
		return c, fmt.Errorf("threshold: %w", err)
	}
	c.Threshold = th.String()
	return c, nil
}

// PromptExport asks for export settings the command line left open. Values
// already given are pre-selected.
func PromptExport(defaults ExportChoice) (ExportChoice, error) {
	choice, err := normalizeChoice(defaults)
	if err != nil {
		return defaults, err
	}

	thOpts := []huh.Option[string]{huh.NewOption("All thresholds", "all")}
	for _, th := range threshold.All() {
		thOpts = append(thOpts, huh.NewOption(th.String(), th.String()))
	}

	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Output directory").
				Value(&choice.Dir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("directory is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Format").
				Options(wizardFormats()...).
				Value(&choice.Format),
			huh.NewSelect[string]().
				Title("Distance Threshold (Clustering)").
				Options(thOpts...).
				Value(&choice.Threshold),
		),
	)
	if err := form.Run(); err != nil {
		return defaults, err
	}
	return choice, nil
}
