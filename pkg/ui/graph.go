package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/cluster"
	"github.com/vanderheijden86/clusterview/pkg/debug"
	"github.com/vanderheijden86/clusterview/pkg/metrics"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// GraphModel presents one (graph, options) pair as a list of clusters with
// the members and intra-cluster edges of the selected one.
type GraphModel struct {
	threshold threshold.Threshold
	graph     cluster.Graph
	options   cluster.Options
	comps     []cluster.Component
	stats     cluster.Stats
	groups    map[cluster.Ident]int
	err       error

	selectedIdx  int
	scrollOffset int
	theme        Theme
}

// NewGraphModel creates an empty presenter.
func NewGraphModel(theme Theme) GraphModel {
	return GraphModel{theme: theme}
}

// SetEntry replaces the displayed pair. The selected cluster index is kept
// when it is still in range so stepping through thresholds stays anchored.
func (g *GraphModel) SetEntry(t threshold.Threshold, e bundle.Entry) {
	defer metrics.Timer(metrics.GraphRender)()

	g.threshold = t
	g.options = cluster.ParseOptions(e.Options)
	parsed, err := cluster.Parse(e.Graph)
	if err != nil {
		debug.Log("graph at %s unreadable: %v", t, err)
		g.err = err
		g.graph = cluster.Graph{}
		g.comps = nil
		g.stats = cluster.Stats{}
		g.selectedIdx = 0
		return
	}
	g.err = nil
	g.graph = parsed
	g.comps = cluster.Components(parsed)
	g.stats = cluster.Analyze(parsed)

	g.groups = make(map[cluster.Ident]int)
	var names []string
	for _, n := range parsed.Nodes {
		if _, ok := g.groups[n.Group]; !ok {
			g.groups[n.Group] = 0
			names = append(names, string(n.Group))
		}
	}
	sort.Strings(names)
	for i, name := range names {
		g.groups[cluster.Ident(name)] = i
	}

	if g.selectedIdx >= len(g.comps) {
		g.selectedIdx = 0
	}
}

// Clear drops the displayed pair.
func (g *GraphModel) Clear() {
	*g = GraphModel{theme: g.theme}
}

// Threshold returns the threshold of the displayed pair.
func (g GraphModel) Threshold() threshold.Threshold { return g.threshold }

// Stats returns the shape of the displayed graph.
func (g GraphModel) Stats() cluster.Stats { return g.stats }

// Err returns the parse error of the displayed graph, if any.
func (g GraphModel) Err() error { return g.err }

// Navigation
func (g *GraphModel) MoveUp() {
	if g.selectedIdx > 0 {
		g.selectedIdx--
	}
}

func (g *GraphModel) MoveDown() {
	if g.selectedIdx < len(g.comps)-1 {
		g.selectedIdx++
	}
}

// SelectedIndex returns the index of the selected cluster.
func (g GraphModel) SelectedIndex() int { return g.selectedIdx }

// SelectedCluster returns the selected cluster, or nil when there is none.
func (g GraphModel) SelectedCluster() *cluster.Component {
	if len(g.comps) == 0 {
		return nil
	}
	c := g.comps[g.selectedIdx]
	return &c
}

// ClusterCount returns the number of clusters.
func (g GraphModel) ClusterCount() int { return len(g.comps) }

// View renders the cluster list next to the selected cluster.
func (g *GraphModel) View(width, height int) string {
	t := g.theme

	summary := t.MutedText.Render(fmt.Sprintf("nodes: %d  edges: %d  clusters: %d  largest: %d  ·  %s",
		g.stats.Nodes, g.stats.Edges, g.stats.Clusters, g.stats.Largest, g.options))
	if g.stats.Dangling > 0 {
		summary += t.WarningText.Render(fmt.Sprintf("  (%d dangling edges)", g.stats.Dangling))
	}

	if g.err != nil {
		msg := t.Renderer.NewStyle().Foreground(t.Danger).Render("Graph could not be read: " + g.err.Error())
		return lipgloss.JoinVertical(lipgloss.Left, summary, "", msg)
	}

	if len(g.comps) == 0 {
		empty := t.Renderer.NewStyle().
			Width(width).
			Height(max(height-2, 1)).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(t.Secondary).
			Render("Empty graph")
		return lipgloss.JoinVertical(lipgloss.Left, summary, empty)
	}

	bodyHeight := max(height-2, 1)
	listWidth := 22
	if width < 60 {
		return lipgloss.JoinVertical(lipgloss.Left, summary, "", g.renderCluster(width, bodyHeight))
	}

	list := g.renderClusterList(listWidth, bodyHeight)
	sep := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Render(strings.TrimSuffix(strings.Repeat("│\n", bodyHeight), "\n"))
	detail := g.renderCluster(width-listWidth-3, bodyHeight)

	body := lipgloss.JoinHorizontal(lipgloss.Top, list, " ", sep, " ", detail)
	return lipgloss.JoinVertical(lipgloss.Left, summary, "", body)
}

func (g *GraphModel) renderClusterList(width, height int) string {
	t := g.theme
	var lines []string

	header := t.Renderer.NewStyle().Bold(true).Foreground(t.Primary).Width(width)
	lines = append(lines, header.Render(fmt.Sprintf("Clusters (%d)", len(g.comps))))
	lines = append(lines, t.MutedText.Render(strings.Repeat("─", width)))

	visible := max(height-3, 1)
	start := g.scrollOffset
	if g.selectedIdx < start {
		start = g.selectedIdx
	} else if g.selectedIdx >= start+visible {
		start = g.selectedIdx - visible + 1
	}
	g.scrollOffset = start
	end := min(start+visible, len(g.comps))

	for i := start; i < end; i++ {
		c := g.comps[i]
		label := fmt.Sprintf("#%-3d %3d nodes", i+1, len(c.Nodes))
		if i == g.selectedIdx {
			lines = append(lines, t.Renderer.NewStyle().
				Bold(true).
				Foreground(t.Primary).
				Background(t.Highlight).
				Width(width).
				Render(label))
		} else {
			lines = append(lines, t.Text.Width(width).Render(label))
		}
	}

	if len(g.comps) > visible {
		lines = append(lines, t.MutedText.Italic(true).Width(width).Align(lipgloss.Center).
			Render(fmt.Sprintf("(%d-%d of %d)", start+1, end, len(g.comps))))
	}
	return strings.Join(lines, "\n")
}

// renderCluster draws member boxes wrapped to width, then the edge list.
func (g *GraphModel) renderCluster(width, height int) string {
	t := g.theme
	c := g.comps[g.selectedIdx]

	var sections []string
	sections = append(sections, t.Renderer.NewStyle().Bold(true).Foreground(t.Primary).
		Render(fmt.Sprintf("Cluster #%d  ·  %d members  ·  %d links", g.selectedIdx+1, len(c.Nodes), len(c.Edges))))

	boxWidth := 18
	var rows []string
	var row []string
	rowWidth := 0
	for _, n := range c.Nodes {
		box := t.Renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.GroupColor(g.groups[n.Group])).
			Foreground(t.GroupColor(g.groups[n.Group])).
			Width(boxWidth).
			Align(lipgloss.Center).
			Render(truncate(n.Name(), boxWidth))
		w := lipgloss.Width(box) + 1
		if rowWidth+w > width && len(row) > 0 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, rowWidth = nil, 0
		}
		row = append(row, box, " ")
		rowWidth += w
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	sections = append(sections, rows...)

	names := make(map[cluster.Ident]string, len(c.Nodes))
	for _, n := range c.Nodes {
		names[n.ID] = n.Name()
	}
	if len(c.Edges) > 0 {
		sections = append(sections, "", t.MutedText.Render("Links"))
		// Each box row is three lines tall.
		budget := max(height-len(rows)*3-4, 1)
		for i, e := range c.Edges {
			if i >= budget {
				sections = append(sections, t.MutedText.Render(fmt.Sprintf("… %d more", len(c.Edges)-i)))
				break
			}
			line := truncate(names[e.From], 24) + t.MutedText.Render(" ── ") + truncate(names[e.To], 24)
			if e.Label != "" {
				line += "  " + t.MutedText.Render(e.Label)
			}
			sections = append(sections, "  "+line)
		}
	}

	return strings.Join(sections, "\n")
}
