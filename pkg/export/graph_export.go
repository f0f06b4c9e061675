package export

import (
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/cluster"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// GraphExportFormat specifies the output format for graph export.
type GraphExportFormat string

const (
	GraphFormatJSON    GraphExportFormat = "json"
	GraphFormatDOT     GraphExportFormat = "dot"
	GraphFormatMermaid GraphExportFormat = "mermaid"
)

// IsGraphFormat reports whether format is one of the text graph formats.
func IsGraphFormat(format string) bool {
	switch GraphExportFormat(strings.ToLower(format)) {
	case GraphFormatJSON, GraphFormatDOT, GraphFormatMermaid:
		return true
	}
	return false
}

// GraphExportResult contains the exported graph and metadata.
type GraphExportResult struct {
	Format      string           `json:"format"`
	Threshold   string           `json:"threshold"`
	Graph       string           `json:"graph,omitempty"`
	Nodes       int              `json:"nodes"`
	Edges       int              `json:"edges"`
	Clusters    int              `json:"clusters"`
	Layout      string           `json:"layout"`
	Explanation GraphExplanation `json:"explanation"`
	Adjacency   *AdjacencyGraph  `json:"adjacency,omitempty"`
}

// GraphExplanation says what the export holds and how to view it.
type GraphExplanation struct {
	What        string `json:"what"`
	HowToRender string `json:"how_to_render,omitempty"`
	WhenToUse   string `json:"when_to_use"`
}

// AdjacencyGraph is the JSON representation, one entry per cluster.
type AdjacencyGraph struct {
	Clusters []AdjacencyCluster `json:"clusters"`
}

// AdjacencyCluster is one connected cluster.
type AdjacencyCluster struct {
	Index int             `json:"index"`
	Nodes []AdjacencyNode `json:"nodes"`
	Edges []AdjacencyEdge `json:"edges"`
}

// AdjacencyNode represents a node in the adjacency graph.
type AdjacencyNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group,omitempty"`
}

// AdjacencyEdge represents an edge in the adjacency graph.
type AdjacencyEdge struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Label string  `json:"label,omitempty"`
	Value float64 `json:"value,omitempty"`
}

// ExportGraph renders the graph of one threshold in a text format.
func ExportGraph(t threshold.Threshold, e bundle.Entry, format GraphExportFormat) (*GraphExportResult, error) {
	g, err := cluster.Parse(e.Graph)
	if err != nil {
		return nil, fmt.Errorf("threshold %s: %w", t, err)
	}
	opts := cluster.ParseOptions(e.Options)
	comps := cluster.Components(g)
	stats := cluster.Analyze(g)

	result := &GraphExportResult{
		Format:    string(format),
		Threshold: t.String(),
		Nodes:     stats.Nodes,
		Edges:     stats.Edges,
		Clusters:  stats.Clusters,
		Layout:    opts.String(),
	}

	switch format {
	case GraphFormatDOT:
		result.Graph = generateDOT(g, comps, opts)
		result.Explanation = GraphExplanation{
			What:        fmt.Sprintf("Cluster graph at threshold %s in Graphviz DOT format", t),
			HowToRender: "Save to file.dot, run: dot -Tpng file.dot -o graph.png",
			WhenToUse:   "When you need a laid-out picture of every cluster",
		}

	case GraphFormatMermaid:
		result.Graph = GenerateMermaidGraph(g, comps, MermaidConfig{Direction: mermaidDirection(opts)})
		result.Explanation = GraphExplanation{
			What:        fmt.Sprintf("Cluster graph at threshold %s in Mermaid diagram format", t),
			HowToRender: "Paste into any Markdown renderer that supports Mermaid, or use mermaid.live",
			WhenToUse:   "When you need an embeddable diagram for documentation",
		}

	case GraphFormatJSON:
		result.Adjacency = generateAdjacency(comps)
		result.Explanation = GraphExplanation{
			What:      fmt.Sprintf("Clusters at threshold %s as JSON adjacency lists", t),
			WhenToUse: "When you need programmatic access to cluster membership",
		}

	default:
		return nil, fmt.Errorf("unsupported graph format %q (want json, dot or mermaid)", format)
	}

	return result, nil
}

// Text returns the file content of the result.
func (r *GraphExportResult) Text() ([]byte, error) {
	if r.Format == string(GraphFormatJSON) {
		return r.JSON()
	}
	return []byte(r.Graph), nil
}

// JSON returns the result as indented JSON.
func (r *GraphExportResult) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func generateDOT(g cluster.Graph, comps []cluster.Component, opts cluster.Options) string {
	var sb strings.Builder

	sb.WriteString("graph G {\n")
	if opts.Hierarchical {
		rankdir := "TB"
		switch strings.ToUpper(opts.Direction) {
		case "LR", "RL", "BT":
			rankdir = strings.ToUpper(opts.Direction)
		}
		sb.WriteString(fmt.Sprintf("    rankdir=%s;\n", rankdir))
	} else {
		sb.WriteString("    layout=neato;\n    overlap=false;\n")
	}
	sb.WriteString("    node [shape=box, style=\"rounded,filled\", fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=8, color=\"" + css(colorEdge) + "\"];\n")
	sb.WriteString("\n")

	groups := groupsOf(g)
	fill := func(id cluster.Ident) string {
		for i, candidate := range groups {
			if candidate == id {
				return css(groupPalette[i%len(groupPalette)])
			}
		}
		return css(groupPalette[0])
	}

	for ci, c := range comps {
		sb.WriteString(fmt.Sprintf("    subgraph cluster_%d {\n", ci+1))
		sb.WriteString(fmt.Sprintf("        label=\"Cluster %d (%d)\";\n", ci+1, len(c.Nodes)))
		sb.WriteString("        color=\"#cccccc\";\n")
		for _, n := range c.Nodes {
			sb.WriteString(fmt.Sprintf("        \"%s\" [label=\"%s\", fillcolor=\"%s\"];\n",
				escapeDOTString(string(n.ID)), escapeDOTString(truncate(n.Name(), 30)), fill(n.Group)))
		}
		sb.WriteString("    }\n")
	}

	sb.WriteString("\n")

	for _, c := range comps {
		for _, e := range c.Edges {
			attrs := ""
			if e.Label != "" {
				attrs = fmt.Sprintf(" [label=\"%s\"]", escapeDOTString(e.Label))
			}
			sb.WriteString(fmt.Sprintf("    \"%s\" -- \"%s\"%s;\n",
				escapeDOTString(string(e.From)), escapeDOTString(string(e.To)), attrs))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func escapeDOTString(s string) string {
	// DOT string literals need backslashes and quotes escaped; normalize newlines.
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", " ",
		"\r", " ",
	)
	return replacer.Replace(s)
}

func mermaidDirection(opts cluster.Options) string {
	if !opts.Hierarchical {
		return "LR"
	}
	switch d := strings.ToUpper(opts.Direction); d {
	case "LR", "RL", "BT":
		return d
	}
	return "TD"
}

func generateAdjacency(comps []cluster.Component) *AdjacencyGraph {
	adj := &AdjacencyGraph{Clusters: make([]AdjacencyCluster, 0, len(comps))}
	for ci, c := range comps {
		ac := AdjacencyCluster{
			Index: ci + 1,
			Nodes: make([]AdjacencyNode, 0, len(c.Nodes)),
			Edges: make([]AdjacencyEdge, 0, len(c.Edges)),
		}
		for _, n := range c.Nodes {
			ac.Nodes = append(ac.Nodes, AdjacencyNode{ID: string(n.ID), Label: n.Name(), Group: string(n.Group)})
		}
		for _, e := range c.Edges {
			ac.Edges = append(ac.Edges, AdjacencyEdge{From: string(e.From), To: string(e.To), Label: e.Label, Value: e.Value})
		}
		sort.SliceStable(ac.Edges, func(i, j int) bool {
			if ac.Edges[i].From != ac.Edges[j].From {
				return ac.Edges[i].From < ac.Edges[j].From
			}
			return ac.Edges[i].To < ac.Edges[j].To
		})
		adj.Clusters = append(adj.Clusters, ac)
	}
	return adj
}
