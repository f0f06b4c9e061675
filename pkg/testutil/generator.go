// Package testutil provides test fixture generators for cluster graphs and
// threshold bundles. All generators produce deterministic output for
// reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// GraphFixture represents an abstract graph. Edges index into Nodes.
type GraphFixture struct {
	Description string     `json:"description"`
	Nodes       []string   `json:"nodes"`
	Edges       [][2]int   `json:"edges"` // [from_idx, to_idx]
	Properties  Properties `json:"properties,omitempty"`
}

// Properties holds what a fixture is expected to analyse to. Zero means
// unknown.
type Properties struct {
	Clusters int `json:"clusters,omitempty"`
	Largest  int `json:"largest,omitempty"`
}

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed   int64    // Random seed for determinism
	Names  []string // Label stems; the node index is appended
	Groups []string // Group names assigned round-robin (nil = no groups)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:   42,
		Names:  []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", "Stark"},
		Groups: []string{"base", "target"},
	}
}

// Generator creates fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if len(cfg.Names) == 0 {
		cfg.Names = DefaultConfig().Names
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Topologies
// ============================================================================

// Chain links n0 - n1 - ... - n{size-1} into one cluster.
func (g *Generator) Chain(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, 0, max(size-1, 0))
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Chain of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Clusters: min(size, 1), Largest: size},
	}
}

// Star connects every spoke to one hub.
func (g *Generator) Star(spokes int) GraphFixture {
	nodes := []string{"hub"}
	edges := make([][2]int, 0, spokes)
	for i := 1; i <= spokes; i++ {
		nodes = append(nodes, fmt.Sprintf("spoke%d", i))
		edges = append(edges, [2]int{0, i})
	}
	return GraphFixture{
		Description: fmt.Sprintf("Star with %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Clusters: 1, Largest: spokes + 1},
	}
}

// Disconnected creates isolated chains of componentSize nodes each.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	var nodes []string
	var edges [][2]int

	nodeID := 0
	for c := 0; c < components; c++ {
		for i := 0; i < componentSize; i++ {
			nodes = append(nodes, fmt.Sprintf("c%d_n%d", c, i))
			if i > 0 {
				edges = append(edges, [2]int{nodeID - 1, nodeID})
			}
			nodeID++
		}
	}

	props := Properties{}
	if componentSize > 0 {
		props = Properties{Clusters: components, Largest: componentSize}
	}
	return GraphFixture{
		Description: fmt.Sprintf("%d disconnected chains of %d nodes", components, componentSize),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  props,
	}
}

// Complete connects every pair of nodes.
func (g *Generator) Complete(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, 0, size*(size-1)/2)
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		for j := i + 1; j < size; j++ {
			edges = append(edges, [2]int{i, j})
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Complete graph of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Clusters: min(size, 1), Largest: size},
	}
}

// Random adds each possible edge with probability density. The cluster
// shape is left to analysis.
func (g *Generator) Random(size int, density float64) GraphFixture {
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
	}
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if g.rng.Float64() < density {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Random graph of %d nodes, density %.2f", size, density),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// AtThreshold models agglomerative clustering of size nodes: at stop t
// consecutive nodes merge into chains of t+1, so higher thresholds give
// fewer, larger clusters.
func (g *Generator) AtThreshold(size int, t threshold.Threshold) GraphFixture {
	chunk := int(t) + 1
	var edges [][2]int
	nodes := make([]string, size)
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i%chunk != 0 {
			edges = append(edges, [2]int{i - 1, i})
		}
	}
	props := Properties{}
	if size > 0 {
		props = Properties{Clusters: (size + chunk - 1) / chunk, Largest: min(chunk, size)}
	}
	return GraphFixture{
		Description: fmt.Sprintf("%d nodes clustered at %s", size, t),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  props,
	}
}

// ============================================================================
// Documents
// ============================================================================

type graphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group,omitempty"`
}

type graphEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

type graphDoc struct {
	Nodes []graphNode `json:"nodes"`
	Edges []graphEdge `json:"edges"`
}

// GraphJSON renders gf as a graph document with generated labels. Edge
// labels carry a distance drawn from the generator.
func (g *Generator) GraphJSON(gf GraphFixture) []byte {
	doc := graphDoc{Nodes: []graphNode{}, Edges: []graphEdge{}}
	for i, id := range gf.Nodes {
		n := graphNode{
			ID:    id,
			Label: fmt.Sprintf("%s %d", g.cfg.Names[i%len(g.cfg.Names)], i),
		}
		if len(g.cfg.Groups) > 0 {
			n.Group = g.cfg.Groups[i%len(g.cfg.Groups)]
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	for _, e := range gf.Edges {
		doc.Edges = append(doc.Edges, graphEdge{
			From:  gf.Nodes[e[0]],
			To:    gf.Nodes[e[1]],
			Label: fmt.Sprintf("%.2f", g.rng.Float64()),
		})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal graph: %v", err))
	}
	return data
}

// DefaultOptions is the options document attached to generated entries.
const DefaultOptions = `{"layout":{"hierarchical":false},"physics":{"enabled":true}}`

// Entry pairs the graph document of gf with DefaultOptions.
func (g *Generator) Entry(gf GraphFixture) bundle.Entry {
	return bundle.Entry{Graph: g.GraphJSON(gf), Options: json.RawMessage(DefaultOptions)}
}

// BundleJSON renders a bundle document keyed by the decimal thresholds.
func (g *Generator) BundleJSON(fixtures map[threshold.Threshold]GraphFixture) []byte {
	ths := make([]threshold.Threshold, 0, len(fixtures))
	for t := range fixtures {
		ths = append(ths, t)
	}
	sort.Slice(ths, func(i, j int) bool { return ths[i] < ths[j] })

	doc := make(map[string]bundle.Entry, len(fixtures))
	for _, t := range ths {
		doc[t.String()] = g.Entry(fixtures[t])
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal bundle: %v", err))
	}
	return data
}

// Series builds AtThreshold fixtures of size nodes for the given stops, or
// for all nine when none are given.
func (g *Generator) Series(size int, ths ...threshold.Threshold) map[threshold.Threshold]GraphFixture {
	if len(ths) == 0 {
		ths = threshold.All()
	}
	out := make(map[threshold.Threshold]GraphFixture, len(ths))
	for _, t := range ths {
		out[t] = g.AtThreshold(size, t)
	}
	return out
}

// ============================================================================
// Convenience
// ============================================================================

// QuickBundle returns a complete nine-threshold bundle document over size
// nodes.
func QuickBundle(size int) []byte {
	g := NewDefault()
	return g.BundleJSON(g.Series(size))
}

// QuickEntry returns a single entry holding a chain of size nodes.
func QuickEntry(size int) bundle.Entry {
	g := NewDefault()
	return g.Entry(g.Chain(size))
}
