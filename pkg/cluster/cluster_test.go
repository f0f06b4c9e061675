package cluster

import (
	"errors"
	"testing"
)

const sampleGraph = `{
  "nodes": [
    {"id": 0, "label": "Acme", "group": 1, "title": "<b>Acme</b>"},
    {"id": 1, "label": "Corp", "group": 1},
    {"id": "2", "label": "Inc", "group": "b"},
    {"id": 3, "label": "", "group": 2},
    {"id": 4, "label": "alone"}
  ],
  "edges": [
    {"from": 0, "to": 1, "label": "0.91", "value": 0.91},
    {"from": 1, "to": "2", "value": "0.5"},
    {"from": 3, "to": 3},
    {"from": 9, "to": 0}
  ]
}`

func TestParseToleratesMixedIDs(t *testing.T) {
	g, err := Parse([]byte(sampleGraph))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.Nodes) != 5 || len(g.Edges) != 4 {
		t.Fatalf("got %d nodes %d edges", len(g.Nodes), len(g.Edges))
	}
	if g.Nodes[0].ID != "0" || g.Nodes[2].ID != "2" {
		t.Errorf("ids not normalised: %q %q", g.Nodes[0].ID, g.Nodes[2].ID)
	}
	if g.Nodes[0].Group != "1" || g.Nodes[2].Group != "b" || g.Nodes[4].Group != "" {
		t.Errorf("groups not normalised: %q %q %q", g.Nodes[0].Group, g.Nodes[2].Group, g.Nodes[4].Group)
	}
	if g.Nodes[3].Name() != "3" || g.Nodes[1].Name() != "Corp" {
		t.Errorf("Name fallback wrong: %q %q", g.Nodes[3].Name(), g.Nodes[1].Name())
	}
	if g.Edges[0].Value != 0.91 || g.Edges[1].Value != 0.5 || g.Edges[0].Label != "0.91" {
		t.Errorf("edge values wrong: %+v %+v", g.Edges[0], g.Edges[1])
	}
}

func TestParseEmptyAndInvalid(t *testing.T) {
	g, err := Parse(nil)
	if err != nil || len(g.Nodes) != 0 {
		t.Fatalf("Parse(nil) = %+v, %v", g, err)
	}
	g, err = Parse([]byte(`{}`))
	if err != nil || len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Fatalf("Parse({}) = %+v, %v", g, err)
	}
	for _, bad := range []string{`{"nodes":[{"id":true}]}`, `{"nodes":"x"}`, `{"edges":[{"from":1,"to":2,"value":"big"}]}`} {
		if _, err := Parse([]byte(bad)); !errors.Is(err, ErrInvalidGraph) {
			t.Errorf("Parse(%s) err = %v, want ErrInvalidGraph", bad, err)
		}
	}
}

func TestAnalyze(t *testing.T) {
	g, err := Parse([]byte(sampleGraph))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	st := Analyze(g)
	want := Stats{Nodes: 5, Edges: 4, Clusters: 3, Largest: 3, Groups: 3, Dangling: 1}
	if st != want {
		t.Fatalf("Analyze = %+v, want %+v", st, want)
	}
}

func TestComponentsOrdering(t *testing.T) {
	g, _ := Parse([]byte(sampleGraph))
	comps := Components(g)
	if len(comps) != 3 {
		t.Fatalf("got %d components", len(comps))
	}
	first := comps[0]
	if len(first.Nodes) != 3 || first.Nodes[0].ID != "0" || first.Nodes[2].ID != "2" {
		t.Fatalf("largest component wrong: %+v", first.Nodes)
	}
	if len(first.Edges) != 2 {
		t.Errorf("largest component edges = %d, want 2", len(first.Edges))
	}
	// Singletons keep document order.
	if comps[1].Nodes[0].ID != "3" || comps[2].Nodes[0].ID != "4" {
		t.Errorf("singletons out of order: %q %q", comps[1].Nodes[0].ID, comps[2].Nodes[0].ID)
	}
	if len(comps[1].Edges) != 1 {
		t.Errorf("self loop should stay with its node, got %d edges", len(comps[1].Edges))
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	if st := Analyze(Graph{}); st != (Stats{}) {
		t.Fatalf("Analyze(empty) = %+v", st)
	}
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Options
	}{
		{"empty", `{}`, Options{Physics: true}},
		{"physics off", `{"physics":{"enabled":false}}`, Options{}},
		{"physics bool", `{"physics":false}`, Options{}},
		{"hier bool", `{"layout":{"hierarchical":true}}`, Options{Hierarchical: true, Physics: true}},
		{"hier obj", `{"layout":{"hierarchical":{"direction":"LR"}},"physics":{"stabilization":true}}`, Options{Hierarchical: true, Direction: "LR", Physics: true}},
		{"hier disabled", `{"layout":{"hierarchical":{"enabled":false}}}`, Options{Physics: true}},
		{"garbage", `[`, Options{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseOptions([]byte(tt.raw)); got != tt.want {
				t.Fatalf("ParseOptions(%s) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
	if s := (Options{Hierarchical: true, Direction: "UD"}).String(); s != "layout hierarchical UD, physics off" {
		t.Errorf("String() = %q", s)
	}
}
