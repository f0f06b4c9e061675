package ui_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/cluster"
	"github.com/vanderheijden86/clusterview/pkg/ui"
)

const sampleGraph = `{
  "nodes": [
    {"id": "a", "label": "Acme Corp", "group": "base"},
    {"id": "b", "label": "Acme Inc", "group": "target"},
    {"id": "c", "label": "Acme Holdings", "group": "target"},
    {"id": "d", "label": "Globex"},
    {"id": "e", "label": "Initech"}
  ],
  "edges": [
    {"from": "a", "to": "b", "label": "0.12"},
    {"from": "b", "to": "c"},
    {"from": "d", "to": "e"}
  ]
}`

func sampleEntry(graph string) bundle.Entry {
	return bundle.Entry{Graph: []byte(graph), Options: []byte(`{"physics":{"enabled":true}}`)}
}

func TestGraphModel_SetEntry(t *testing.T) {
	g := ui.NewGraphModel(ui.TestTheme())
	g.SetEntry(3, sampleEntry(sampleGraph))

	if g.Threshold() != 3 {
		t.Errorf("Threshold() = %s", g.Threshold())
	}
	if g.ClusterCount() != 2 {
		t.Fatalf("ClusterCount() = %d, want 2", g.ClusterCount())
	}
	st := g.Stats()
	if st.Nodes != 5 || st.Edges != 3 || st.Largest != 3 {
		t.Errorf("Stats() = %+v", st)
	}
	c := g.SelectedCluster()
	if c == nil || len(c.Nodes) != 3 {
		t.Fatalf("largest cluster should be selected first: %+v", c)
	}
}

func TestGraphModel_Navigation(t *testing.T) {
	g := ui.NewGraphModel(ui.TestTheme())
	g.SetEntry(8, sampleEntry(sampleGraph))

	g.MoveUp()
	if g.SelectedIndex() != 0 {
		t.Fatal("MoveUp past the first cluster")
	}
	g.MoveDown()
	g.MoveDown()
	if g.SelectedIndex() != 1 {
		t.Fatalf("SelectedIndex() = %d, want 1", g.SelectedIndex())
	}

	// Selection survives a threshold change with as many clusters.
	g.SetEntry(7, sampleEntry(sampleGraph))
	if g.SelectedIndex() != 1 {
		t.Fatal("selection reset although still in range")
	}

	// And resets when the new graph has fewer clusters.
	g.SetEntry(9, sampleEntry(`{"nodes":[{"id":1},{"id":2}],"edges":[{"from":1,"to":2}]}`))
	if g.SelectedIndex() != 0 {
		t.Fatal("out of range selection not reset")
	}
}

func TestGraphModel_View(t *testing.T) {
	g := ui.NewGraphModel(ui.TestTheme())
	g.SetEntry(8, sampleEntry(sampleGraph))

	view := g.View(100, 30)
	for _, want := range []string{
		"Clusters (2)",
		"Cluster #1",
		"Acme Corp",
		"Acme Holdings",
		"Links",
		"0.12",
		"physics on",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "Initech") {
		t.Error("unselected cluster members should not be drawn")
	}

	g.MoveDown()
	if view := g.View(100, 30); !strings.Contains(view, "Initech") {
		t.Error("second cluster not drawn after MoveDown")
	}
}

func TestGraphModel_NarrowView(t *testing.T) {
	g := ui.NewGraphModel(ui.TestTheme())
	g.SetEntry(8, sampleEntry(sampleGraph))
	view := g.View(40, 20)
	if strings.Contains(view, "Clusters (2)") {
		t.Error("narrow view should drop the cluster list")
	}
	if !strings.Contains(view, "Cluster #1") {
		t.Error("narrow view should still show the selected cluster")
	}
}

func TestGraphModel_EmptyAndInvalid(t *testing.T) {
	g := ui.NewGraphModel(ui.TestTheme())
	g.SetEntry(8, sampleEntry(`{"nodes":[],"edges":[]}`))
	if g.SelectedCluster() != nil {
		t.Fatal("empty graph has no cluster")
	}
	if !strings.Contains(g.View(80, 10), "Empty graph") {
		t.Error("empty graph notice missing")
	}

	g.SetEntry(8, sampleEntry(`{"nodes":{"id":1}}`))
	if !errors.Is(g.Err(), cluster.ErrInvalidGraph) {
		t.Fatalf("Err() = %v", g.Err())
	}
	if !strings.Contains(g.View(80, 10), "Graph could not be read") {
		t.Error("parse error not shown")
	}

	g.Clear()
	if g.Err() != nil || g.ClusterCount() != 0 {
		t.Fatal("Clear did not reset the presenter")
	}
}

func TestGraphModel_DanglingEdges(t *testing.T) {
	g := ui.NewGraphModel(ui.TestTheme())
	g.SetEntry(8, sampleEntry(`{"nodes":[{"id":1}],"edges":[{"from":1,"to":99}]}`))
	if !strings.Contains(g.View(100, 10), "1 dangling edges") {
		t.Error("dangling edge warning missing")
	}
}
