package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/testutil"
)

func TestExportGraph_DOT(t *testing.T) {
	res, err := ExportGraph(8, testEntry(), GraphFormatDOT)
	if err != nil {
		t.Fatalf("ExportGraph: %v", err)
	}
	if res.Nodes != 4 || res.Edges != 2 || res.Clusters != 2 {
		t.Errorf("counts = %d/%d/%d", res.Nodes, res.Edges, res.Clusters)
	}
	for _, want := range []string{
		"graph G {",
		"rankdir=TB;",
		"subgraph cluster_1 {",
		`label="Cluster 1 (3)";`,
		`"1" -- "2" [label="0.91"];`,
		`"2" -- "3";`,
		`"4" [label="Holdings"`,
	} {
		if !strings.Contains(res.Graph, want) {
			t.Errorf("DOT missing %q:\n%s", want, res.Graph)
		}
	}
	if strings.Contains(res.Graph, "->") {
		t.Error("cluster graphs are undirected")
	}
}

func TestExportGraph_DOTFreeLayout(t *testing.T) {
	e := bundle.Entry{Graph: []byte(testGraph), Options: []byte(`{"physics":{"enabled":true}}`)}
	res, err := ExportGraph(8, e, GraphFormatDOT)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Graph, "layout=neato;") || strings.Contains(res.Graph, "rankdir") {
		t.Errorf("free layout not honoured:\n%s", res.Graph)
	}
}

func TestExportGraph_Mermaid(t *testing.T) {
	res, err := ExportGraph(3, testEntry(), GraphFormatMermaid)
	if err != nil {
		t.Fatalf("ExportGraph: %v", err)
	}
	for _, want := range []string{
		"graph TD",
		`subgraph c1["Cluster 1 (3)"]`,
		`n_1["Acme"]`,
		"n_1 ---|0.91| n_2",
		"n_2 --- n_3",
		"classDef g0",
		"end",
	} {
		if !strings.Contains(res.Graph, want) {
			t.Errorf("Mermaid missing %q:\n%s", want, res.Graph)
		}
	}
	if res.Threshold != "0.3" {
		t.Errorf("Threshold = %q", res.Threshold)
	}
}

func TestExportGraph_JSON(t *testing.T) {
	res, err := ExportGraph(8, testEntry(), GraphFormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	data, err := res.Text()
	if err != nil {
		t.Fatal(err)
	}
	var decoded GraphExportResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v\n%s", err, data)
	}
	if decoded.Adjacency == nil || len(decoded.Adjacency.Clusters) != 2 {
		t.Fatalf("adjacency = %+v", decoded.Adjacency)
	}
	first := decoded.Adjacency.Clusters[0]
	if first.Index != 1 || len(first.Nodes) != 3 || len(first.Edges) != 2 {
		t.Errorf("first cluster = %+v", first)
	}
	if first.Nodes[0].Group != "base" {
		t.Errorf("group not carried: %+v", first.Nodes[0])
	}
}

func TestExportGraph_Errors(t *testing.T) {
	if _, err := ExportGraph(8, testEntry(), "gexf"); err == nil {
		t.Error("expected unsupported format error")
	}
	bad := bundle.Entry{Graph: []byte(`{"nodes":"x"}`), Options: []byte(`{}`)}
	if _, err := ExportGraph(8, bad, GraphFormatDOT); err == nil {
		t.Error("expected parse error")
	}
}

func TestGenerateMermaidGraph_IDCollisions(t *testing.T) {
	// "a b" and "ab" sanitise to the same Mermaid id.
	e := bundle.Entry{
		Graph:   []byte(`{"nodes":[{"id":"a b"},{"id":"ab"}],"edges":[{"from":"a b","to":"ab"}]}`),
		Options: []byte(`{}`),
	}
	res, err := ExportGraph(8, e, GraphFormatMermaid)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(res.Graph, "n_ab[") != 1 {
		t.Errorf("colliding ids not disambiguated:\n%s", res.Graph)
	}
	if !strings.Contains(res.Graph, "n_ab_") {
		t.Errorf("expected hashed suffix:\n%s", res.Graph)
	}
}

func TestGenerateMermaidGraph_MaxClusters(t *testing.T) {
	gen := testutil.NewDefault()
	entry := gen.Entry(gen.Disconnected(5, 2))
	res, err := ExportGraph(8, entry, GraphFormatMermaid)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(res.Graph, "subgraph ") != 5 {
		t.Errorf("expected 5 subgraphs:\n%s", res.Graph)
	}

	md, err := GenerateMarkdown(testKey, mustBundle(t, entry), ReportOptions{MaxClusters: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "3 more clusters") {
		t.Errorf("capped diagram should note hidden clusters:\n%s", md)
	}
}

func TestExportAll_TextFormats(t *testing.T) {
	dir := t.TempDir()
	b := testBundle(t, 2, 8)
	for _, format := range []string{"dot", "mermaid", "json"} {
		paths, err := ExportAll(context.Background(), BundleExport{Dir: dir, Format: format, Key: testKey, Bundle: b})
		if err != nil {
			t.Fatalf("ExportAll(%s): %v", format, err)
		}
		if len(paths) != 2 {
			t.Fatalf("ExportAll(%s) wrote %d files", format, len(paths))
		}
		data, err := os.ReadFile(paths[1])
		if err != nil {
			t.Fatal(err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", paths[1])
		}
	}
	if _, err := os.Stat(filepath.Join(dir, SnapshotFileName(testKey, 8, "mermaid"))); err != nil {
		t.Errorf("mermaid file: %v", err)
	}
	if !strings.HasSuffix(SnapshotFileName(testKey, 8, "mermaid"), ".mmd") {
		t.Error("mermaid files use the .mmd extension")
	}
}

func mustBundle(t *testing.T, e bundle.Entry) bundle.Bundle {
	t.Helper()
	b, err := bundle.FromEntries(map[string]bundle.Entry{"0.8": e})
	if err != nil {
		t.Fatal(err)
	}
	return b
}
