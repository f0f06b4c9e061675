package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/clusterview/internal/datasource"
	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/cluster"
	"github.com/vanderheijden86/clusterview/pkg/query"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// AssertClusters checks that gf analyses to the shape in its Properties.
func AssertClusters(t *testing.T, g *Generator, gf GraphFixture) {
	t.Helper()
	parsed, err := cluster.Parse(g.GraphJSON(gf))
	if err != nil {
		t.Fatalf("%s: parse: %v", gf.Description, err)
	}
	st := cluster.Analyze(parsed)
	if st.Nodes != len(gf.Nodes) || st.Edges != len(gf.Edges) {
		t.Errorf("%s: got %d nodes %d edges, want %d and %d",
			gf.Description, st.Nodes, st.Edges, len(gf.Nodes), len(gf.Edges))
	}
	if gf.Properties.Clusters != 0 && st.Clusters != gf.Properties.Clusters {
		t.Errorf("%s: got %d clusters, want %d", gf.Description, st.Clusters, gf.Properties.Clusters)
	}
	if gf.Properties.Largest != 0 && st.Largest != gf.Properties.Largest {
		t.Errorf("%s: largest cluster %d, want %d", gf.Description, st.Largest, gf.Properties.Largest)
	}
}

// MustDecode decodes a bundle document or fails the test.
func MustDecode(t *testing.T, data []byte) bundle.Bundle {
	t.Helper()
	b, err := bundle.Decode(data)
	if err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	return b
}

// AssertThresholds checks that b holds exactly the given stops.
func AssertThresholds(t *testing.T, b bundle.Bundle, want ...threshold.Threshold) {
	t.Helper()
	got := b.Thresholds()
	if len(got) != len(want) {
		t.Fatalf("bundle has thresholds %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bundle has thresholds %v, want %v", got, want)
		}
	}
}

// WriteBundleFile stores data where a directory source looks for key and
// returns the path.
func WriteBundleFile(t *testing.T, dir string, key query.Key, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, datasource.KeyFileName(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write bundle file: %v", err)
	}
	return path
}
