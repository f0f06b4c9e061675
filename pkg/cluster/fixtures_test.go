package cluster_test

import (
	"testing"

	"github.com/vanderheijden86/clusterview/pkg/cluster"
	"github.com/vanderheijden86/clusterview/pkg/testutil"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

func TestComponentsOnGeneratedSeries(t *testing.T) {
	gen := testutil.NewDefault()
	for th, gf := range gen.Series(25) {
		g, err := cluster.Parse(gen.GraphJSON(gf))
		if err != nil {
			t.Fatalf("%s: %v", th, err)
		}
		comps := cluster.Components(g)
		if len(comps) != gf.Properties.Clusters {
			t.Errorf("%s: %d components, want %d", th, len(comps), gf.Properties.Clusters)
		}
		for i := 1; i < len(comps); i++ {
			if len(comps[i].Nodes) > len(comps[i-1].Nodes) {
				t.Errorf("%s: components not ordered largest first", th)
			}
		}
		edges := 0
		for _, c := range comps {
			edges += len(c.Edges)
		}
		if edges != len(gf.Edges) {
			t.Errorf("%s: %d edges assigned to clusters, want %d", th, edges, len(gf.Edges))
		}
	}
}

func TestAnalyzeRandomGraphsCoverEveryNode(t *testing.T) {
	gen := testutil.NewDefault()
	for _, density := range []float64{0, 0.02, 0.1, 0.5} {
		gf := gen.Random(40, density)
		g, err := cluster.Parse(gen.GraphJSON(gf))
		if err != nil {
			t.Fatal(err)
		}
		total := 0
		for _, c := range cluster.Components(g) {
			total += len(c.Nodes)
		}
		if total != len(gf.Nodes) {
			t.Errorf("density %.2f: components cover %d of %d nodes", density, total, len(gf.Nodes))
		}
		if st := cluster.Analyze(g); st.Groups != 2 {
			t.Errorf("density %.2f: %d groups, want 2", density, st.Groups)
		}
	}

	if gf := gen.AtThreshold(25, threshold.Default); gf.Properties.Largest != 9 {
		t.Fatalf("largest at default = %d", gf.Properties.Largest)
	}
}
