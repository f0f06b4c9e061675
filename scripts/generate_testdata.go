//go:build ignore

// generate_testdata.go creates sample bundle files for manual testing and
// benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates one bundle per query under testdata/bundles, named the way a
// directory source looks them up. Open them with:
//
//	clusterview --source testdata/bundles --query '?base1=Acme&base2=Corp&target1=Acme&target2=Inc'
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/clusterview/internal/datasource"
	"github.com/vanderheijden86/clusterview/pkg/query"
	"github.com/vanderheijden86/clusterview/pkg/testutil"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

type datasetSpec struct {
	key  query.Key
	size int
	ths  []threshold.Threshold // nil = all nine
	desc string
}

var datasets = []datasetSpec{
	{query.Key{Base1: "Acme", Base2: "Corp", Target1: "Acme", Target2: "Inc"}, 20, nil, "20 nodes, every threshold"},
	{query.Key{Base1: "Globex", Base2: "Ltd", Target1: "Globex", Target2: "Group"}, 200, nil, "200 nodes, every threshold"},
	{query.Key{Base1: "Initech", Base2: "LLC", Target1: "Initrode", Target2: "Inc"}, 50, []threshold.Threshold{2, 5, 8}, "50 nodes, sparse stops"},
	{query.Key{Base1: "Hooli", Base2: "XYZ", Target1: "Pied", Target2: "Piper"}, 2000, nil, "2000 nodes, every threshold"},
}

func main() {
	outputDir := filepath.Join("testdata", "bundles")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for i, ds := range datasets {
		fmt.Printf("Generating %s (%s)...\n", ds.key.Title(), ds.desc)

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:   int64(ds.size + i), // Reproducible per dataset
			Names:  []string{ds.key.Base1, ds.key.Base2, ds.key.Target1, ds.key.Target2},
			Groups: []string{"base", "target"},
		})
		data := gen.BundleJSON(gen.Series(ds.size, ds.ths...))

		outputPath := filepath.Join(outputDir, datasource.KeyFileName(ds.key))
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}
		fmt.Printf("  Written %s (%d bytes)\n", outputPath, len(data))
	}

	fmt.Println("\nDone! Sample bundles created in", outputDir)
}
