package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/clusterview/internal/datasource"
	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/cluster"
	"github.com/vanderheijden86/clusterview/pkg/metrics"
	"github.com/vanderheijden86/clusterview/pkg/query"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

type thresholdReport struct {
	Threshold string `json:"threshold"`
	Present   bool   `json:"present"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	Clusters  int    `json:"clusters"`
	Largest   int    `json:"largest"`
	Groups    int    `json:"groups"`
	Dangling  int    `json:"dangling,omitempty"`
	Layout    string `json:"layout,omitempty"`
	Error     string `json:"error,omitempty"`
}

type inspectReport struct {
	Source     string                `json:"source"`
	Query      string                `json:"query"`
	Title      string                `json:"title"`
	Match      bool                  `json:"match"`
	Thresholds []thresholdReport     `json:"thresholds"`
	Stored     []string              `json:"stored_queries,omitempty"`
	Counters   map[string]int64      `json:"counters,omitempty"`
	Timings    []metrics.TimingStats `json:"timings,omitempty"`
}

func newInspectCmd(g *globalFlags) *cobra.Command {
	var (
		asJSON      bool
		withMetrics bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print node, edge and cluster counts per threshold for a query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			key, err := g.resolveKey(cmd)
			if err != nil {
				return err
			}
			src, err := openSource(cfg)
			if err != nil {
				return err
			}
			defer src.Close()

			metrics.FetchesIssued.Inc()
			b, err := src.Fetch(cmd.Context(), key)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", key.Title(), err)
			}
			report := buildReport(src.Describe(), key, b)

			if s, ok := src.(*datasource.SQLiteSource); ok {
				keys, err := s.Keys(cmd.Context())
				if err != nil {
					return err
				}
				for _, k := range keys {
					report.Stored = append(report.Stored, "?"+k.Encode())
				}
			}
			if withMetrics {
				report.Counters = metrics.CounterSnapshot()
				report.Timings = metrics.AllTimingStats()
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "include fetch and render timings")
	return cmd
}

// buildReport analyses every threshold slot of b. Absent slots are listed
// so gaps in a bundle are visible.
func buildReport(source string, key query.Key, b bundle.Bundle) inspectReport {
	r := inspectReport{
		Source: source,
		Query:  "?" + key.Encode(),
		Title:  key.Title(),
		Match:  !b.Empty(),
	}
	if b.Empty() {
		return r
	}
	for _, th := range threshold.All() {
		tr := thresholdReport{Threshold: th.String()}
		e, err := b.Lookup(th)
		if err != nil {
			r.Thresholds = append(r.Thresholds, tr)
			continue
		}
		tr.Present = true
		tr.Layout = cluster.ParseOptions(e.Options).String()
		g, err := cluster.Parse(e.Graph)
		if err != nil {
			tr.Error = err.Error()
			r.Thresholds = append(r.Thresholds, tr)
			continue
		}
		st := cluster.Analyze(g)
		tr.Nodes, tr.Edges, tr.Clusters = st.Nodes, st.Edges, st.Clusters
		tr.Largest, tr.Groups, tr.Dangling = st.Largest, st.Groups, st.Dangling
		r.Thresholds = append(r.Thresholds, tr)
	}
	return r
}

func printReport(w io.Writer, r inspectReport) {
	fmt.Fprintf(w, "%s\n", r.Title)
	fmt.Fprintf(w, "source: %s\n\n", r.Source)
	if !r.Match {
		fmt.Fprintln(w, "No Match found")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "THRESHOLD\tNODES\tEDGES\tCLUSTERS\tLARGEST\tGROUPS\tLAYOUT")
		for _, t := range r.Thresholds {
			switch {
			case !t.Present:
				fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\tmissing\n", t.Threshold)
			case t.Error != "":
				fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t%s\n", t.Threshold, t.Error)
			default:
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
					t.Threshold, t.Nodes, t.Edges, t.Clusters, t.Largest, t.Groups, t.Layout)
			}
		}
		tw.Flush()
	}

	if len(r.Stored) > 0 {
		fmt.Fprintf(w, "\nstored queries (%d):\n", len(r.Stored))
		for _, q := range r.Stored {
			fmt.Fprintf(w, "  %s\n", q)
		}
	}

	if len(r.Timings) > 0 || len(r.Counters) > 0 {
		fmt.Fprintln(w, "\nmetrics:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, s := range r.Timings {
			if s.Count == 0 {
				continue
			}
			fmt.Fprintf(tw, "  %s\t%d calls\tavg %.2fms\tmax %.2fms\n", s.Name, s.Count, s.AvgMs, s.MaxMs)
		}
		for _, c := range metrics.AllCounters() {
			fmt.Fprintf(tw, "  %s\t%d\n", c.Name(), r.Counters[c.Name()])
		}
		tw.Flush()
	}
}
