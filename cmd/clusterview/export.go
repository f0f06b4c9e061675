package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/clusterview/pkg/export"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

const defaultDatabaseName = "clusters.db"

type exportFlags struct {
	out       string
	format    string
	threshold string
	preset    string
}

func newExportCmd(g *globalFlags) *cobra.Command {
	ef := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cluster graphs of a query to images, text graphs, markdown or SQLite",
		Long: `Fetch the bundle of one query and write it out.

svg and png render one snapshot per threshold into --out (a directory).
dot, mermaid and json write one text graph per threshold into --out.
md writes a single markdown report covering every threshold into --out.
sqlite stores the bundle in --out (a database file) so it can be opened
later with --source FILE.db.`,
		Example: `  clusterview export --query '?base1=Acme&base2=Corp&target1=Acme&target2=Inc' --out shots
  clusterview export --source http://localhost:5000 --format png --threshold 0.3 --out shots
  clusterview export --format mermaid --threshold 0.8 --out diagrams
  clusterview export --format md --out reports
  clusterview export --format sqlite --out offline.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, g, ef)
		},
	}
	cmd.Flags().StringVarP(&ef.out, "out", "o", "", "output directory, or database file for sqlite")
	cmd.Flags().StringVar(&ef.format, "format", "", "svg, png, dot, mermaid, json, md or sqlite (default from config)")
	cmd.Flags().StringVar(&ef.threshold, "threshold", "", "threshold to export, e.g. 0.3, or all")
	cmd.Flags().StringVar(&ef.preset, "preset", "compact", "snapshot layout: compact or roomy")
	return cmd
}

// parseThresholdChoice maps "all" (or nothing) to the zero threshold, which
// ExportAll reads as every stored threshold.
func parseThresholdChoice(s string) (threshold.Threshold, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return 0, nil
	}
	return threshold.Parse(s)
}

func runExport(cmd *cobra.Command, g *globalFlags, ef *exportFlags) error {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}
	key, err := g.resolveKey(cmd)
	if err != nil {
		return err
	}

	choice := export.ExportChoice{Dir: ef.out, Format: strings.ToLower(ef.format), Threshold: ef.threshold}
	if choice.Dir == "" && choice.Format != "sqlite" && isTerminal() {
		if choice.Format == "" {
			choice.Format = cfg.Export.Format
		}
		if choice.Dir == "" {
			choice.Dir = cfg.Export.Dir
		}
		if choice, err = export.PromptExport(choice); err != nil {
			return fmt.Errorf("export prompt: %w", err)
		}
	}
	if choice.Format == "" {
		choice.Format = cfg.Export.Format
	}
	choice.Format = strings.ToLower(choice.Format)

	only, err := parseThresholdChoice(choice.Threshold)
	if err != nil {
		return fmt.Errorf("--threshold: %w", err)
	}

	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx := cmd.Context()
	b, err := src.Fetch(ctx, key)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", key.Title(), err)
	}
	out := cmd.OutOrStdout()

	switch choice.Format {
	case "sqlite":
		path := choice.Dir
		if path == "" {
			path = filepath.Join(cfg.Export.Dir, defaultDatabaseName)
		}
		if b.Empty() {
			return fmt.Errorf("no match found for %s", key.Title())
		}
		n, err := export.SaveToSQLite(ctx, path, key, b)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Stored %d thresholds of %s in %s\n", n, key.Title(), path)
		return nil

	case "md", "markdown":
		dir := choice.Dir
		if dir == "" {
			dir = cfg.Export.Dir
		}
		path := filepath.Join(dir, export.ReportFileName(key))
		if err := export.SaveMarkdownToFile(key, b, path); err != nil {
			return err
		}
		fmt.Fprintln(out, path)
		return nil

	case "svg", "png", string(export.GraphFormatDOT), string(export.GraphFormatMermaid), string(export.GraphFormatJSON):
		dir := choice.Dir
		if dir == "" {
			dir = cfg.Export.Dir
		}
		paths, err := export.ExportAll(ctx, export.BundleExport{
			Dir:    dir,
			Format: choice.Format,
			Preset: ef.preset,
			Key:    key,
			Bundle: b,
			Only:   only,
		})
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(out, p)
		}
		return nil

	default:
		return fmt.Errorf("unknown format %q (want svg, png, dot, mermaid, json, md or sqlite)", choice.Format)
	}
}
