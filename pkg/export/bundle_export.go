package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/debug"
	"github.com/vanderheijden86/clusterview/pkg/query"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// BundleExport describes a multi-threshold export.
type BundleExport struct {
	Dir    string
	Format string // svg, png, dot, mermaid or json
	Preset string
	Key    query.Key
	Bundle bundle.Bundle
	// Only restricts the export to one threshold when valid.
	Only threshold.Threshold
}

// SnapshotFileName names the snapshot of key at t, e.g.
// "Acme-Corp__Acme-Inc_0.3.svg".
func SnapshotFileName(key query.Key, t threshold.Threshold, format string) string {
	base := sanitize(key.Base1) + "-" + sanitize(key.Base2)
	target := sanitize(key.Target1) + "-" + sanitize(key.Target2)
	return fmt.Sprintf("%s__%s_%s.%s", base, target, t, fileExt(format))
}

func fileExt(format string) string {
	switch format = strings.ToLower(format); format {
	case "":
		return "svg"
	case string(GraphFormatMermaid):
		return "mmd"
	default:
		return format
	}
}

// writeGraphText exports one threshold in a text graph format.
func writeGraphText(path string, th threshold.Threshold, e bundle.Entry, format string) error {
	res, err := ExportGraph(th, e, GraphExportFormat(format))
	if err != nil {
		return err
	}
	data, err := res.Text()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportAll renders every requested threshold of the bundle concurrently and
// returns the written paths in threshold order. The first failure cancels
// the remaining renders.
func ExportAll(ctx context.Context, req BundleExport) ([]string, error) {
	defer debug.LogEnterExit("export.ExportAll")()

	if req.Bundle.Empty() {
		return nil, fmt.Errorf("no match found for %s", req.Key.Title())
	}

	ths := req.Bundle.Thresholds()
	if req.Only.Valid() {
		if _, err := req.Bundle.Lookup(req.Only); err != nil {
			return nil, err
		}
		ths = []threshold.Threshold{req.Only}
	}

	format := strings.ToLower(req.Format)
	if format == "" {
		format = "svg"
	}
	dir := req.Dir
	if dir == "" {
		dir = "."
	}

	paths := make([]string, len(ths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, th := range ths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := req.Bundle.Lookup(th)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, SnapshotFileName(req.Key, th, format))
			if IsGraphFormat(format) {
				if err := writeGraphText(path, th, entry, format); err != nil {
					return fmt.Errorf("export %s: %w", th, err)
				}
				paths[i] = path
				return nil
			}
			if err := SaveSnapshot(SnapshotOptions{
				Path:      path,
				Format:    format,
				Title:     req.Key.Title(),
				Preset:    req.Preset,
				Threshold: th,
				Entry:     entry,
			}); err != nil {
				return fmt.Errorf("export %s: %w", th, err)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
