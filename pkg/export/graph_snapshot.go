// Package export renders cluster graphs to static SVG or PNG snapshots.
package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/cluster"
	"github.com/vanderheijden86/clusterview/pkg/metrics"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// SnapshotOptions controls snapshot export behaviour.
type SnapshotOptions struct {
	Path      string              // Output path; format inferred from extension when Format empty
	Format    string              // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title     string              // Rendered in the summary block, usually the query title
	Preset    string              // Layout preset: "compact" (default) or "roomy"
	Threshold threshold.Threshold // Threshold the entry belongs to
	Entry     bundle.Entry        // Graph and options to render
}

// SaveSnapshot renders one (graph, options) pair with a summary block.
func SaveSnapshot(opts SnapshotOptions) error {
	defer metrics.Timer(metrics.SnapshotExport)()

	format, path, err := resolveFormat(opts.Format, opts.Path)
	if err != nil {
		return err
	}
	opts.Path = path

	g, err := cluster.Parse(opts.Entry.Graph)
	if err != nil {
		return fmt.Errorf("threshold %s: %w", opts.Threshold, err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildLayout(opts, g, cluster.ParseOptions(opts.Entry.Options))

	switch format {
	case "svg":
		return renderSVG(opts, layout)
	case "png":
		return renderPNG(opts, layout)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

func resolveFormat(format, path string) (string, string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if path != "" && filepath.Ext(path) == "" {
				path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return "", "", fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if path == "" {
		return "", "", fmt.Errorf("output path is required")
	}
	return format, path, nil
}

// --- layout computation ----------------------------------------------------

type layoutNode struct {
	ID     cluster.Ident
	Label  string
	Group  cluster.Ident
	Column int
	X, Y   float64
	NodeW  float64
	NodeH  float64
}

type layoutEdge struct {
	From  cluster.Ident
	To    cluster.Ident
	Label string
}

type layoutResult struct {
	Nodes   []layoutNode
	Edges   []layoutEdge
	Groups  []cluster.Ident
	Width   int
	Height  int
	Header  float64
	Summary summaryInfo
}

type summaryInfo struct {
	Title     string
	Threshold string
	Stats     cluster.Stats
	Options   string
}

// buildLayout places each cluster in its own column, largest first, with
// members stacked in document order.
func buildLayout(opts SnapshotOptions, g cluster.Graph, o cluster.Options) layoutResult {
	const (
		nodeWCompact  = 170.0
		nodeHCompact  = 40.0
		nodeWRoomy    = 200.0
		nodeHRoomy    = 52.0
		colGapCompact = 70.0
		rowGapCompact = 22.0
		colGapRoomy   = 100.0
		rowGapRoomy   = 34.0
		padding       = 36.0
		headerHeight  = 120.0
	)

	nodeW, nodeH := nodeWCompact, nodeHCompact
	colGap, rowGap := colGapCompact, rowGapCompact
	if strings.EqualFold(opts.Preset, "roomy") {
		nodeW, nodeH = nodeWRoomy, nodeHRoomy
		colGap, rowGap = colGapRoomy, rowGapRoomy
	}

	comps := cluster.Components(g)
	var nodes []layoutNode
	var edges []layoutEdge
	maxRows := 0
	for col, c := range comps {
		if len(c.Nodes) > maxRows {
			maxRows = len(c.Nodes)
		}
		for row, n := range c.Nodes {
			nodes = append(nodes, layoutNode{
				ID:     n.ID,
				Label:  truncate(n.Name(), 24),
				Group:  n.Group,
				Column: col,
				X:      padding + float64(col)*(nodeW+colGap),
				Y:      padding + headerHeight + float64(row)*(nodeH+rowGap),
				NodeW:  nodeW,
				NodeH:  nodeH,
			})
		}
		for _, e := range c.Edges {
			edges = append(edges, layoutEdge{From: e.From, To: e.To, Label: e.Label})
		}
	}

	cols := len(comps)
	if cols == 0 {
		cols = 1
	}
	width := int(padding*2 + float64(cols)*(nodeW+colGap))
	if width < 640 {
		width = 640
	}
	height := int(padding*2 + headerHeight + float64(maxRows)*(nodeH+rowGap))
	if height < 360 {
		height = 360
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Cluster Snapshot"
	}
	th := "n/a"
	if opts.Threshold.Valid() {
		th = opts.Threshold.String()
	}

	return layoutResult{
		Nodes:  nodes,
		Edges:  edges,
		Groups: groupsOf(g),
		Width:  width,
		Height: height,
		Header: headerHeight,
		Summary: summaryInfo{
			Title:     title,
			Threshold: th,
			Stats:     cluster.Analyze(g),
			Options:   o.String(),
		},
	}
}

func groupsOf(g cluster.Graph) []cluster.Ident {
	seen := make(map[cluster.Ident]bool)
	var groups []cluster.Ident
	for _, n := range g.Nodes {
		if !seen[n.Group] {
			seen[n.Group] = true
			groups = append(groups, n.Group)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// --- rendering -------------------------------------------------------------

var (
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG = color.RGBA{0xee, 0xee, 0xee, 0xff}

	groupPalette = []color.RGBA{
		{0xc8, 0xe6, 0xc9, 0xff},
		{0xbb, 0xde, 0xfb, 0xff},
		{0xff, 0xf3, 0xe0, 0xff},
		{0xf8, 0xbb, 0xd0, 0xff},
		{0xd1, 0xc4, 0xe9, 0xff},
		{0xff, 0xcd, 0xd2, 0xff},
		{0xcf, 0xd8, 0xdc, 0xff},
	}
)

func groupColor(layout layoutResult, g cluster.Ident) color.RGBA {
	for i, candidate := range layout.Groups {
		if candidate == g {
			return groupPalette[i%len(groupPalette)]
		}
	}
	return groupPalette[0]
}

// edgeRoute returns the bracket path linking two stacked nodes along the
// right side of their column.
func edgeRoute(from, to layoutNode, colGap float64) (xs, ys []float64) {
	x := from.X + from.NodeW
	y1 := from.Y + from.NodeH/2
	y2 := to.Y + to.NodeH/2
	bend := x + colGap/3
	if from.ID == to.ID {
		return []float64{x, bend, bend, x}, []float64{y1 - 6, y1 - 6, y1 + 6, y1 + 6}
	}
	return []float64{x, bend, bend, x}, []float64{y1, y1, y2, y2}
}

func positions(layout layoutResult) map[cluster.Ident]layoutNode {
	nodePos := make(map[cluster.Ident]layoutNode, len(layout.Nodes))
	for _, n := range layout.Nodes {
		nodePos[n.ID] = n
	}
	return nodePos
}

func renderPNG(opts SnapshotOptions, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)

	drawSummaryBlock(dc, layout)
	drawLegend(dc, layout)

	nodePos := positions(layout)
	dc.SetColor(colorEdge)
	dc.SetLineWidth(2)
	for _, e := range layout.Edges {
		xs, ys := edgeRoute(nodePos[e.From], nodePos[e.To], 60)
		dc.MoveTo(xs[0], ys[0])
		for i := 1; i < len(xs); i++ {
			dc.LineTo(xs[i], ys[i])
		}
		dc.Stroke()
	}

	for _, n := range layout.Nodes {
		drawNode(dc, layout, n)
	}

	if len(layout.Nodes) == 0 {
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored("empty graph", 36, layout.Header+56, 0, 0.5)
	}

	return dc.SavePNG(opts.Path)
}

func renderSVG(opts SnapshotOptions, layout layoutResult) error {
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderSVGToWriter(file, layout)
}

func renderSVGToWriter(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawSummaryBlockSVG(canvas, layout)
	drawLegendSVG(canvas, layout)

	nodePos := positions(layout)
	for _, e := range layout.Edges {
		xs, ys := edgeRoute(nodePos[e.From], nodePos[e.To], 60)
		ix := make([]int, len(xs))
		iy := make([]int, len(ys))
		for i := range xs {
			ix[i], iy[i] = int(xs[i]), int(ys[i])
		}
		canvas.Polyline(ix, iy, fmt.Sprintf("fill:none;stroke:%s;stroke-width:2", css(colorEdge)))
		if e.Label != "" {
			canvas.Text(ix[1]+4, (iy[1]+iy[2])/2+4, truncate(e.Label, 8),
				fmt.Sprintf("fill:%s;font-size:10px;font-family:monospace", css(colorSubtle)))
		}
	}

	for _, n := range layout.Nodes {
		x := int(n.X)
		y := int(n.Y)
		canvas.Roundrect(x, y, int(n.NodeW), int(n.NodeH), 8, 8,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(groupColor(layout, n.Group)), css(colorStroke)))
		canvas.Text(x+10, y+int(n.NodeH/2)+4, n.Label, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorText)))
	}

	if len(layout.Nodes) == 0 {
		canvas.Text(36, int(layout.Header)+56, "empty graph", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	}

	canvas.End()
	return nil
}

func drawNode(dc *gg.Context, layout layoutResult, n layoutNode) {
	dc.SetColor(groupColor(layout, n.Group))
	dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 8)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1.2)
	dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 8)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored(n.Label, n.X+10, n.Y+n.NodeH/2, 0, 0.5)
}

func summaryLines(layout layoutResult) []string {
	st := layout.Summary.Stats
	return []string{
		fmt.Sprintf("distance threshold: %s", layout.Summary.Threshold),
		fmt.Sprintf("nodes: %d  edges: %d  clusters: %d", st.Nodes, st.Edges, st.Clusters),
		layout.Summary.Options,
	}
}

func drawSummaryBlock(dc *gg.Context, layout layoutResult) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Summary.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	for i, line := range summaryLines(layout) {
		dc.DrawStringAnchored(line, 32, 64+float64(i)*20, 0, 0.5)
	}
}

// legendRows caps the legend so it fits in the header.
const legendRows = 4

func drawLegend(dc *gg.Context, layout layoutResult) {
	if len(layout.Groups) == 0 {
		return
	}
	boxW, boxH := 180.0, 96.0
	x := float64(layout.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Groups", x+12, y+18, 0, 0.5)
	for i, g := range layout.Groups {
		if i == legendRows {
			break
		}
		rowY := y + 36 + float64(i)*16
		dc.SetColor(groupColor(layout, g))
		dc.DrawRoundedRectangle(x+12, rowY-8, 14, 14, 3)
		dc.Fill()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(groupName(g), x+32, rowY, 0, 0.5)
	}
}

func drawSummaryBlockSVG(canvas *svg.SVG, layout layoutResult) {
	canvas.Text(32, 44, layout.Summary.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, line := range summaryLines(layout) {
		canvas.Text(32, 64+i*20, line, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	}
}

func drawLegendSVG(canvas *svg.SVG, layout layoutResult) {
	if len(layout.Groups) == 0 {
		return
	}
	boxW, boxH := 180, 96
	x := layout.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(x+12, y+18, "Groups", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, g := range layout.Groups {
		if i == legendRows {
			break
		}
		rowY := y + 36 + i*16
		canvas.Roundrect(x+12, rowY-8, 14, 14, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(groupColor(layout, g)), css(colorStroke)))
		canvas.Text(x+32, rowY+4, groupName(g), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
}

// --- helpers ---------------------------------------------------------------

func groupName(g cluster.Ident) string {
	if g == "" {
		return "(none)"
	}
	return truncate(string(g), 18)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
