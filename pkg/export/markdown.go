package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/cluster"
	"github.com/vanderheijden86/clusterview/pkg/query"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// Package-level compiled regex for slug creation (avoids recompilation per call)
var slugNonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeMermaidID ensures an ID is valid for Mermaid diagrams.
// Mermaid node IDs must be alphanumeric with hyphens/underscores.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	result := sb.String()
	if result == "" {
		return "node"
	}
	return result
}

// sanitizeMermaidText prepares text for use in Mermaid node labels.
// Removes/escapes characters that break Mermaid syntax.
func sanitizeMermaidText(text string) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"<", "&lt;",
		">", "&gt;",
		"|", "/",
		"`", "'",
		"\n", " ",
		"\r", "",
	)
	result := replacer.Replace(text)

	// Remove any remaining control characters
	result = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, result)

	result = strings.TrimSpace(result)

	// Truncate if too long (UTF-8 safe using runes)
	runes := []rune(result)
	if len(runes) > 40 {
		result = string(runes[:37]) + "..."
	}

	return result
}

// ReportOptions controls the markdown report.
type ReportOptions struct {
	Generated   time.Time // Stamp in the header (zero = now)
	MaxClusters int       // Clusters drawn per diagram (0 = 12)
}

// ReportFileName names the markdown report of key.
func ReportFileName(key query.Key) string {
	return fmt.Sprintf("%s-%s__%s-%s.md",
		sanitize(key.Base1), sanitize(key.Base2), sanitize(key.Target1), sanitize(key.Target2))
}

// GenerateMarkdown creates a report of every threshold in b: a summary
// table followed by one Mermaid diagram per threshold.
func GenerateMarkdown(key query.Key, b bundle.Bundle, opts ReportOptions) (string, error) {
	if b.Empty() {
		return "", fmt.Errorf("no match found for %s", key.Title())
	}
	generated := opts.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	maxClusters := opts.MaxClusters
	if maxClusters <= 0 {
		maxClusters = 12
	}

	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdownCell(key.Title())))
	sb.WriteString(fmt.Sprintf("*Generated: %s*\n\n", generated.Format(time.RFC1123)))

	type section struct {
		th    threshold.Threshold
		g     cluster.Graph
		comps []cluster.Component
		stats cluster.Stats
		opts  cluster.Options
		slug  string
	}
	slugCounts := make(map[string]int)
	var sections []section

	// Summary Statistics
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Threshold | Nodes | Edges | Clusters | Largest | Spread | Layout |\n")
	sb.WriteString("|-----------|-------|-------|----------|---------|--------|--------|\n")
	for _, th := range threshold.All() {
		e, err := b.Lookup(th)
		if err != nil {
			sb.WriteString(fmt.Sprintf("| %s | - | - | - | - | | missing |\n", th))
			continue
		}
		g, err := cluster.Parse(e.Graph)
		if err != nil {
			return "", fmt.Errorf("threshold %s: %w", th, err)
		}
		s := section{
			th:    th,
			g:     g,
			comps: cluster.Components(g),
			stats: cluster.Analyze(g),
			opts:  cluster.ParseOptions(e.Options),
			slug:  uniqueSlug(createSlug("threshold "+th.String()), slugCounts),
		}
		sections = append(sections, s)

		// Spread is the share of nodes in the largest cluster.
		spread := 0.0
		if s.stats.Nodes > 0 {
			spread = float64(s.stats.Largest) / float64(s.stats.Nodes)
		}
		marker := ""
		if th == threshold.Default {
			marker = " (default)"
		}
		sb.WriteString(fmt.Sprintf("| [%s%s](#%s) | %d | %d | %d | %d | %s | %s |\n",
			th, marker, s.slug, s.stats.Nodes, s.stats.Edges, s.stats.Clusters, s.stats.Largest,
			barChart(spread), s.opts))
	}
	sb.WriteString("\n")

	// Quick Actions Section
	sb.WriteString(generateQuickActions(key))
	sb.WriteString("---\n\n")

	for _, s := range sections {
		sb.WriteString(fmt.Sprintf("<a id=\"%s\"></a>\n\n", s.slug))
		sb.WriteString(fmt.Sprintf("## Threshold %s\n\n", s.th))
		sb.WriteString(fmt.Sprintf("%d nodes in %d clusters; the largest holds %d.",
			s.stats.Nodes, s.stats.Clusters, s.stats.Largest))
		if s.stats.Dangling > 0 {
			sb.WriteString(fmt.Sprintf(" %d edges point at undeclared nodes and are left out.", s.stats.Dangling))
		}
		sb.WriteString("\n\n")

		if len(s.comps) == 0 {
			sb.WriteString("*Empty graph*\n\n---\n\n")
			continue
		}

		sb.WriteString("```mermaid\n")
		sb.WriteString(GenerateMermaidGraph(s.g, s.comps, MermaidConfig{
			Direction:   mermaidDirection(s.opts),
			MaxClusters: maxClusters,
		}))
		sb.WriteString("```\n\n")
		sb.WriteString("---\n\n")
	}

	return sb.String(), nil
}

// SaveMarkdownToFile writes the report of b to filename.
func SaveMarkdownToFile(key query.Key, b bundle.Bundle, filename string) error {
	content, err := GenerateMarkdown(key, b, ReportOptions{})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	return os.WriteFile(filename, []byte(content), 0o644)
}

// generateQuickActions lists the commands that reopen this query.
func generateQuickActions(key query.Key) string {
	var sb strings.Builder
	q := shellEscape("?" + key.Encode())
	sb.WriteString("## Quick Actions\n\n")
	sb.WriteString("```bash\n")
	sb.WriteString("# Browse interactively\n")
	sb.WriteString(fmt.Sprintf("clusterview --query %s\n\n", q))
	sb.WriteString("# Render every threshold as SVG\n")
	sb.WriteString(fmt.Sprintf("clusterview export --query %s --out snapshots\n", q))
	sb.WriteString("```\n\n")
	return sb.String()
}

func uniqueSlug(base string, counts map[string]int) string {
	if base == "" {
		base = "section"
	}
	if count, ok := counts[base]; ok {
		count++
		counts[base] = count
		return fmt.Sprintf("%s-%d", base, count)
	}
	counts[base] = 0
	return base
}

// createSlug creates a URL-friendly slug from heading text.
func createSlug(text string) string {
	slug := strings.ToLower(text)
	slug = slugNonAlphanumericRegex.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	return slug
}

func escapeMarkdownCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "|", "\\|")
}

// shellEscape quotes s for a POSIX shell when needed.
func shellEscape(s string) string {
	if isShellSafe(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isShellSafe(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isShellSafeChar(r) {
			return false
		}
	}
	return true
}

func isShellSafeChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r == '-' || r == '_' || r == '.' || r == '/' || r == ':' || r == '='
}

// barChart creates a mini ASCII bar chart for a 0-1 value
func barChart(value float64) string {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	filled := int(value * 4)
	switch filled {
	case 0:
		return "░░░░"
	case 1:
		return "█░░░"
	case 2:
		return "██░░"
	case 3:
		return "███░"
	default:
		return "████"
	}
}
