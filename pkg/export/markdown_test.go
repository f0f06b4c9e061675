package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/query"
)

func TestGenerateMarkdown(t *testing.T) {
	b := testBundle(t, 3, 8)
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	md, err := GenerateMarkdown(testKey, b, ReportOptions{Generated: stamp})
	if err != nil {
		t.Fatalf("GenerateMarkdown: %v", err)
	}
	for _, want := range []string{
		"# Acme .* Corp ~ Acme .* Inc",
		stamp.Format(time.RFC1123),
		"| Threshold | Nodes |",
		"| [0.3](#threshold-0-3) | 4 | 2 | 2 | 3 |",
		"[0.8 (default)](#threshold-0-8)",
		"| 0.5 | - | - | - | - | | missing |",
		"## Threshold 0.8",
		"```mermaid",
		"clusterview --query '?base1=Acme&base2=Corp&target1=Acme&target2=Inc'",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if got := strings.Count(md, "```mermaid"); got != 2 {
		t.Errorf("expected 2 diagrams, got %d", got)
	}
}

func TestGenerateMarkdown_EmptyBundle(t *testing.T) {
	if _, err := GenerateMarkdown(testKey, bundle.Bundle{}, ReportOptions{}); err == nil {
		t.Fatal("expected no match error")
	}
}

func TestSaveMarkdownToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", ReportFileName(testKey))
	if err := SaveMarkdownToFile(testKey, testBundle(t, 8), path); err != nil {
		t.Fatalf("SaveMarkdownToFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# ") {
		t.Errorf("unexpected report start: %q", string(data[:20]))
	}
	if filepath.Base(path) != "Acme-Corp__Acme-Inc.md" {
		t.Errorf("ReportFileName = %s", filepath.Base(path))
	}
}

func TestSanitizeMermaid(t *testing.T) {
	if got := sanitizeMermaidID("a b/c"); got != "abc" {
		t.Errorf("sanitizeMermaidID = %q", got)
	}
	if got := sanitizeMermaidID("!!"); got != "node" {
		t.Errorf("sanitizeMermaidID(empty) = %q", got)
	}
	if got := sanitizeMermaidText(`say "hi" [x] | y`); got != "say 'hi' (x) / y" {
		t.Errorf("sanitizeMermaidText = %q", got)
	}
	long := strings.Repeat("é", 50)
	if got := []rune(sanitizeMermaidText(long)); len(got) != 40 {
		t.Errorf("long label not truncated to 40 runes: %d", len(got))
	}
}

func TestShellEscape(t *testing.T) {
	tests := map[string]string{
		"plain":     "plain",
		"?a=b&c=d":  "'?a=b&c=d'",
		"it's":      `'it'\''s'`,
		"":          "''",
		"x/y:z=1.2": "x/y:z=1.2",
	}
	for in, want := range tests {
		if got := shellEscape(in); got != want {
			t.Errorf("shellEscape(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugs(t *testing.T) {
	counts := map[string]int{}
	if s := uniqueSlug(createSlug("Threshold 0.8"), counts); s != "threshold-0-8" {
		t.Errorf("slug = %q", s)
	}
	if s := uniqueSlug(createSlug("Threshold 0.8"), counts); s != "threshold-0-8-1" {
		t.Errorf("second slug = %q", s)
	}
	if s := uniqueSlug("", counts); s != "section" {
		t.Errorf("empty slug = %q", s)
	}
}

func TestBarChart(t *testing.T) {
	for v, want := range map[float64]string{-1: "░░░░", 0.3: "█░░░", 0.5: "██░░", 0.8: "███░", 1: "████", 2: "████"} {
		if got := barChart(v); got != want {
			t.Errorf("barChart(%v) = %q, want %q", v, got, want)
		}
	}
}

func TestReportFileNameSanitises(t *testing.T) {
	got := ReportFileName(query.Key{Base1: "a/b", Base2: "", Target1: "c d", Target2: "e"})
	if got != "a_b-___c_d-e.md" {
		t.Errorf("ReportFileName = %q", got)
	}
}
