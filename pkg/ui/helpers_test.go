package ui

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 8, "this is…"},
		{"日本語テキスト", 6, "日本…"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("日本", 6); got != "日本  " {
		t.Errorf("wide runes should count two cells: %q", got)
	}
	if got := padRight("toolong", 3); got != "toolong" {
		t.Errorf("padRight should not cut: %q", got)
	}
}

func TestClamp(t *testing.T) {
	if clamp(-1, 0, 5) != 0 || clamp(9, 0, 5) != 5 || clamp(3, 0, 5) != 3 {
		t.Fatal("clamp out of range")
	}
}

func TestDigitThreshold(t *testing.T) {
	for d := '1'; d <= '9'; d++ {
		got, ok := digitThreshold(string(d))
		if !ok || got != threshold.Threshold(d-'0') {
			t.Errorf("digitThreshold(%q) = %v, %v", d, got, ok)
		}
	}
	for _, s := range []string{"0", "a", "10", ""} {
		if _, ok := digitThreshold(s); ok {
			t.Errorf("digitThreshold(%q) should fail", s)
		}
	}
}

func TestHelpMarkdownListsEveryBinding(t *testing.T) {
	keys := DefaultKeyMap()
	md := helpMarkdown(keys)
	for _, row := range keys.FullHelp() {
		for _, b := range row {
			if !strings.Contains(md, b.Help().Desc) {
				t.Errorf("help missing %q", b.Help().Desc)
			}
		}
	}
}

func TestRenderTitle(t *testing.T) {
	got := RenderTitle(TestTheme(), "A", "B", "C", "D")
	if !strings.Contains(got, "A") || !strings.Contains(got, " ~ ") || !strings.Contains(got, " .* ") {
		t.Errorf("RenderTitle = %q", got)
	}
}
