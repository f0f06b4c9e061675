package export

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// lineReader hands out one line per Read so each accessible prompt, which
// wraps the reader in its own scanner, sees only its own answer.
type lineReader struct {
	lines []string
}

func (r *lineReader) Read(p []byte) (int, error) {
	if len(r.lines) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.lines[0]+"\n")
	r.lines = r.lines[1:]
	return n, nil
}

func answerForms(t *testing.T, lines ...string) *bytes.Buffer {
	t.Helper()
	out := &bytes.Buffer{}
	formInput, formOutput = &lineReader{lines: lines}, out
	t.Cleanup(func() { formInput, formOutput = nil, nil })
	return out
}

func TestPromptExport_KeepsGivenChoices(t *testing.T) {
	answerForms(t, "out", "", "")

	got, err := PromptExport(ExportChoice{Dir: "out", Format: "Mermaid", Threshold: "0.30"})
	if err != nil {
		t.Fatalf("PromptExport: %v", err)
	}
	want := ExportChoice{Dir: "out", Format: "mermaid", Threshold: "0.3"}
	if got != want {
		t.Fatalf("PromptExport = %+v, want %+v", got, want)
	}
}

func TestPromptExport_AnswersReplaceDefaults(t *testing.T) {
	// The empty directory is rejected and asked again.
	out := answerForms(t, "", "shots", "3", "9")

	got, err := PromptExport(ExportChoice{})
	if err != nil {
		t.Fatalf("PromptExport: %v", err)
	}
	want := ExportChoice{Dir: "shots", Format: "dot", Threshold: "0.8"}
	if got != want {
		t.Fatalf("PromptExport = %+v, want %+v", got, want)
	}
	for _, label := range []string{"Markdown report", "Mermaid", "All thresholds", "directory is required"} {
		if !strings.Contains(out.String(), label) {
			t.Errorf("form output missing %q", label)
		}
	}
}

func TestPromptExport_RejectsUnknownChoices(t *testing.T) {
	answerForms(t)

	if _, err := PromptExport(ExportChoice{Dir: "out", Format: "gif"}); err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("gif: err = %v", err)
	}
	if _, err := PromptExport(ExportChoice{Dir: "out", Threshold: "0.35"}); !errors.Is(err, threshold.ErrOutOfRange) {
		t.Errorf("0.35: err = %v, want ErrOutOfRange", err)
	}
}

func TestNormalizeChoice(t *testing.T) {
	tests := []struct {
		in   ExportChoice
		want ExportChoice
	}{
		{ExportChoice{}, ExportChoice{Format: "svg", Threshold: "all"}},
		{ExportChoice{Format: " PNG ", Threshold: "ALL"}, ExportChoice{Format: "png", Threshold: "all"}},
		{ExportChoice{Format: "markdown", Threshold: "0.80"}, ExportChoice{Format: "md", Threshold: "0.8"}},
		{ExportChoice{Format: "json", Threshold: ".1"}, ExportChoice{Format: "json", Threshold: "0.1"}},
	}
	for _, tt := range tests {
		got, err := normalizeChoice(tt.in)
		if err != nil {
			t.Errorf("normalizeChoice(%+v): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("normalizeChoice(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
