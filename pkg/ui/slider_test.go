package ui_test

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/clusterview/pkg/threshold"
	"github.com/vanderheijden86/clusterview/pkg/ui"
)

func TestSlider_DefaultsToDefaultThreshold(t *testing.T) {
	s := ui.NewSliderModel(ui.TestTheme())
	if s.Value() != threshold.Default {
		t.Fatalf("Value() = %s, want %s", s.Value(), threshold.Default)
	}
	for _, th := range threshold.All() {
		if !s.Available(th) {
			t.Errorf("%s should be available before a bundle is known", th)
		}
	}
}

func TestSlider_SetValueIgnoresInvalid(t *testing.T) {
	s := ui.NewSliderModel(ui.TestTheme())
	s.SetValue(3)
	s.SetValue(0)
	s.SetValue(10)
	if s.Value() != 3 {
		t.Fatalf("Value() = %s, want 0.3", s.Value())
	}
}

func TestSlider_Availability(t *testing.T) {
	s := ui.NewSliderModel(ui.TestTheme())
	s.SetAvailable([]threshold.Threshold{2, 8})
	if !s.Available(2) || !s.Available(8) || s.Available(5) {
		t.Fatal("availability does not match SetAvailable")
	}
	s.SetAvailable(nil)
	if !s.Available(5) {
		t.Fatal("nil availability should mark every stop")
	}
}

func TestSlider_ViewShowsCaptionValueAndStops(t *testing.T) {
	s := ui.NewSliderModel(ui.TestTheme())
	s.SetValue(4)
	view := s.View(80)

	lines := strings.Split(view, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), view)
	}
	if !strings.Contains(lines[0], ui.SliderCaption) {
		t.Errorf("caption line = %q", lines[0])
	}
	if strings.TrimSpace(lines[1]) != "0.4" {
		t.Errorf("value label line = %q", lines[1])
	}
	if strings.Count(lines[2], "●") != 1 {
		t.Errorf("track should have exactly one thumb: %q", lines[2])
	}
	for _, th := range threshold.All() {
		if !strings.Contains(lines[3], th.String()) {
			t.Errorf("stop label %s missing from %q", th, lines[3])
		}
	}
}

func TestSlider_ThumbMovesWithValue(t *testing.T) {
	s := ui.NewSliderModel(ui.TestTheme())
	thumbAt := func(v threshold.Threshold) int {
		s.SetValue(v)
		track := strings.Split(s.View(60), "\n")[2]
		return strings.Index(track, "●")
	}
	prev := -1
	for _, th := range threshold.All() {
		pos := thumbAt(th)
		if pos <= prev {
			t.Fatalf("thumb for %s at %d, not right of %d", th, pos, prev)
		}
		prev = pos
	}
}

func TestSlider_UnavailableStopsAreDimmed(t *testing.T) {
	s := ui.NewSliderModel(ui.TestTheme())
	s.SetAvailable([]threshold.Threshold{8})
	track := strings.Split(s.View(80), "\n")[2]
	if strings.Count(track, "·") != threshold.Count-1 {
		t.Errorf("expected %d dimmed stops in %q", threshold.Count-1, track)
	}
}

func TestSlider_NarrowFallsBackToStepper(t *testing.T) {
	s := ui.NewSliderModel(ui.TestTheme())
	view := s.View(20)
	if !strings.Contains(view, "◀ 0.8 ▶") {
		t.Fatalf("narrow view = %q", view)
	}
}
