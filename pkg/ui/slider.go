package ui

import (
	"strings"

	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// SliderCaption labels the threshold control.
const SliderCaption = "Distance Threshold (Clustering)"

// minTrackWidth fits one "0.x" label per stop with a space between them.
const minTrackWidth = threshold.Count*4 - 1

// SliderModel draws the nine-stop threshold control. It only renders: the
// owner decides which value is legal and calls SetValue.
type SliderModel struct {
	value     threshold.Threshold
	available map[threshold.Threshold]bool
	theme     Theme
}

// NewSliderModel returns a slider at the default stop.
func NewSliderModel(theme Theme) SliderModel {
	return SliderModel{value: threshold.Default, theme: theme}
}

// SetValue moves the thumb. Invalid values are ignored.
func (s *SliderModel) SetValue(t threshold.Threshold) {
	if t.Valid() {
		s.value = t
	}
}

// Value returns the stop under the thumb.
func (s SliderModel) Value() threshold.Threshold {
	return s.value
}

// SetAvailable marks which stops the loaded bundle has. A nil slice marks
// every stop available.
func (s *SliderModel) SetAvailable(ths []threshold.Threshold) {
	if ths == nil {
		s.available = nil
		return
	}
	s.available = make(map[threshold.Threshold]bool, len(ths))
	for _, t := range ths {
		s.available[t] = true
	}
}

// Available reports whether the bundle has an entry at t.
func (s SliderModel) Available(t threshold.Threshold) bool {
	if s.available == nil {
		return t.Valid()
	}
	return s.available[t]
}

// stopColumn maps a stop onto a track column.
func stopColumn(t threshold.Threshold, trackW int) int {
	return t.Index() * (trackW - 1) / (threshold.Count - 1)
}

// View renders caption, value label, track and stop labels.
func (s SliderModel) View(width int) string {
	t := s.theme
	caption := t.Renderer.NewStyle().Foreground(t.Subtext).Bold(true).Render(SliderCaption)

	trackW := width - 2
	if trackW < minTrackWidth {
		// Too narrow for a track: show a stepper instead.
		return caption + "\n" +
			t.MutedText.Render("◀ ") + t.KeyHint.Render(s.value.String()) + t.MutedText.Render(" ▶")
	}
	if trackW > 90 {
		trackW = 90
	}

	thumb := stopColumn(s.value, trackW)

	valueRow := []rune(strings.Repeat(" ", trackW))
	placeAt(valueRow, thumb-1, s.value.String())

	var track strings.Builder
	stops := make(map[int]threshold.Threshold, threshold.Count)
	for _, th := range threshold.All() {
		stops[stopColumn(th, trackW)] = th
	}
	lineStyle := t.Renderer.NewStyle().Foreground(t.Primary)
	dimStyle := t.MutedText
	for col := 0; col < trackW; col++ {
		th, isStop := stops[col]
		switch {
		case col == thumb:
			track.WriteString(t.KeyHint.Render("●"))
		case isStop && s.Available(th):
			track.WriteString(lineStyle.Render("┼"))
		case isStop:
			track.WriteString(dimStyle.Render("·"))
		case col < thumb:
			track.WriteString(lineStyle.Render("━"))
		default:
			track.WriteString(dimStyle.Render("─"))
		}
	}

	labelRow := []rune(strings.Repeat(" ", trackW))
	for _, th := range threshold.All() {
		placeAt(labelRow, stopColumn(th, trackW)-1, th.String())
	}

	lines := []string{
		caption,
		" " + t.KeyHint.Render(strings.TrimRight(string(valueRow), " ")),
		" " + track.String(),
		" " + t.MutedText.Render(strings.TrimRight(string(labelRow), " ")),
	}
	return strings.Join(lines, "\n")
}

// placeAt copies s into row starting at col, shifted to stay inside row.
func placeAt(row []rune, col int, s string) {
	r := []rune(s)
	col = clamp(col, 0, len(row)-len(r))
	if col < 0 {
		return
	}
	copy(row[col:], r)
}
