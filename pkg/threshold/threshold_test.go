package threshold

import (
	"errors"
	"testing"
)

func TestAllIsAscendingNineStops(t *testing.T) {
	all := All()
	if len(all) != Count || Count != 9 {
		t.Fatalf("expected 9 stops, got %d (Count=%d)", len(all), Count)
	}
	for i, th := range all {
		if th.Index() != i {
			t.Errorf("stop %v has index %d, want %d", th, th.Index(), i)
		}
	}
	if all[0] != Min || all[len(all)-1] != Max {
		t.Errorf("unexpected bounds %v..%v", all[0], all[len(all)-1])
	}
}

func TestStringIsPlainDecimal(t *testing.T) {
	tests := []struct {
		in   Threshold
		want string
	}{
		{1, "0.1"},
		{3, "0.3"},
		{Default, "0.8"},
		{9, "0.9"},
		{0, "Threshold(0)"},
		{10, "Threshold(10)"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Threshold(%d).String() = %q, want %q", int(tt.in), got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Threshold
		wantErr bool
	}{
		{"0.1", 1, false},
		{"0.8", 8, false},
		{".3", 3, false},
		{" 0.9 ", 9, false},
		{"0.30000000000000004", 3, false},
		{"0.7999999999", 8, false},
		{"0.0", 0, true},
		{"1.0", 0, true},
		{"0.35", 0, true},
		{"3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) = %v, want error", tt.in, got)
			} else if !errors.Is(err, ErrOutOfRange) {
				t.Errorf("Parse(%q) error %v is not ErrOutOfRange", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNextPrevClamp(t *testing.T) {
	if Max.Next() != Max {
		t.Errorf("Max.Next() = %v", Max.Next())
	}
	if Min.Prev() != Min {
		t.Errorf("Min.Prev() = %v", Min.Prev())
	}
	if Default.Next() != 9 || Default.Prev() != 7 {
		t.Errorf("Default neighbours = %v/%v", Default.Prev(), Default.Next())
	}
	if Threshold(0).Next() != Min {
		t.Errorf("out-of-range Next should clamp to Min")
	}
}

func TestFromFloatRoundTrip(t *testing.T) {
	for _, th := range All() {
		got, err := FromFloat(th.Float())
		if err != nil || got != th {
			t.Errorf("FromFloat(%v) = %v, %v", th.Float(), got, err)
		}
	}
}
