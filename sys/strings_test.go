package sys

import (
	"testing"
	"time"
	"unicode/utf8"
)

func TestTruncateCenter(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 10, "abcdefghij"},
		{"abcdefghijkl", 9, "abc...jkl"},
		{"abcdef", 2, "ab"},
		{"ääääääääää", 7, "ää...ää"},
	}
	for _, tt := range tests {
		if got := TruncateCenter(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateCenter(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestTruncateWithPreserve(t *testing.T) {
	got := TruncateWithPreserve("a very long title that keeps going", 25, "", " - Artist")
	if utf8.RuneCountInString(got) > 25 {
		t.Errorf("result too long: %q", got)
	}
	if got[len(got)-len(" - Artist"):] != " - Artist" {
		t.Errorf("suffix lost: %q", got)
	}
	if got := TruncateWithPreserve("fits", 25, "", " - Artist"); got != "fits - Artist" {
		t.Errorf("short input changed: %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "live"},
		{-time.Second, "live"},
		{59 * time.Second, "0:59"},
		{3*time.Minute + 7*time.Second, "3:07"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{1500 * time.Millisecond, "0:02"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
