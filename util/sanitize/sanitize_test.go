package sanitize

import "testing"

func TestForFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain title", "Night Shift", "night-shift"},
		{"punctuation", "Night Shift: Part II!", "night-shift-part-ii"},
		{"underscores and dots", "the_last.reel", "the-last-reel"},
		{"collapse dashes", "a  --  b", "a-b"},
		{"non ascii dropped", "Amélie", "amlie"},
		{"only symbols", "!!!", ""},
		{"truncated", "a very long movie title that goes on and on and on forever", "a-very-long-movie-title-that-goes-on-and-on-and-on"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForFilename(tt.input); got != tt.want {
				t.Errorf("ForFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
