package text

import "testing"

func TestDetectDirection(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Direction
	}{
		{"latin", "hello", DirectionLTR},
		{"empty", "", DirectionLTR},
		{"neutral only", "123 ...", DirectionLTR},
		{"hebrew", "שלום", DirectionRTL},
		{"arabic", "مرحبا", DirectionRTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDirection(tt.text); got != tt.want {
				t.Errorf("DetectDirection(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSplitDirectionsUniform(t *testing.T) {
	runs := SplitDirections("plain ascii row")
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].Start != 0 || runs[0].End != len("plain ascii row") {
		t.Errorf("run covers [%d,%d), want the whole row", runs[0].Start, runs[0].End)
	}
	if runs[0].Direction != DirectionLTR {
		t.Errorf("direction = %v, want LTR", runs[0].Direction)
	}
}

func TestSplitDirectionsMixed(t *testing.T) {
	text := "ab שלום cd"
	runs := SplitDirections(text)

	if len(runs) < 2 {
		t.Fatalf("got %d runs for mixed text, want at least 2", len(runs))
	}

	// Runs must tile the byte range without gaps.
	pos := 0
	sawRTL := false
	for _, r := range runs {
		if r.Start != pos {
			t.Fatalf("run starts at %d, want %d (gap or overlap)", r.Start, pos)
		}
		pos = r.End
		if r.Direction == DirectionRTL {
			sawRTL = true
		}
	}
	if pos != len(text) {
		t.Errorf("runs end at %d, want %d", pos, len(text))
	}
	if !sawRTL {
		t.Error("no RTL run detected in mixed text")
	}
}
