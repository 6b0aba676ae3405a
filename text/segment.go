package text

import (
	"golang.org/x/text/unicode/bidi"
)

// DetectDirection resolves the base writing direction of a text run with
// the Unicode bidi algorithm. Neutral-only text resolves to LTR.
func DetectDirection(text string) Direction {
	if text == "" {
		return DirectionLTR
	}

	p := bidi.Paragraph{}
	_, _ = p.SetString(text, bidi.DefaultDirection(bidi.Neutral))

	ordering, err := p.Order()
	if err != nil || ordering.NumRuns() == 0 {
		return DirectionLTR
	}
	// bidi.Run.Direction has a pointer receiver, so the run needs a home
	// before the call.
	r0 := ordering.Run(0)
	if r0.Direction() == bidi.RightToLeft {
		return DirectionRTL
	}
	return DirectionLTR
}

// DirectionRuns splits text into contiguous byte ranges of uniform
// direction, in visual submission order. Rows mixing scripts are shaped
// per run so each run carries one direction into the shaper.
type DirectionRun struct {
	Start     int
	End       int
	Direction Direction
}

// SplitDirections computes the direction runs of a row.
func SplitDirections(text string) []DirectionRun {
	if text == "" {
		return nil
	}

	p := bidi.Paragraph{}
	_, _ = p.SetString(text, bidi.DefaultDirection(bidi.Neutral))

	ordering, err := p.Order()
	if err != nil {
		return []DirectionRun{{Start: 0, End: len(text), Direction: DirectionLTR}}
	}

	runes := []rune(text)
	byteOffsets := make([]int, len(runes)+1)
	off := 0
	for i, r := range runes {
		byteOffsets[i] = off
		off += len(string(r))
	}
	byteOffsets[len(runes)] = len(text)

	runs := make([]DirectionRun, 0, ordering.NumRuns())
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		startRune, endRune := run.Pos() // rune indices, end inclusive

		dir := DirectionLTR
		if run.Direction() == bidi.RightToLeft {
			dir = DirectionRTL
		}
		runs = append(runs, DirectionRun{
			Start:     byteOffsets[startRune],
			End:       byteOffsets[endRune+1],
			Direction: dir,
		})
	}
	return runs
}
