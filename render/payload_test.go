package render

import "testing"

func TestSettingsGenerations(t *testing.T) {
	var s Settings

	s2 := s.WithFont(FontSettings{Family: "Cascadia Mono", SizePx: 14, DPI: 96})
	diff := s2.Diff(s)
	if !diff.Font {
		t.Error("font change not detected")
	}
	if diff.Target || diff.Cursor || diff.Misc {
		t.Errorf("unrelated groups flagged: %+v", diff)
	}
	if !diff.Any() {
		t.Error("Any() = false after a change")
	}

	// Snapshots are immutable: the original is untouched.
	if s.Font.Family != "" || s.FontGen != 0 {
		t.Error("WithFont mutated the original snapshot")
	}

	s3 := s2.WithTarget(TargetSettings{Rows: 40, Cols: 120, CellWidth: 8, CellHeight: 16})
	diff = s3.Diff(s2)
	if !diff.Target || diff.Font {
		t.Errorf("diff after target change = %+v", diff)
	}

	if d := s3.Diff(s3); d.Any() {
		t.Errorf("self-diff reports changes: %+v", d)
	}
}

func TestSettingsDiffAccumulates(t *testing.T) {
	var s Settings
	next := s.WithCursor(CursorSettings{Style: CursorBar}).WithMisc(MiscSettings{BackgroundColor: 0xFF})

	diff := next.Diff(s)
	if !diff.Cursor || !diff.Misc {
		t.Errorf("chained changes lost: %+v", diff)
	}
}
