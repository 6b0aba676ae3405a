package render

import (
	"encoding/binary"
	"testing"
)

func TestEncodeInstancesLayout(t *testing.T) {
	glyph := QuadInstance{
		ShadingType: ShadingTextGrayscale,
		ScaleX:      1,
		ScaleY:      2,
		PositionX:   -3,
		PositionY:   7,
		SizeX:       8,
		SizeY:       16,
		TexX:        100,
		TexY:        200,
	}
	fill := QuadInstance{
		ShadingType: ShadingBackground,
		ScaleX:      1,
		ScaleY:      1,
		PositionX:   0,
		PositionY:   0,
		SizeX:       640,
		SizeY:       16,
		Color:       0x11223344,
	}

	buf := EncodeInstances(nil, []QuadInstance{glyph, fill})

	if len(buf) != 2*InstanceStride {
		t.Fatalf("encoded %d bytes, want %d", len(buf), 2*InstanceStride)
	}

	// Textured record: texcoord occupies the final word.
	b := buf[:InstanceStride]
	if got := ShadingType(binary.LittleEndian.Uint16(b[0:2])); got != ShadingTextGrayscale {
		t.Errorf("shading type = %v", got)
	}
	if b[2] != 1 || b[3] != 2 {
		t.Errorf("rendition scale = (%d,%d), want (1,2)", b[2], b[3])
	}
	if got := int16(binary.LittleEndian.Uint16(b[4:6])); got != -3 {
		t.Errorf("position.x = %d, want -3", got)
	}
	if got := binary.LittleEndian.Uint16(b[8:10]); got != 8 {
		t.Errorf("size.x = %d, want 8", got)
	}
	if tx := binary.LittleEndian.Uint16(b[12:14]); tx != 100 {
		t.Errorf("texcoord.x = %d, want 100", tx)
	}
	if ty := binary.LittleEndian.Uint16(b[14:16]); ty != 200 {
		t.Errorf("texcoord.y = %d, want 200", ty)
	}

	// Untextured record: color occupies the final word.
	b = buf[InstanceStride:]
	if got := binary.LittleEndian.Uint32(b[12:16]); got != 0x11223344 {
		t.Errorf("color = %#x, want 0x11223344", got)
	}
}

func TestEncodeInstancesReusesBuffer(t *testing.T) {
	instances := []QuadInstance{inst(ShadingBackground), inst(ShadingCursor)}

	first := EncodeInstances(nil, instances)
	second := EncodeInstances(first, instances[:1])

	if len(second) != InstanceStride {
		t.Fatalf("len = %d, want %d", len(second), InstanceStride)
	}
	if &first[0] != &second[0] {
		t.Error("encode reallocated despite sufficient capacity")
	}
}

func TestShadingTypeStrings(t *testing.T) {
	for s := ShadingBackground; s < shadingTypeCount; s++ {
		if s.String() == "unknown" {
			t.Errorf("shading type %d has no name", s)
		}
	}
}
