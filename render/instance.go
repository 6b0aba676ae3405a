// Package render implements the per-frame rendering pipeline: quad
// instance batching, fence-based CPU/GPU synchronization, the frame
// scheduler that drives triple-buffered presentation, and the optional
// compute dispatch path.
package render

import "encoding/binary"

// ShadingType selects the pixel shader behavior for a quad instance.
// Instances sharing a shading type and submitted contiguously render in
// one draw call.
type ShadingType uint16

const (
	ShadingBackground ShadingType = iota
	ShadingTextGrayscale
	ShadingTextClearType
	ShadingTextBuiltinGlyph
	ShadingTextPassthrough
	ShadingDottedLine
	ShadingDashedLine
	ShadingCurlyLine
	ShadingSolidLine
	ShadingCursor
	ShadingFilledRect

	shadingTypeCount
)

// String returns the shading type name for diagnostics.
func (s ShadingType) String() string {
	switch s {
	case ShadingBackground:
		return "background"
	case ShadingTextGrayscale:
		return "text-grayscale"
	case ShadingTextClearType:
		return "text-cleartype"
	case ShadingTextBuiltinGlyph:
		return "text-builtin-glyph"
	case ShadingTextPassthrough:
		return "text-passthrough"
	case ShadingDottedLine:
		return "dotted-line"
	case ShadingDashedLine:
		return "dashed-line"
	case ShadingCurlyLine:
		return "curly-line"
	case ShadingSolidLine:
		return "solid-line"
	case ShadingCursor:
		return "cursor"
	case ShadingFilledRect:
		return "filled-rect"
	default:
		return "unknown"
	}
}

// QuadInstance is one GPU vertex-stream record: a positioned, sized,
// textured, colored quad. The encoded layout is exactly 16 bytes with
// 4-byte alignment; InstanceStride and EncodeInstances depend on it.
// The final 4 bytes are a union: textured shading types carry the atlas
// texcoord there, untextured ones carry the RGBA color. Instances are
// produced fresh every frame, never mutated after creation, and owned
// exclusively by the per-frame instance buffer.
type QuadInstance struct {
	ShadingType ShadingType
	ScaleX      uint8 // rendition scale (double-width/height modes)
	ScaleY      uint8
	PositionX   int16 // cell-space position
	PositionY   int16
	SizeX       uint16
	SizeY       uint16
	TexX        uint16 // top-left in the glyph atlas
	TexY        uint16
	Color       uint32 // RGBA
}

// InstanceStride is the byte size of one encoded QuadInstance.
const InstanceStride = 16

// BatchedDrawCall describes one contiguous run inside the instance array
// sharing a pipeline state. Created by the Batcher, consumed once per
// frame by the draw loop, then discarded.
type BatchedDrawCall struct {
	InstanceOffset uint32
	InstanceCount  uint32
	ShadingType    ShadingType
}

// EncodeInstances serializes instances into dst as little-endian
// 16-byte records, matching the GPU-side vertex layout. dst is grown as
// needed and returned, so a frame can reuse one backing buffer.
func EncodeInstances(dst []byte, instances []QuadInstance) []byte {
	need := len(instances) * InstanceStride
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]

	for i := range instances {
		inst := &instances[i]
		b := dst[i*InstanceStride:]
		binary.LittleEndian.PutUint16(b[0:2], uint16(inst.ShadingType))
		b[2] = inst.ScaleX
		b[3] = inst.ScaleY
		binary.LittleEndian.PutUint16(b[4:6], uint16(inst.PositionX))
		binary.LittleEndian.PutUint16(b[6:8], uint16(inst.PositionY))
		binary.LittleEndian.PutUint16(b[8:10], inst.SizeX)
		binary.LittleEndian.PutUint16(b[10:12], inst.SizeY)
		if inst.ShadingType.textured() {
			binary.LittleEndian.PutUint16(b[12:14], inst.TexX)
			binary.LittleEndian.PutUint16(b[14:16], inst.TexY)
		} else {
			binary.LittleEndian.PutUint32(b[12:16], inst.Color)
		}
	}
	return dst
}

func (s ShadingType) textured() bool {
	switch s {
	case ShadingTextGrayscale, ShadingTextClearType, ShadingTextBuiltinGlyph, ShadingTextPassthrough:
		return true
	default:
		return false
	}
}
