package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// The renderer RECEIVES the device from the host, it does not create
// one; the terminal's windowing layer owns adapter and swapchain
// creation and shares the device with this package.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, giving the
// interface a local name while staying compatible with the gpucontext
// ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle with nil implementations, used for
// CPU-only rendering where no GPU is available.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo returns an unknown adapter for the null device.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

var _ DeviceHandle = NullDeviceHandle{}

// DeviceCapabilities describes what the probed GPU can do. The backend
// registry uses it to pick a renderer, and the atlas sizes itself from
// MaxTextureSize.
type DeviceCapabilities struct {
	MaxTextureSize  uint32
	MaxBufferSize   uint64
	SupportsCompute bool
	VendorName      string
	DeviceName      string
}

// AtlasTextureDescriptor describes the glyph atlas texture: a single-mip
// 2D texture sampled by the graphics queue and written by CPU uploads or
// compute.
func AtlasTextureDescriptor(width, height uint32) gputypes.TextureDescriptor {
	return gputypes.TextureDescriptor{
		Label: "glyph-atlas",
		Size: gputypes.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}
}

// uploadRowPitchAlignment is the required row alignment for texture
// upload staging memory.
const uploadRowPitchAlignment = 256

// AlignRowPitch rounds a tight row byte width up to the upload
// alignment.
func AlignRowPitch(rowBytes uint32) uint32 {
	return (rowBytes + uploadRowPitchAlignment - 1) &^ (uploadRowPitchAlignment - 1)
}

// StageTextureRows repacks tightly packed source rows into a staging
// buffer with aligned row pitch, as texture upload queues require.
// Returns the staging bytes and the pitch used.
func StageTextureRows(src []byte, rowBytes, rows uint32) ([]byte, uint32) {
	pitch := AlignRowPitch(rowBytes)
	if pitch == rowBytes {
		return src, pitch
	}

	dst := make([]byte, int(pitch)*int(rows))
	for r := uint32(0); r < rows; r++ {
		copy(dst[r*pitch:r*pitch+rowBytes], src[r*rowBytes:(r+1)*rowBytes])
	}
	return dst, pitch
}
