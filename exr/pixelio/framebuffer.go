// Package pixelio implements the scanline and tile pixel engines (§4.5) that
// sit between a Header/chunk index and the application's sample storage.
// It is the collaborator contract described at interface level in §6.5: the
// codec asks a FrameBuffer for a row pointer, it never owns pixel storage
// itself.
package pixelio

import (
	"github.com/cocosip/go-hdrimage/exr"
	"github.com/cocosip/go-hdrimage/exr/compression"
)

// Slice describes one channel's pixel storage: a byte buffer plus the
// strides needed to address pixel (x,y), mirroring OpenEXR's
// FrameBuffer::Slice. Origin is the image coordinate that Base's first byte
// corresponds to, so callers allocate a buffer sized for whatever window
// they care about (data window, a single tile, ...) without needing
// negative-offset pointer arithmetic.
type Slice struct {
	Type                 exr.PixelType
	Base                 []byte
	XStride, YStride     int
	OriginX, OriginY     int
	XSampling, YSampling int
}

// Address returns the byte offset into Base for pixel (x,y).
func (s Slice) Address(x, y int) int {
	return (y-s.OriginY)*s.YStride + (x-s.OriginX)*s.XStride
}

// FrameBuffer maps channel name to its Slice, the same shape as the
// ChannelList the Header carries (§6.5).
type FrameBuffer map[string]Slice

// channelsFor returns the compression.Channel descriptors for a header's
// channel list, in the lexicographic order the wire format requires.
func channelsFor(h *exr.Header) ([]compression.Channel, error) {
	cl, ok := h.Channels()
	if !ok {
		return nil, exr.New(exr.KindBadHeader, "missing channels attribute")
	}
	return sortChannels(toCompressionChannels(cl.Channels)), nil
}

func toCompressionChannels(in []exr.ChannelEntry) []compression.Channel {
	out := make([]compression.Channel, len(in))
	for i, c := range in {
		out[i] = compression.Channel{
			Name:      c.Name,
			Type:      compression.PixelType(c.Type),
			XSampling: int(c.Sampling.X),
			YSampling: int(c.Sampling.Y),
		}
	}
	return out
}

func sortChannels(chs []compression.Channel) []compression.Channel {
	out := append([]compression.Channel(nil), chs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Name < out[j-1].Name; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// packRect copies width x height pixels (rect origin rectX,rectY) of every
// channel out of fb into the "channels in sorted order, rows concatenated"
// layout the compression package expects.
func packRect(channels []compression.Channel, fb FrameBuffer, rectX, rectY, width, height int) []byte {
	raw := make([]byte, compression.RawSize(channels, width, height))
	pos := 0
	for _, ch := range channels {
		sl, ok := fb[ch.Name]
		sampW := sampledExtent(width, ch.XSampling)
		sampH := sampledExtent(height, ch.YSampling)
		rowBytes := sampW * ch.Type.Size()
		if !ok {
			pos += sampH * rowBytes
			continue
		}
		for r := 0; r < sampH; r++ {
			y := rectY + r*maxInt(ch.YSampling, 1)
			for c := 0; c < sampW; c++ {
				x := rectX + c*maxInt(ch.XSampling, 1)
				off := sl.Address(x, y)
				copy(raw[pos:pos+ch.Type.Size()], sl.Base[off:])
				pos += ch.Type.Size()
			}
		}
	}
	return raw
}

// unpackRect is packRect's inverse: it scatters raw's sorted-channel layout
// back into fb.
func unpackRect(channels []compression.Channel, fb FrameBuffer, raw []byte, rectX, rectY, width, height int) {
	pos := 0
	for _, ch := range channels {
		sl, ok := fb[ch.Name]
		sampW := sampledExtent(width, ch.XSampling)
		sampH := sampledExtent(height, ch.YSampling)
		rowBytes := sampW * ch.Type.Size()
		if !ok {
			pos += sampH * rowBytes
			continue
		}
		for r := 0; r < sampH; r++ {
			y := rectY + r*maxInt(ch.YSampling, 1)
			for c := 0; c < sampW; c++ {
				x := rectX + c*maxInt(ch.XSampling, 1)
				off := sl.Address(x, y)
				copy(sl.Base[off:off+ch.Type.Size()], raw[pos:pos+ch.Type.Size()])
				pos += ch.Type.Size()
			}
		}
	}
}

func sampledExtent(extent, sampling int) int {
	if sampling <= 1 {
		return extent
	}
	return (extent + sampling - 1) / sampling
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
