package pixelio

import (
	"math"
	"testing"

	"github.com/cocosip/go-hdrimage/exr"
	"github.com/cocosip/go-hdrimage/exr/stream"
	"github.com/stretchr/testify/require"
)

func newTestHeader(t *testing.T, width, height int32, comp exr.Compression) *exr.Header {
	t.Helper()
	h := exr.NewHeader()
	dw := exr.Box2i{MinX: 0, MinY: 0, MaxX: width - 1, MaxY: height - 1}
	h.Set("dataWindow", &exr.Box2iAttr{Value: dw})
	h.Set("displayWindow", &exr.Box2iAttr{Value: dw})
	h.Set("pixelAspectRatio", &exr.FloatAttr{Value: 1})
	h.Set("screenWindowCenter", &exr.VecAttr{})
	h.Set("screenWindowWidth", &exr.FloatAttr{Value: 1})
	h.Set("lineOrder", &exr.LineOrderAttr{Value: exr.IncreasingY})
	h.Set("compression", &exr.CompressionAttr{Value: comp})
	h.Set("channels", &exr.ChannelListAttr{Channels: []exr.ChannelEntry{
		{Name: "R", Type: exr.PixelFloat, Sampling: exr.SamplingRate{X: 1, Y: 1}},
		{Name: "G", Type: exr.PixelFloat, Sampling: exr.SamplingRate{X: 1, Y: 1}},
		{Name: "B", Type: exr.PixelFloat, Sampling: exr.SamplingRate{X: 1, Y: 1}},
	}})
	return h
}

func fillFrameBuffer(width, height int) ([]byte, []byte, []byte, FrameBuffer) {
	r := make([]byte, width*height*4)
	g := make([]byte, width*height*4)
	b := make([]byte, width*height*4)
	fb := FrameBuffer{
		"R": Slice{Type: exr.PixelFloat, Base: r, XStride: 4, YStride: width * 4},
		"G": Slice{Type: exr.PixelFloat, Base: g, XStride: 4, YStride: width * 4},
		"B": Slice{Type: exr.PixelFloat, Base: b, XStride: 4, YStride: width * 4},
	}
	return r, g, b, fb
}

func TestScanlineRoundTrip(t *testing.T) {
	const w, h = 16, 10
	header := newTestHeader(t, w, h, exr.CompressionZIP)

	_, _, _, writeFB := fillFrameBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float32(y*w + x)
			putFloat(writeFB["R"], x, y, v)
			putFloat(writeFB["G"], x, y, v*2)
			putFloat(writeFB["B"], x, y, v*3)
		}
	}

	mem := stream.NewMemory(nil)
	sw, err := NewScanlineWriter(mem, header)
	require.NoError(t, err)
	sw.SetFrameBuffer(writeFB)
	require.NoError(t, sw.WritePixels(h))
	require.NoError(t, sw.Close())

	f, err := exr.Open(mem, exr.NewRegistry())
	require.NoError(t, err)

	_, _, _, readFB := fillFrameBuffer(w, h)
	sr, err := NewScanlineReader(mem, f.Header, f.Offsets, false)
	require.NoError(t, err)
	require.NoError(t, sr.ReadAll(readFB))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float32(y*w + x)
			require.Equal(t, v, getFloat(readFB["R"], x, y))
			require.Equal(t, v*2, getFloat(readFB["G"], x, y))
			require.Equal(t, v*3, getFloat(readFB["B"], x, y))
		}
	}
}

func TestScanlineRoundTripDecreasingY(t *testing.T) {
	const w, h = 8, 13 // odd height; NONE stores one scanline per chunk
	header := newTestHeader(t, w, h, exr.CompressionNone)
	header.Set("lineOrder", &exr.LineOrderAttr{Value: exr.DecreasingY})

	_, _, _, writeFB := fillFrameBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			putFloat(writeFB["R"], x, y, float32(x+y))
		}
	}

	mem := stream.NewMemory(nil)
	sw, err := NewScanlineWriter(mem, header)
	require.NoError(t, err)
	sw.SetFrameBuffer(writeFB)
	require.NoError(t, sw.WritePixels(h))
	require.NoError(t, sw.Close())

	f, err := exr.Open(mem, exr.NewRegistry())
	require.NoError(t, err)
	_, _, _, readFB := fillFrameBuffer(w, h)
	sr, err := NewScanlineReader(mem, f.Header, f.Offsets, false)
	require.NoError(t, err)
	require.NoError(t, sr.ReadAll(readFB))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			require.Equal(t, float32(x+y), getFloat(readFB["R"], x, y))
		}
	}
}

func putFloat(s Slice, x, y int, v float32) {
	off := s.Address(x, y)
	bits := math.Float32bits(v)
	s.Base[off] = byte(bits)
	s.Base[off+1] = byte(bits >> 8)
	s.Base[off+2] = byte(bits >> 16)
	s.Base[off+3] = byte(bits >> 24)
}

func getFloat(s Slice, x, y int) float32 {
	off := s.Address(x, y)
	bits := uint32(s.Base[off]) | uint32(s.Base[off+1])<<8 | uint32(s.Base[off+2])<<16 | uint32(s.Base[off+3])<<24
	return math.Float32frombits(bits)
}
