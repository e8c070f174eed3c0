package pixelio

import (
	"testing"

	"github.com/cocosip/go-hdrimage/exr"
	"github.com/cocosip/go-hdrimage/exr/stream"
	"github.com/stretchr/testify/require"
)

func newDeepHeader(t *testing.T, width, height int32) *exr.Header {
	t.Helper()
	h := newTestHeader(t, width, height, exr.CompressionZIP)
	h.Set("type", &exr.StringAttr{Value: exr.PartDeepScanline})
	h.Set("version", &exr.IntAttr{Value: 1})
	h.Set("channels", &exr.ChannelListAttr{Channels: []exr.ChannelEntry{
		{Name: "Z", Type: exr.PixelFloat, Sampling: exr.SamplingRate{X: 1, Y: 1}},
	}})
	return h
}

func TestDeepScanlineRoundTrip(t *testing.T) {
	const w, h = 4, 3
	header := newDeepHeader(t, w, h)

	counts := make([][]int32, h)
	samples := make([][][]byte, h)
	for y := 0; y < h; y++ {
		counts[y] = make([]int32, w)
		samples[y] = make([][]byte, w)
		for x := 0; x < w; x++ {
			n := int32((x + y) % 3)
			counts[y][x] = n
			buf := make([]byte, n*4)
			for i := int32(0); i < n; i++ {
				buf[i*4] = byte(i + 1)
			}
			samples[y][x] = buf
		}
	}
	fb := DeepFrameBuffer{
		SampleCounts: counts,
		Channels:     map[string]DeepChannel{"Z": {Type: exr.PixelFloat, Samples: samples}},
	}

	mem := stream.NewMemory(nil)
	dw, err := NewDeepScanlineWriter(mem, header)
	require.NoError(t, err)
	require.NoError(t, dw.WriteBlock(0, fb))
	require.NoError(t, dw.Close())

	f, err := exr.Open(mem, exr.NewRegistry())
	require.NoError(t, err)
	dr, err := NewDeepScanlineReader(mem, f.Header, f.Offsets, false)
	require.NoError(t, err)
	y, got, err := dr.ReadChunk(0)
	require.NoError(t, err)
	require.Equal(t, int32(0), y)

	for yy := 0; yy < h; yy++ {
		for x := 0; x < w; x++ {
			require.Equal(t, counts[yy][x], got.SampleCounts[yy][x])
			require.Equal(t, samples[yy][x], got.Channels["Z"].Samples[yy][x])
		}
	}
}
