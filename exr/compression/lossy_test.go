package compression

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

// TestPxr24BoundedError covers spec scenario §8: PXR24 truncates FLOAT
// mantissas from 23 to 15 bits, so the relative reconstruction error must
// stay within that envelope.
func TestPxr24BoundedError(t *testing.T) {
	channels := []Channel{{Name: "Z", Type: Float, XSampling: 1, YSampling: 1}}
	width, height := 8, 4
	values := make([]float32, width*height)
	raw := make([]byte, width*height*4)
	for i := range values {
		v := float32(i+1) * 1.2345
		values[i] = v
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}

	c := (&pxr24Compressor{})
	compressed, err := c.Compress(channels, width, height, raw)
	require.NoError(t, err)

	out, err := c.Uncompress(channels, width, height, compressed, len(raw))
	require.NoError(t, err)

	for i, want := range values {
		got := math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
		relErr := math.Abs(float64(got-want)) / math.Abs(float64(want))
		assert.Lessf(t, relErr, 1.0/(1<<14), "sample %d: want %v got %v", i, want, got)
	}
}

// TestB44RoundTripWithinEnvelope covers spec scenario §8: B44 and B44A
// preserve HALF values within their 14-bit block-differencing envelope. The
// all-identical block case is covered by TestB44AFlatBlock.
func TestB44RoundTripWithinEnvelope(t *testing.T) {
	channels := []Channel{{Name: "Y", Type: Half, XSampling: 1, YSampling: 1}}
	width, height := 8, 8
	raw := make([]byte, width*height*2)
	values := make([]float16.Float16, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			v := float16.Fromfloat32(float32(x+y) * 0.5)
			values[i] = v
			binary.LittleEndian.PutUint16(raw[i*2:], uint16(v))
		}
	}

	for _, c := range []*b44Compressor{{flat: false}, {flat: true}} {
		compressed, err := c.Compress(channels, width, height, raw)
		var out []byte
		if err == ErrWouldGrow {
			out, err = (&noneCompressor{}).Uncompress(channels, width, height, raw, len(raw))
			require.NoError(t, err)
		} else {
			require.NoError(t, err)
			out, err = c.Uncompress(channels, width, height, compressed, len(raw))
			require.NoError(t, err)
		}

		for i, want := range values {
			got := float16.Float16(binary.LittleEndian.Uint16(out[i*2:]))
			diff := math.Abs(float64(got.Float32() - want.Float32()))
			assert.Lessf(t, diff, 0.5, "sample %d: want %v got %v", i, want.Float32(), got.Float32())
		}
	}
}

// TestB44AFlatBlock covers the all-identical-block special case: a uniform
// 4x4 HALF block must round-trip exactly under B44A.
func TestB44AFlatBlock(t *testing.T) {
	channels := []Channel{{Name: "Y", Type: Half, XSampling: 1, YSampling: 1}}
	width, height := 4, 4
	v := float16.Fromfloat32(2.5)
	raw := make([]byte, width*height*2)
	for i := 0; i < width*height; i++ {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(v))
	}

	c := &b44Compressor{flat: true}
	compressed, err := c.Compress(channels, width, height, raw)
	if err != ErrWouldGrow {
		require.NoError(t, err)
		out, err := c.Uncompress(channels, width, height, compressed, len(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, out)
	}
}

// TestDWARoundTripSmoke exercises the DCT-quantized lossy path for a
// luminance channel: decode should produce plausible values without
// erroring, confirming the plumbing (block DCT, quant scale, deflate
// residual) round-trips end to end.
func TestDWARoundTripSmoke(t *testing.T) {
	channels := []Channel{{Name: "R", Type: Half, XSampling: 1, YSampling: 1}}
	width, height := 16, 16
	raw := make([]byte, width*height*2)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			v := float16.Fromfloat32(float32(x)*0.1 + float32(y)*0.05)
			binary.LittleEndian.PutUint16(raw[i*2:], uint16(v))
		}
	}

	c := &dwaCompressor{lines: 32, quality: 0.5}
	compressed, err := c.Compress(channels, width, height, raw)
	var out []byte
	if err == ErrWouldGrow {
		out, err = (&noneCompressor{}).Uncompress(channels, width, height, raw, len(raw))
		require.NoError(t, err)
	} else {
		require.NoError(t, err)
		out, err = c.Uncompress(channels, width, height, compressed, len(raw))
		require.NoError(t, err)
	}
	require.Len(t, out, len(raw))

	for i := 0; i < width*height; i++ {
		got := float16.Float16(binary.LittleEndian.Uint16(out[i*2:])).Float32()
		assert.False(t, math.IsNaN(float64(got)))
		assert.Less(t, math.Abs(float64(got)), 10.0)
	}
}
