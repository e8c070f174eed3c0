package exr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAttributeOpacity covers spec scenario S6: an attribute of an
// unregistered type must round-trip byte-exact, tagged with its original
// type name, alongside ordinary registered attributes in the same header.
func TestAttributeOpacity(t *testing.T) {
	h := NewHeader()
	h.Set("dataWindow", &Box2iAttr{Value: Box2i{MinX: 0, MinY: 0, MaxX: 3, MaxY: 3}})
	h.Set("customFoo", &unknownValue{typeName: "customFoo", payload: []byte("HELLO")})

	var buf bytes.Buffer
	require.NoError(t, h.WriteTo(&buf, 2))

	got, err := ReadHeaderFrom(&buf, NewRegistry(), 2)
	require.NoError(t, err)

	custom, ok := got.Get("customFoo").(*unknownValue)
	require.True(t, ok, "customFoo should decode as an unknown value")
	assert.Equal(t, "customFoo", custom.TypeName())
	assert.Equal(t, []byte("HELLO"), custom.payload)

	dw, ok := got.DataWindow()
	require.True(t, ok)
	assert.Equal(t, Box2i{MinX: 0, MinY: 0, MaxX: 3, MaxY: 3}, dw)
}

// TestChannelListRoundTrip exercises the chlist wire format (§4.1): names,
// pixel types, pLinear flag, and sampling rates must all survive a
// write/read cycle, sorted order preserved as written.
func TestChannelListRoundTrip(t *testing.T) {
	want := &ChannelListAttr{Channels: []ChannelEntry{
		{Name: "B", Type: PixelFloat, PLinear: false, Sampling: SamplingRate{X: 1, Y: 1}},
		{Name: "G", Type: PixelHalf, PLinear: true, Sampling: SamplingRate{X: 2, Y: 2}},
		{Name: "R", Type: PixelUint, PLinear: false, Sampling: SamplingRate{X: 1, Y: 1}},
	}}

	h := NewHeader()
	h.Set("channels", want)

	var buf bytes.Buffer
	require.NoError(t, h.WriteTo(&buf, 2))

	got, err := ReadHeaderFrom(&buf, NewRegistry(), 2)
	require.NoError(t, err)

	gotChans, ok := got.Channels()
	require.True(t, ok)
	assert.True(t, want.Equal(gotChans))
	assert.Equal(t, want.Channels, gotChans.Channels)
}

// TestHeaderWriteToTerminator asserts the attribute stream ends with exactly
// one zero byte (§4.1), which ReadHeaderFrom relies on to detect end-of-header.
func TestHeaderWriteToTerminator(t *testing.T) {
	h := NewHeader()
	h.Set("dataWindow", &Box2iAttr{Value: Box2i{MaxX: 1, MaxY: 1}})

	var buf bytes.Buffer
	require.NoError(t, h.WriteTo(&buf, 2))
	require.Equal(t, byte(0), buf.Bytes()[buf.Len()-1])
}
