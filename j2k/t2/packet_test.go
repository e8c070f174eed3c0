package t2

import (
	"testing"

	"github.com/cocosip/go-hdrimage/j2k/bio"
	"github.com/stretchr/testify/require"
)

func TestPacketHeaderRoundTrip(t *testing.T) {
	enc := NewPrecinct(2, 2)
	blocks := []*CodeBlockInfo{
		{Data: make([]byte, 3), NumPasses: 4, ZeroBitPlanes: 2},
		nil, // not included
		{Data: make([]byte, 1), NumPasses: 1, ZeroBitPlanes: 5},
		{Data: make([]byte, 40), NumPasses: 20, ZeroBitPlanes: 0},
	}
	header, err := EncodePacketHeader(enc, 0, blocks)
	require.NoError(t, err)
	require.NotEmpty(t, header)

	dec := NewPrecinct(2, 2)
	r := bio.NewReader(header)
	got, err := DecodePacketHeader(dec, 0, r)
	require.NoError(t, err)
	require.Len(t, got, 4)

	require.Equal(t, 4, got[0].NumPasses)
	require.Equal(t, 2, got[0].ZeroBitPlanes)
	require.Len(t, got[0].Data, 3)

	require.Equal(t, 0, got[1].NumPasses)

	require.Equal(t, 1, got[2].NumPasses)
	require.Equal(t, 5, got[2].ZeroBitPlanes)
	require.Len(t, got[2].Data, 1)

	require.Equal(t, 20, got[3].NumPasses)
	require.Len(t, got[3].Data, 40)
}

func TestPacketHeaderEmptyPacket(t *testing.T) {
	p := NewPrecinct(3, 1)
	blocks := make([]*CodeBlockInfo, 3)
	header, err := EncodePacketHeader(p, 0, blocks)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00}, header)

	dec := NewPrecinct(3, 1)
	r := bio.NewReader(header)
	got, err := DecodePacketHeader(dec, 0, r)
	require.NoError(t, err)
	for _, info := range got {
		require.Equal(t, 0, info.NumPasses)
	}
}

func TestPacketHeaderLaterLayerInclusion(t *testing.T) {
	encState := NewPrecinct(1, 1)
	decState := NewPrecinct(1, 1)

	// Layer 0: codeblock not yet included.
	h0, err := EncodePacketHeader(encState, 0, []*CodeBlockInfo{nil})
	require.NoError(t, err)
	_, err = DecodePacketHeader(decState, 0, bio.NewReader(h0))
	require.NoError(t, err)

	// Layer 1: codeblock included for the first time.
	h1, err := EncodePacketHeader(encState, 1, []*CodeBlockInfo{{Data: make([]byte, 2), NumPasses: 1, ZeroBitPlanes: 3}})
	require.NoError(t, err)
	got, err := DecodePacketHeader(decState, 1, bio.NewReader(h1))
	require.NoError(t, err)
	require.Equal(t, 1, got[0].NumPasses)
	require.Equal(t, 3, got[0].ZeroBitPlanes)
	require.Len(t, got[0].Data, 2)
}
