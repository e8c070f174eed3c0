package codestream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMainAndTileHeaderRoundTrip(t *testing.T) {
	siz := SIZSegment{
		Width: 64, Height: 48,
		TileWidth: 32, TileHeight: 24,
		Components: []Component{
			{Depth: 8, Signed: false, XSampling: 1, YSampling: 1},
			{Depth: 12, Signed: true, XSampling: 1, YSampling: 1},
		},
	}
	cod := CODSegment{
		UseSOP: true, UseEPH: true,
		Progression: RPCL,
		Layers:      1,
		Style: CodingStyle{
			DecompositionLevels: 3,
			CodeBlockWidthExp:   4,
			CodeBlockHeightExp:  4,
			Reversible:          true,
		},
	}
	qcd := QCDSegment{Style: QuantStyle{Style: 0, GuardBits: 2, StepSizes: []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteSOC())
	require.NoError(t, w.WriteSIZ(&siz))
	require.NoError(t, w.WriteCOD(&cod))
	require.NoError(t, w.WriteQCD(&qcd))

	sot := SOTSegment{TileIndex: 0, PartLength: 123, TilePartIndex: 0, NumTileParts: 1}
	require.NoError(t, w.WriteSOT(&sot))
	require.NoError(t, w.WriteSOD())
	require.NoError(t, w.WriteEOC())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, r.ReadSOC())
	header, err := r.ReadMainHeader()
	require.NoError(t, err)

	require.Equal(t, siz.Width, header.SIZ.Width)
	require.Equal(t, siz.Height, header.SIZ.Height)
	require.Equal(t, siz.TileWidth, header.SIZ.TileWidth)
	require.Equal(t, siz.TileHeight, header.SIZ.TileHeight)
	require.Equal(t, siz.Components, header.SIZ.Components)

	require.Equal(t, cod.UseSOP, header.COD.UseSOP)
	require.Equal(t, cod.UseEPH, header.COD.UseEPH)
	require.Equal(t, cod.Progression, header.COD.Progression)
	require.Equal(t, cod.Style.DecompositionLevels, header.COD.Style.DecompositionLevels)
	require.Equal(t, cod.Style.Reversible, header.COD.Style.Reversible)

	require.Equal(t, qcd.Style.GuardBits, header.QCD.Style.GuardBits)
	require.Equal(t, qcd.Style.StepSizes, header.QCD.Style.StepSizes)

	marker, err := r.PeekMarker()
	require.NoError(t, err)
	require.Equal(t, SOT, marker)

	th, err := r.ReadTileHeader()
	require.NoError(t, err)
	require.Equal(t, sot, th.SOT)

	require.NoError(t, r.ReadEOC())
}
